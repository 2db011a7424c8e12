package prompt

import (
	"errors"
	"strings"
	"testing"

	"callassist/pkg/types"
)

const sampleEvaluation = `{
	"categories": {
		"greeting": {"score": 4.5, "feedback": "Freundlicher Einstieg", "advanced_feedback": "Name früher nennen"},
		"tone": {"score": 3.0, "feedback": "Etwas hastig", "advanced_feedback": ""}
	}
}`

func TestParseEvaluation(t *testing.T) {
	t.Run("Wrapped Document", func(t *testing.T) {
		cfg, err := ParseEvaluation(sampleEvaluation)
		if err != nil {
			t.Fatalf("ParseEvaluation() error = %v", err)
		}
		if cfg.Categories["greeting"].Score != 4.5 {
			t.Errorf("greeting = %+v", cfg.Categories["greeting"])
		}
	})

	t.Run("Bare Category Map", func(t *testing.T) {
		cfg, err := ParseEvaluation(`{"tone": {"score": 2, "feedback": "ok", "advanced_feedback": ""}}`)
		if err != nil {
			t.Fatalf("ParseEvaluation() error = %v", err)
		}
		if cfg.Categories["tone"].Score != 2 {
			t.Errorf("tone = %+v", cfg.Categories["tone"])
		}
	})

	t.Run("Fenced Document", func(t *testing.T) {
		fenced := "```json\n" + sampleEvaluation + "\n```"
		if _, err := ParseEvaluation(fenced); err != nil {
			t.Errorf("ParseEvaluation() error = %v", err)
		}
	})

	t.Run("Malformed", func(t *testing.T) {
		if _, err := ParseEvaluation("{not json"); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("error = %v, want ErrInvalidJSON", err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		if _, err := ParseEvaluation("  "); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("error = %v, want ErrInvalidJSON", err)
		}
	})
}

func TestBuildFeedbackPrompt(t *testing.T) {
	cfg, err := ParseEvaluation(sampleEvaluation)
	if err != nil {
		t.Fatalf("ParseEvaluation() error = %v", err)
	}
	history := []types.Message{
		{Role: types.RoleUser, Content: "Wie war die Begrüßung?"},
		{Role: types.RoleAssistant, Content: "Sehr freundlich."},
	}

	got, err := BuildFeedbackPrompt(cfg, history)
	if err != nil {
		t.Fatalf("BuildFeedbackPrompt() error = %v", err)
	}
	for _, want := range []string{
		"Freundlicher Einstieg",
		"user: Wie war die Begrüßung?",
		"assistant: Sehr freundlich.",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	// A fresh session has no transcript yet.
	empty, err := BuildFeedbackPrompt(cfg, nil)
	if err != nil {
		t.Fatalf("BuildFeedbackPrompt() error = %v", err)
	}
	if !strings.Contains(empty, "(no messages yet)") {
		t.Error("empty transcript placeholder missing")
	}
}

func TestFormatTranscript_SkipsToolMessages(t *testing.T) {
	got := FormatTranscript([]types.Message{
		{Role: types.RoleUser, Content: "Hallo"},
		{Role: types.RoleTool, Content: "{}"},
		{Role: types.RoleAssistant, Content: "Tag"},
	})
	if strings.Contains(got, "{}") {
		t.Errorf("tool message leaked into transcript: %q", got)
	}
	if got != "user: Hallo\nassistant: Tag" {
		t.Errorf("transcript = %q", got)
	}
}
