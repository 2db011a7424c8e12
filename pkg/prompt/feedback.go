package prompt

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"callassist/pkg/types"
)

// Category is one scored aspect of a recorded call.
type Category struct {
	Score            float64 `json:"score"`
	Feedback         string  `json:"feedback"`
	AdvancedFeedback string  `json:"advanced_feedback"`
}

// EvaluationConfig is the QA variant's input: a document of ten named
// categories, each scored with basic and advanced feedback text.
type EvaluationConfig struct {
	Categories map[string]Category `json:"categories"`
}

// evaluationCategories is the expected category set, in report order.
var evaluationCategories = []string{
	"greeting",
	"introduction",
	"intent",
	"slot_offering",
	"negotiation",
	"date_handling",
	"time_handling",
	"data_provision",
	"tone",
	"closing",
}

// ParseEvaluation decodes an evaluation document. The document may be pasted
// with surrounding markdown code fences; those are stripped before decoding.
// Malformed JSON or an empty document is an error.
func ParseEvaluation(doc string) (EvaluationConfig, error) {
	var cfg EvaluationConfig

	cleaned := cleanJSON(doc)
	if cleaned == "" {
		return cfg, fmt.Errorf("%w: empty evaluation document", ErrInvalidJSON)
	}

	// Accept either the wrapped {"categories": {...}} shape or a bare
	// category map.
	if err := json.Unmarshal([]byte(cleaned), &cfg); err != nil || len(cfg.Categories) == 0 {
		bare := map[string]Category{}
		if err := json.Unmarshal([]byte(cleaned), &bare); err != nil {
			return EvaluationConfig{}, fmt.Errorf("%w: %v", ErrInvalidJSON, err)
		}
		cfg.Categories = bare
	}

	if len(cfg.Categories) == 0 {
		return EvaluationConfig{}, fmt.Errorf("%w: no categories", ErrInvalidJSON)
	}
	return cfg, nil
}

// feedbackPromptTemplate instructs the model to discuss a scored call
// evaluation with a trainee. The running conversation is embedded in the
// instruction itself, so this prompt is rebuilt before every turn.
const feedbackPromptTemplate = `# Your Role
You are a quality-assurance coach discussing a recorded appointment call with a trainee. You have the scored evaluation below. Answer questions about the scores, explain what went well and what to improve, and keep a constructive, encouraging tone. Quote the category feedback when asked for detail; use the advanced feedback only when the trainee asks to go deeper.

# Evaluation
{evaluation}

# Conversation so far
{transcript}

# Rules
- Ground every statement in the evaluation document; do not invent scores.
- Mention at most two categories per reply unless asked for a full summary.
- When asked for an overall score, average the category scores.`

// BuildFeedbackPrompt renders the QA instruction. The transcript of the
// session so far is serialized into the prompt, which is why the feedback
// variant runs with the rebuilt-per-turn policy.
func BuildFeedbackPrompt(cfg EvaluationConfig, history []types.Message) (string, error) {
	ordered := make(map[string]Category, len(cfg.Categories))
	for _, name := range evaluationCategories {
		if c, ok := cfg.Categories[name]; ok {
			ordered[name] = c
		}
	}
	// Unknown category names are kept; the template only promises the known
	// ten an ordering.
	for name, c := range cfg.Categories {
		ordered[name] = c
	}

	raw, err := json.MarshalIndent(ordered, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize evaluation: %w", err)
	}

	fields := map[string]string{
		"evaluation": string(raw),
		"transcript": FormatTranscript(history),
	}
	return NewTemplate(feedbackPromptTemplate).Render(fields), nil
}

// FormatTranscript renders a simple role-prefixed listing of the
// conversation for embedding into prompts.
func FormatTranscript(messages []types.Message) string {
	if len(messages) == 0 {
		return "(no messages yet)"
	}
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != types.RoleUser && msg.Role != types.RoleAssistant {
			continue
		}
		lines = append(lines, string(msg.Role)+": "+msg.Content)
	}
	if len(lines) == 0 {
		return "(no messages yet)"
	}
	return strings.Join(lines, "\n")
}

// cleanJSON extracts JSON from markdown code blocks or strips surrounding whitespace.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	re := regexp.MustCompile("(?s)```(?:json)?(.*?)```")
	matches := re.FindStringSubmatch(text)
	if len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}

	return text
}
