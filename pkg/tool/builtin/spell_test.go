package builtin

import (
	"context"
	"testing"
)

func TestSpellOutName_Execute(t *testing.T) {
	tests := []struct {
		name  string
		input map[string]any
		want  string
	}{
		{
			name:  "German Alphabet",
			input: map[string]any{"name_to_spell": "AB", "spelling_alphabet": "german"},
			want:  "A wie Anton, B wie Berta",
		},
		{
			name:  "German Is Default",
			input: map[string]any{"name_to_spell": "AB"},
			want:  "A wie Anton, B wie Berta",
		},
		{
			name:  "NATO Alphabet",
			input: map[string]any{"name_to_spell": "AB", "spelling_alphabet": "nato"},
			want:  "Alpha, Bravo",
		},
		{
			name:  "Simple Alphabet",
			input: map[string]any{"name_to_spell": "ab", "spelling_alphabet": "simple"},
			want:  "A - B",
		},
		{
			name:  "Lowercase German",
			input: map[string]any{"name_to_spell": "jose", "spelling_alphabet": "german"},
			want:  "j wie Julius, o wie Otto, s wie Samuel, e wie Emil",
		},
		{
			name:  "Whitespace Skipped",
			input: map[string]any{"name_to_spell": "A B", "spelling_alphabet": "nato"},
			want:  "Alpha, Bravo",
		},
		{
			name:  "Unknown Characters Pass Through",
			input: map[string]any{"name_to_spell": "A-B", "spelling_alphabet": "nato"},
			want:  "Alpha, -, Bravo",
		},
		{
			name:  "Eszett",
			input: map[string]any{"name_to_spell": "ß", "spelling_alphabet": "german"},
			want:  "ß wie Eszett",
		},
		{
			name:  "Empty Input",
			input: map[string]any{"name_to_spell": ""},
			want:  "",
		},
	}

	st := NewSpellOutName()
	ctx := context.Background()

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := st.Execute(ctx, tt.input)
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if got["spelled_name"] != tt.want {
				t.Errorf("spelled_name = %q, want %q", got["spelled_name"], tt.want)
			}
		})
	}
}

func TestDetectRobotCall_Execute(t *testing.T) {
	dt := NewDetectRobotCall()
	ctx := context.Background()

	t.Run("Echoes Claim", func(t *testing.T) {
		got, err := dt.Execute(ctx, map[string]any{
			"transcript":    "Drücken Sie die Eins",
			"is_robot_call": true,
			"confidence":    0.9,
		})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if got["is_robot_call"] != true || got["transcript"] != "Drücken Sie die Eins" || got["confidence"] != 0.9 {
			t.Errorf("unexpected result: %v", got)
		}
	})

	t.Run("Default Confidence", func(t *testing.T) {
		got, err := dt.Execute(ctx, map[string]any{"transcript": "Hallo?", "is_robot_call": false})
		if err != nil {
			t.Fatalf("Execute() error = %v", err)
		}
		if got["confidence"] != 0.5 {
			t.Errorf("confidence = %v, want 0.5", got["confidence"])
		}
	})
}
