package builtin

import (
	"context"
	"strings"
	"unicode"

	"callassist/pkg/tool"
)

// Spelling alphabets. Lookup is by uppercased rune; characters missing from
// the table pass through unchanged.
var germanAlphabet = map[rune]string{
	'A': "Anton", 'Ä': "Ärger", 'B': "Berta", 'C': "Cäsar", 'D': "Dora",
	'E': "Emil", 'F': "Friedrich", 'G': "Gustav", 'H': "Heinrich",
	'I': "Ida", 'J': "Julius", 'K': "Kaufmann", 'L': "Ludwig",
	'M': "Martha", 'N': "Nordpol", 'O': "Otto", 'Ö': "Ökonom",
	'P': "Paula", 'Q': "Quelle", 'R': "Richard", 'S': "Samuel",
	'T': "Theodor", 'U': "Ulrich", 'Ü': "Übermut", 'V': "Viktor",
	'W': "Wilhelm", 'X': "Xanthippe", 'Y': "Ypsilon", 'Z': "Zacharias",
	'ß': "Eszett",
}

var natoAlphabet = map[rune]string{
	'A': "Alpha", 'B': "Bravo", 'C': "Charlie", 'D': "Delta", 'E': "Echo",
	'F': "Foxtrot", 'G': "Golf", 'H': "Hotel", 'I': "India", 'J': "Juliet",
	'K': "Kilo", 'L': "Lima", 'M': "Mike", 'N': "November", 'O': "Oscar",
	'P': "Papa", 'Q': "Quebec", 'R': "Romeo", 'S': "Sierra", 'T': "Tango",
	'U': "Uniform", 'V': "Victor", 'W': "Whiskey", 'X': "X-ray",
	'Y': "Yankee", 'Z': "Zulu",
}

// SpellOutName spells a name letter by letter in one of three alphabets.
// The model calls it when the practice asks to spell the patient's name
// ("buchstabieren").
type SpellOutName struct {
	tool.BaseTool
}

func NewSpellOutName() *SpellOutName {
	t := &SpellOutName{
		BaseTool: tool.NewBaseTool(
			"spell_out_name",
			"Spell out a name letter by letter. Call this when the user asks to spell a name, e.g. the German word 'buchstabieren'.",
		),
	}

	t.SchemaVal = map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name_to_spell": map[string]any{
				"type":        "string",
				"description": "The name that needs to be spelled out letter by letter",
			},
			"spelling_alphabet": map[string]any{
				"type":        "string",
				"enum":        []string{"german", "nato", "simple"},
				"description": "The spelling alphabet to use. 'german' uses the German phonetic alphabet (Anton, Berta, ...), 'nato' the NATO alphabet, 'simple' just spells letters",
			},
		},
		"required": []string{"name_to_spell"},
	}

	return t
}

func (t *SpellOutName) Execute(ctx context.Context, args map[string]any) (map[string]any, error) {
	name, _ := args["name_to_spell"].(string)
	alphabet, _ := args["spelling_alphabet"].(string)
	if alphabet == "" {
		alphabet = "german"
	}

	return map[string]any{
		"spelled_name":  spell(name, alphabet),
		"original_name": name,
	}, nil
}

func spell(name, alphabet string) string {
	var parts []string
	for _, r := range name {
		if unicode.IsSpace(r) {
			continue
		}
		switch alphabet {
		case "nato":
			parts = append(parts, lookup(natoAlphabet, r))
		case "simple":
			parts = append(parts, string(unicode.ToUpper(r)))
		default: // german
			parts = append(parts, string(r)+" wie "+lookup(germanAlphabet, r))
		}
	}

	sep := ", "
	if alphabet == "simple" {
		sep = " - "
	}
	return strings.Join(parts, sep)
}

// lookup tries the uppercased rune first, then the rune itself (ß has no
// single-rune uppercase in the table), and falls back to the character.
func lookup(table map[rune]string, r rune) string {
	if w, ok := table[unicode.ToUpper(r)]; ok {
		return w
	}
	if w, ok := table[r]; ok {
		return w
	}
	return string(r)
}

var _ tool.Tool = (*SpellOutName)(nil)
