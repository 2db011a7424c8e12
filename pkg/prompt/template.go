package prompt

import (
	"strings"
)

// Template is a lightweight string template using single-brace placeholders.
// Example: "Hello {name}" with fields map{"name": "Fritz"} -> "Hello Fritz".
type Template struct {
	Text string
}

// NewTemplate returns a Template with the provided text.
func NewTemplate(text string) Template {
	return Template{Text: text}
}

// Render replaces placeholders with field values in a single left-to-right
// pass. Placeholders without a matching field are left byte-for-byte
// unchanged, and substituted values are never re-scanned, so a field value
// containing placeholder-shaped text stays literal.
func (t Template) Render(fields map[string]string) string {
	text := t.Text
	var sb strings.Builder
	sb.Grow(len(text))

	for i := 0; i < len(text); {
		open := strings.IndexByte(text[i:], '{')
		if open < 0 {
			sb.WriteString(text[i:])
			break
		}
		open += i
		sb.WriteString(text[i:open])

		close := strings.IndexByte(text[open:], '}')
		if close < 0 {
			sb.WriteString(text[open:])
			break
		}
		close += open

		name := text[open+1 : close]
		if val, ok := fields[name]; ok {
			sb.WriteString(val)
			i = close + 1
			continue
		}

		// Unknown placeholder: emit the opening brace verbatim and rescan
		// from the next byte so nested or malformed braces survive intact.
		sb.WriteByte('{')
		i = open + 1
	}

	return sb.String()
}
