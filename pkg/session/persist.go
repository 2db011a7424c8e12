package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"callassist/pkg/types"
)

var (
	ErrEmptyDocument = errors.New("conversation document is empty")
	ErrNotArray      = errors.New("conversation document is not a JSON array")
)

// persistedMessage is the on-disk shape of one conversation entry. Tool
// messages and tool-call metadata are deliberately not persisted; a loaded
// conversation is a transcript, not a replayable request log.
type persistedMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Export serializes the session as a JSON array suitable for download.
// Element 0 carries the instruction text as a system message when one is
// set; the rest is the transcript filtered to user and assistant turns.
func (s *Session) Export() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := make([]persistedMessage, 0, len(s.messages)+1)
	if s.instruction != "" {
		doc = append(doc, persistedMessage{Role: string(types.RoleSystem), Content: s.instruction})
	}
	for _, m := range s.messages {
		if m.Role != types.RoleUser && m.Role != types.RoleAssistant {
			continue
		}
		doc = append(doc, persistedMessage{Role: string(m.Role), Content: m.Content})
	}
	return json.MarshalIndent(doc, "", "  ")
}

// Load replaces the session's state with the uploaded document. If element 0
// is a system message it becomes the instruction text; everything else is
// filtered to user and assistant turns. On any failure the session is left
// exactly as it was. A successful load marks the session started and
// abandons any round trip in flight.
func (s *Session) Load(data []byte) error {
	var doc []persistedMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrNotArray, err)
	}
	if len(doc) == 0 {
		return ErrEmptyDocument
	}

	var instruction string
	rest := doc
	if doc[0].Role == string(types.RoleSystem) {
		instruction = doc[0].Content
		rest = doc[1:]
	}

	messages := make([]types.Message, 0, len(rest))
	for _, m := range rest {
		role := types.Role(m.Role)
		if role != types.RoleUser && role != types.RoleAssistant {
			continue
		}
		messages = append(messages, types.Message{Role: role, Content: m.Content})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruction = instruction
	s.messages = messages
	s.started = true
	s.generation++
	return nil
}
