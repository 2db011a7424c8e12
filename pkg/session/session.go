// Package session holds per-user conversation state: the message log, the
// active instruction text, and the started flag. A session serializes its
// own turns; independent sessions share nothing.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"callassist/pkg/types"
)

var (
	ErrNotStarted     = errors.New("session not started")
	ErrAlreadyStarted = errors.New("session already started")
	ErrAbandoned      = errors.New("session reset during round trip")
)

// Policy selects how the instruction text evolves across turns.
type Policy string

const (
	// PolicyFixed seeds the instruction once at start and never touches it
	// again. The phone assistant runs this way.
	PolicyFixed Policy = "fixed"

	// PolicyRebuild regenerates the instruction before every turn, feeding
	// the conversation so far back into the builder. The feedback assistant
	// runs this way so its instruction embeds the running transcript.
	PolicyRebuild Policy = "rebuild"
)

// Completer runs one full completion round trip over a message log.
// chat.Client satisfies this.
type Completer interface {
	Complete(ctx context.Context, messages []types.Message) (string, error)
}

// InstructionBuilder produces the instruction text. Under PolicyRebuild it
// is called before every turn with the history accumulated so far; under
// PolicyFixed it is called once at start with an empty history.
type InstructionBuilder func(history []types.Message) (string, error)

// Config assembles a Session.
type Config struct {
	Completer Completer
	Policy    Policy
	Build     InstructionBuilder
	Logger    *slog.Logger
}

// Session is the per-user conversation record. The instruction text is kept
// out of the message log and prepended on every request, so the log itself
// only ever holds user, assistant, and tool turns.
type Session struct {
	id        string
	completer Completer
	policy    Policy
	build     InstructionBuilder
	logger    *slog.Logger

	mu          sync.Mutex
	instruction string
	messages    []types.Message
	started     bool
	// generation is bumped by Reset and Load so an in-flight round trip
	// started before the bump discards its result instead of appending it.
	generation uint64
}

// New creates an unstarted session with a fresh id.
func New(cfg Config) (*Session, error) {
	if cfg.Completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	if cfg.Build == nil {
		return nil, fmt.Errorf("instruction builder is required")
	}
	policy := cfg.Policy
	if policy == "" {
		policy = PolicyFixed
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Session{
		id:        uuid.NewString(),
		completer: cfg.Completer,
		policy:    policy,
		build:     cfg.Build,
		logger:    logger,
	}, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) Started() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}

// Instruction returns the active instruction text.
func (s *Session) Instruction() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.instruction
}

// History returns a copy of the message log, without the system message.
func (s *Session) History() []types.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Start seeds the instruction, optionally appends a first user line, and
// runs the opening round trip so the assistant speaks first. It returns the
// assistant's opening reply.
func (s *Session) Start(ctx context.Context, firstLine string) (string, error) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return "", ErrAlreadyStarted
	}
	instruction, err := s.build(nil)
	if err != nil {
		s.mu.Unlock()
		return "", fmt.Errorf("build instruction: %w", err)
	}
	s.instruction = instruction
	s.started = true
	if firstLine != "" {
		s.messages = append(s.messages, types.Message{Role: types.RoleUser, Content: firstLine})
	}
	s.mu.Unlock()

	return s.roundTrip(ctx)
}

// Send appends one user turn, runs the round trip, appends the assistant
// reply, and returns it. A transport or service failure does not error the
// turn: the diagnostic text is logged into the conversation instead, so the
// session stays usable.
func (s *Session) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return "", ErrNotStarted
	}
	if s.policy == PolicyRebuild {
		instruction, err := s.build(s.messages)
		if err != nil {
			s.mu.Unlock()
			return "", fmt.Errorf("rebuild instruction: %w", err)
		}
		s.instruction = instruction
	}
	s.messages = append(s.messages, types.Message{Role: types.RoleUser, Content: text})
	s.mu.Unlock()

	return s.roundTrip(ctx)
}

// roundTrip runs the completer over a snapshot of the log and appends the
// reply. The lock is released for the duration of the call so Reset can run
// mid-flight; a generation mismatch afterwards means the session was reset
// or replaced and the result is dropped.
func (s *Session) roundTrip(ctx context.Context) (string, error) {
	s.mu.Lock()
	log := make([]types.Message, 0, len(s.messages)+1)
	log = append(log, types.Message{Role: types.RoleSystem, Content: s.instruction})
	log = append(log, s.messages...)
	gen := s.generation
	s.mu.Unlock()

	reply, err := s.completer.Complete(ctx, log)
	if err != nil {
		// Failures become visible conversation text here, at the outermost
		// layer, so callers never need a separate error channel for them.
		s.logger.Error("round trip failed", "session", s.id, "error", err)
		reply = fmt.Sprintf("[ERROR: %s]", err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		return "", ErrAbandoned
	}
	s.messages = append(s.messages, types.Message{Role: types.RoleAssistant, Content: reply})
	return reply, nil
}

// Reset discards all history irrecoverably and returns the session to its
// initial state. Any round trip in flight is abandoned.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruction = ""
	s.messages = nil
	s.started = false
	s.generation++
}
