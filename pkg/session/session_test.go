package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"callassist/pkg/types"
)

// stubCompleter records every request log and replies from a script.
type stubCompleter struct {
	mu      sync.Mutex
	logs    [][]types.Message
	replies []string
	err     error
	block   chan struct{} // when set, Complete waits on it before returning
	entered chan struct{} // when set, receives one signal per Complete call
}

func (c *stubCompleter) Complete(ctx context.Context, messages []types.Message) (string, error) {
	c.mu.Lock()
	log := make([]types.Message, len(messages))
	copy(log, messages)
	c.logs = append(c.logs, log)
	var reply string
	if len(c.replies) > 0 {
		reply = c.replies[0]
		c.replies = c.replies[1:]
	} else {
		reply = "ok"
	}
	block := c.block
	entered := c.entered
	c.mu.Unlock()

	if entered != nil {
		entered <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return reply, c.err
}

func (c *stubCompleter) requestLogs() [][]types.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]types.Message, len(c.logs))
	copy(out, c.logs)
	return out
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedBuilder(text string) InstructionBuilder {
	return func([]types.Message) (string, error) { return text, nil }
}

func newTestSession(t *testing.T, c Completer, policy Policy, build InstructionBuilder) *Session {
	t.Helper()
	s, err := New(Config{Completer: c, Policy: policy, Build: build, Logger: nopLogger()})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSession_StartAndSend(t *testing.T) {
	c := &stubCompleter{replies: []string{"Guten Tag, Praxis hier.", "Gerne."}}
	s := newTestSession(t, c, PolicyFixed, fixedBuilder("be a receptionist"))

	if s.Started() {
		t.Fatal("fresh session reports started")
	}
	if _, err := s.Send(context.Background(), "Hallo"); !errors.Is(err, ErrNotStarted) {
		t.Fatalf("Send() before start: error = %v, want ErrNotStarted", err)
	}

	reply, err := s.Start(context.Background(), "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if reply != "Guten Tag, Praxis hier." {
		t.Errorf("Start() reply = %q", reply)
	}
	if !s.Started() || s.Instruction() != "be a receptionist" {
		t.Errorf("started = %v, instruction = %q", s.Started(), s.Instruction())
	}
	if _, err := s.Start(context.Background(), ""); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start(): error = %v, want ErrAlreadyStarted", err)
	}

	if _, err := s.Send(context.Background(), "Ich brauche einen Termin."); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	hist := s.History()
	if len(hist) != 3 {
		t.Fatalf("history has %d messages, want 3", len(hist))
	}
	if hist[0].Role != types.RoleAssistant || hist[1].Role != types.RoleUser || hist[2].Role != types.RoleAssistant {
		t.Errorf("history roles = %v %v %v", hist[0].Role, hist[1].Role, hist[2].Role)
	}

	// Every request starts with exactly one system message.
	for i, log := range c.requestLogs() {
		if log[0].Role != types.RoleSystem || log[0].Content != "be a receptionist" {
			t.Errorf("request %d: first message = %+v", i, log[0])
		}
	}
}

func TestSession_FixedPolicyInstructionStable(t *testing.T) {
	c := &stubCompleter{}
	s := newTestSession(t, c, PolicyFixed, fixedBuilder("fixed text"))

	if _, err := s.Start(context.Background(), "erste"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	for i := 0; i < 4; i++ {
		if _, err := s.Send(context.Background(), fmt.Sprintf("turn %d", i)); err != nil {
			t.Fatalf("Send() error = %v", err)
		}
	}

	logs := c.requestLogs()
	first := logs[0][0].Content
	last := logs[len(logs)-1][0].Content
	if first != last {
		t.Errorf("instruction drifted under fixed policy: %q vs %q", first, last)
	}
}

func TestSession_RebuildPolicyEmbedsHistory(t *testing.T) {
	c := &stubCompleter{replies: []string{"r0", "r1", "r2"}}
	build := func(history []types.Message) (string, error) {
		var sb strings.Builder
		sb.WriteString("evaluate this transcript:\n")
		for _, m := range history {
			fmt.Fprintf(&sb, "%s: %s\n", m.Role, m.Content)
		}
		return sb.String(), nil
	}
	s := newTestSession(t, c, PolicyRebuild, build)

	if _, err := s.Start(context.Background(), ""); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err := s.Send(context.Background(), "erste Frage"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if _, err := s.Send(context.Background(), "zweite Frage"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	logs := c.requestLogs()
	firstInstr := logs[0][0].Content
	lastInstr := logs[2][0].Content
	if strings.Contains(firstInstr, "erste Frage") {
		t.Errorf("turn-1 instruction already contains later history: %q", firstInstr)
	}
	if !strings.Contains(lastInstr, "erste Frage") || !strings.Contains(lastInstr, "r1") {
		t.Errorf("turn-3 instruction missing prior history: %q", lastInstr)
	}
}

func TestSession_ErrorCoercedToDiagnosticReply(t *testing.T) {
	c := &stubCompleter{err: errors.New("connection reset")}
	s := newTestSession(t, c, PolicyFixed, fixedBuilder("x"))

	reply, err := s.Start(context.Background(), "Hallo")
	if err != nil {
		t.Fatalf("Start() error = %v, want coerced reply", err)
	}
	if reply != "[ERROR: connection reset]" {
		t.Errorf("reply = %q", reply)
	}
	hist := s.History()
	if hist[len(hist)-1].Content != "[ERROR: connection reset]" {
		t.Errorf("diagnostic not logged: %v", hist)
	}
}

func TestSession_Reset(t *testing.T) {
	c := &stubCompleter{}
	s := newTestSession(t, c, PolicyFixed, fixedBuilder("x"))
	if _, err := s.Start(context.Background(), "Hallo"); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	s.Reset()
	if s.Started() || s.Instruction() != "" || len(s.History()) != 0 {
		t.Errorf("Reset() left state behind: started=%v instruction=%q history=%v",
			s.Started(), s.Instruction(), s.History())
	}
}

func TestSession_ResetAbandonsInFlightRoundTrip(t *testing.T) {
	block := make(chan struct{})
	c := &stubCompleter{block: block, entered: make(chan struct{}, 1)}
	s := newTestSession(t, c, PolicyFixed, fixedBuilder("x"))

	done := make(chan error, 1)
	go func() {
		_, err := s.Start(context.Background(), "Hallo")
		done <- err
	}()

	// Wait for the round trip to be in flight, then reset under it.
	<-c.entered
	s.Reset()
	close(block)

	if err := <-done; !errors.Is(err, ErrAbandoned) {
		t.Fatalf("Start() error = %v, want ErrAbandoned", err)
	}
	if len(s.History()) != 0 {
		t.Errorf("abandoned result appended: %v", s.History())
	}
}
