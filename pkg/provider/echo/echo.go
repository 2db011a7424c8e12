package echo

import (
	"context"
	"sort"
	"strings"
	"sync"

	"callassist/pkg/provider"
	"callassist/pkg/types"
)

// ChatModel is a deterministic provider useful for tests and offline runs.
// By default it replies with the last user message. Tests can enqueue chunk
// scripts that are replayed one script per Stream/Chat request; the provider
// also records every request's message log.
type ChatModel struct {
	Prefix string

	mu       sync.Mutex
	scripts  [][]provider.ChatChunk
	requests [][]types.Message
}

// New returns a new echo provider.
func New(prefix string) *ChatModel {
	return &ChatModel{Prefix: prefix}
}

func (p *ChatModel) Name() string {
	if p.Prefix == "" {
		return "echo"
	}
	return "echo-" + strings.ReplaceAll(p.Prefix, " ", "_")
}

// Enqueue adds one scripted response; each request consumes one script.
func (p *ChatModel) Enqueue(chunks ...provider.ChatChunk) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scripts = append(p.scripts, chunks)
}

// Requests returns the message logs seen so far, in request order.
func (p *ChatModel) Requests() [][]types.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([][]types.Message, len(p.requests))
	copy(out, p.requests)
	return out
}

func (p *ChatModel) record(messages []types.Message) []provider.ChatChunk {
	p.mu.Lock()
	defer p.mu.Unlock()

	log := make([]types.Message, len(messages))
	copy(log, messages)
	p.requests = append(p.requests, log)

	if len(p.scripts) == 0 {
		return nil
	}
	script := p.scripts[0]
	p.scripts = p.scripts[1:]
	return script
}

// fallback builds the default echo reply from the last user message.
func (p *ChatModel) fallback(messages []types.Message) string {
	var sb strings.Builder
	if p.Prefix != "" {
		sb.WriteString(strings.TrimSpace(p.Prefix))
		sb.WriteString(" ")
	}
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == types.RoleUser {
			sb.WriteString(messages[i].Content)
			break
		}
	}
	return sb.String()
}

// Chat implements provider.ChatModel. Scripted tool-call fragments are
// merged the same way a streaming consumer would merge them, so one script
// drives both request modes.
func (p *ChatModel) Chat(ctx context.Context, messages []types.Message, opts ...provider.Option) (*types.ChatResponse, error) {
	script := p.record(messages)

	msg := types.Message{Role: types.RoleAssistant}
	if script == nil {
		msg.Content = p.fallback(messages)
	} else {
		type entry struct {
			id, name string
			args     strings.Builder
		}
		entries := map[int]*entry{}

		var sb strings.Builder
		for _, chunk := range script {
			if chunk.Error != nil {
				return nil, chunk.Error
			}
			sb.WriteString(chunk.Content)
			for _, d := range chunk.ToolCalls {
				e, ok := entries[d.Index]
				if !ok {
					e = &entry{}
					entries[d.Index] = e
				}
				if e.id == "" {
					e.id = d.ID
				}
				if e.name == "" {
					e.name = d.Name
				}
				e.args.WriteString(d.Arguments)
			}
		}
		msg.Content = sb.String()

		indices := make([]int, 0, len(entries))
		for i := range entries {
			indices = append(indices, i)
		}
		sort.Ints(indices)
		for _, i := range indices {
			e := entries[i]
			msg.ToolCalls = append(msg.ToolCalls, types.NewToolCall(e.id, e.name, e.args.String()))
		}
	}

	finish := "stop"
	if len(msg.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return &types.ChatResponse{
		Message:      msg,
		FinishReason: finish,
	}, nil
}

// Stream implements provider.ChatModel
func (p *ChatModel) Stream(ctx context.Context, messages []types.Message, opts ...provider.Option) (<-chan provider.ChatChunk, error) {
	script := p.record(messages)
	ch := make(chan provider.ChatChunk)

	go func() {
		defer close(ch)

		if script != nil {
			for _, chunk := range script {
				select {
				case ch <- chunk:
				case <-ctx.Done():
					return
				}
			}
			return
		}

		// Simulate streaming by words
		words := strings.Split(p.fallback(messages), " ")
		for _, word := range words {
			select {
			case ch <- provider.ChatChunk{Content: word + " "}:
			case <-ctx.Done():
				return
			}
		}
		select {
		case ch <- provider.ChatChunk{FinishReason: "stop"}:
		case <-ctx.Done():
		}
	}()

	return ch, nil
}

var _ provider.ChatModel = (*ChatModel)(nil)
