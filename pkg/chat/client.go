// Package chat implements the completion round trip: one streamed request,
// an optional tool-dispatch phase, and one follow-up streamed request to
// turn tool results into a final natural-language reply.
package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"callassist/pkg/provider"
	"callassist/pkg/tool"
	"callassist/pkg/types"
)

// Config describes how a Client is assembled.
type Config struct {
	Provider    provider.ChatModel
	Dispatcher  *tool.Dispatcher
	Model       string
	Temperature float64
	MaxTokens   int
	// Timeout bounds one whole round trip (both requests). Zero disables it.
	Timeout time.Duration
	// DisableStreaming switches the round trip to buffered Chat requests.
	// Tool calls then arrive whole instead of as fragments.
	DisableStreaming bool
	Logger           *slog.Logger
}

// Client drives the round trip against a chat model. A transport or service
// failure is returned as an error; callers decide how to surface it (the
// session layer coerces it into a diagnostic reply).
type Client struct {
	provider    provider.ChatModel
	dispatcher  *tool.Dispatcher
	model       string
	temperature float64
	maxTokens   int
	timeout     time.Duration
	streaming   bool
	logger      *slog.Logger
}

// New builds a Client and wires defaults.
func New(cfg Config) (*Client, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		provider:    cfg.Provider,
		dispatcher:  cfg.Dispatcher,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		timeout:     cfg.Timeout,
		streaming:   !cfg.DisableStreaming,
		logger:      logger,
	}, nil
}

// Complete runs one round trip over the given message log and returns the
// final reply text. When the first stream ends with tool calls instead of
// text, the calls are dispatched in index order and a second stream produces
// the reply. The caller must not run concurrent round trips over the same
// session log.
func (c *Client) Complete(ctx context.Context, messages []types.Message) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	opts := c.requestOptions()

	content, calls, err := c.invoke(ctx, messages, opts)
	if err != nil {
		return "", err
	}

	// Any real text wins: no dispatch, no second request.
	if strings.TrimSpace(content) != "" || len(calls) == 0 {
		return content, nil
	}

	c.logger.Debug("dispatching tool calls", "count", len(calls))

	extended := make([]types.Message, 0, len(messages)+1+len(calls))
	extended = append(extended, messages...)
	extended = append(extended, types.Message{
		Role:      types.RoleAssistant,
		ToolCalls: calls,
	})

	for _, call := range calls {
		var args map[string]any
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
			// A truncated or malformed argument blob must not fail the
			// turn; the tool sees an empty record instead.
			c.logger.Warn("tool arguments unparseable",
				"tool", call.Function.Name, "error", err)
			args = map[string]any{}
		}
		result := c.dispatcher.DispatchJSON(ctx, call.Function.Name, args)
		extended = append(extended, types.Message{
			Role:       types.RoleTool,
			Content:    result,
			Name:       call.Function.Name,
			ToolCallID: call.ID,
		})
	}

	content, _, err = c.invoke(ctx, extended, opts)
	if err != nil {
		return "", err
	}
	// The second reply may legitimately be empty.
	return content, nil
}

// invoke performs one completion request and returns the reply text plus any
// tool calls, complete and in ascending index order.
func (c *Client) invoke(ctx context.Context, messages []types.Message, opts []provider.Option) (string, []types.ToolCall, error) {
	if !c.streaming {
		resp, err := c.provider.Chat(ctx, messages, opts...)
		if err != nil {
			return "", nil, err
		}
		return resp.Message.Content, resp.Message.ToolCalls, nil
	}

	content, acc, err := c.consume(ctx, messages, opts)
	if err != nil {
		return "", nil, err
	}
	return content, acc.finalize(), nil
}

func (c *Client) requestOptions() []provider.Option {
	opts := []provider.Option{
		provider.WithTools(c.dispatcher.Definitions()),
		provider.WithToolChoice(provider.ToolChoiceAuto),
	}
	if c.model != "" {
		opts = append(opts, provider.WithModel(c.model))
	}
	if c.temperature != 0 {
		opts = append(opts, provider.WithTemperature(c.temperature))
	}
	if c.maxTokens > 0 {
		opts = append(opts, provider.WithMaxTokens(c.maxTokens))
	}
	return opts
}

// consume drains one stream to exhaustion, applying fragments in delivery
// order. The channel is always read to the end so the producing goroutine
// can exit; the first error wins.
func (c *Client) consume(ctx context.Context, messages []types.Message, opts []provider.Option) (string, *accumulator, error) {
	chunks, err := c.provider.Stream(ctx, messages, opts...)
	if err != nil {
		return "", nil, err
	}

	var sb strings.Builder
	var streamErr error
	acc := newAccumulator()

	for chunk := range chunks {
		if chunk.Error != nil {
			if streamErr == nil {
				streamErr = chunk.Error
			}
			continue
		}
		sb.WriteString(chunk.Content)
		for _, delta := range chunk.ToolCalls {
			acc.add(delta)
		}
	}

	if streamErr != nil {
		return "", nil, streamErr
	}
	return sb.String(), acc, nil
}
