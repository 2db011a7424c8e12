package provider

import (
	"context"

	"callassist/pkg/types"
)

// ToolChoice mirrors the completion API's tool_choice parameter.
type ToolChoice string

const (
	ToolChoiceAuto ToolChoice = "auto"
	ToolChoiceNone ToolChoice = "none"
)

// ChatOptions contains configurable parameters for chat generation.
type ChatOptions struct {
	Model       string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Stop        []string
	Tools       []types.ToolDefinition
	ToolChoice  ToolChoice
	Stream      bool
}

// Option is a functional option for configuring ChatOptions.
type Option func(*ChatOptions)

func WithTemperature(t float64) Option {
	return func(o *ChatOptions) {
		o.Temperature = t
	}
}

func WithModel(m string) Option {
	return func(o *ChatOptions) {
		o.Model = m
	}
}

func WithMaxTokens(n int) Option {
	return func(o *ChatOptions) {
		o.MaxTokens = n
	}
}

func WithTools(tools []types.ToolDefinition) Option {
	return func(o *ChatOptions) {
		o.Tools = tools
	}
}

func WithToolChoice(tc ToolChoice) Option {
	return func(o *ChatOptions) {
		o.ToolChoice = tc
	}
}

// ChatChunk represents a piece of a streamed response.
// A chunk may carry a text delta, tool-call deltas, or both.
type ChatChunk struct {
	Content      string
	ToolCalls    []types.ToolCallDelta // Partial tool calls, keyed by Index
	FinishReason string
	Usage        *types.Usage // Usually only available in the last chunk
	ID           string
	Error        error // To handle stream errors gracefully
}

// ChatModel defines the interface for interacting with Chat LLMs.
type ChatModel interface {
	// Name returns the provider name (e.g., "openai", "gemini").
	Name() string

	// Chat sends a list of messages and returns a complete response.
	Chat(ctx context.Context, messages []types.Message, opts ...Option) (*types.ChatResponse, error)

	// Stream sends a list of messages and returns a channel of chunks.
	// The channel is closed when the stream is exhausted; consumers must
	// drain it before treating the turn as complete.
	Stream(ctx context.Context, messages []types.Message, opts ...Option) (<-chan ChatChunk, error)
}
