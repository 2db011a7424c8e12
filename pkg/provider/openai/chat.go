package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"callassist/pkg/provider"
	"callassist/pkg/types"
)

// Config contains OpenAI credential and runtime options.
// When Azure is set, BaseURL is the Azure resource endpoint and Model names
// the deployment.
type Config struct {
	APIKey      string
	BaseURL     string
	Azure       bool
	APIVersion  string // Azure only, e.g. "2025-04-01-preview"
	Model       string
	HTTPClient  *http.Client
	Temperature float64 // Default temperature
}

// ChatModel implements provider.ChatModel using OpenAI chat completions.
type ChatModel struct {
	client             *goopenai.Client
	defaultModel       string
	defaultTemperature float64
}

const (
	defaultTemperature = 0.1
	defaultModel       = "gpt-4o"
	defaultAPIVersion  = "2025-04-01-preview"
)

// NewChatModel builds a chat completion provider.
func NewChatModel(cfg Config) (provider.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	var apiCfg goopenai.ClientConfig
	if cfg.Azure {
		if strings.TrimSpace(cfg.BaseURL) == "" {
			return nil, fmt.Errorf("azure endpoint is required")
		}
		apiCfg = goopenai.DefaultAzureConfig(cfg.APIKey, cfg.BaseURL)
		apiCfg.APIVersion = defaultAPIVersion
		if cfg.APIVersion != "" {
			apiCfg.APIVersion = cfg.APIVersion
		}
	} else {
		apiCfg = goopenai.DefaultConfig(cfg.APIKey)
		if cfg.BaseURL != "" {
			apiCfg.BaseURL = cfg.BaseURL
		}
	}
	if cfg.HTTPClient != nil {
		apiCfg.HTTPClient = cfg.HTTPClient
	}

	modelName := cfg.Model
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultModel
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}

	return &ChatModel{
		client:             goopenai.NewClientWithConfig(apiCfg),
		defaultModel:       modelName,
		defaultTemperature: temp,
	}, nil
}

func (m *ChatModel) Name() string {
	return "openai"
}

func (m *ChatModel) prepareRequest(messages []types.Message, opts []provider.Option) (goopenai.ChatCompletionRequest, error) {
	// 1. Apply options
	options := &provider.ChatOptions{
		Model:       m.defaultModel,
		Temperature: m.defaultTemperature,
	}
	for _, o := range opts {
		o(options)
	}

	// 2. Convert Messages
	openaiMsgs := make([]goopenai.ChatCompletionMessage, len(messages))
	for i, msg := range messages {
		oMsg := goopenai.ChatCompletionMessage{
			Content: msg.Content,
			Name:    msg.Name,
		}

		switch msg.Role {
		case types.RoleSystem:
			oMsg.Role = goopenai.ChatMessageRoleSystem
		case types.RoleUser:
			oMsg.Role = goopenai.ChatMessageRoleUser
		case types.RoleAssistant:
			oMsg.Role = goopenai.ChatMessageRoleAssistant
			if len(msg.ToolCalls) > 0 {
				oMsg.ToolCalls = convertToOpenAIToolCalls(msg.ToolCalls)
			}
		case types.RoleTool:
			oMsg.Role = goopenai.ChatMessageRoleTool
			oMsg.ToolCallID = msg.ToolCallID
		default:
			oMsg.Role = goopenai.ChatMessageRoleUser // Fallback
		}
		openaiMsgs[i] = oMsg
	}

	// 3. Build Request
	req := goopenai.ChatCompletionRequest{
		Model:       options.Model,
		Messages:    openaiMsgs,
		Temperature: float32(options.Temperature),
		MaxTokens:   options.MaxTokens,
		Stop:        options.Stop,
	}

	// 4. Handle Tools
	if len(options.Tools) > 0 {
		req.Tools = make([]goopenai.Tool, len(options.Tools))
		for i, t := range options.Tools {
			req.Tools[i] = goopenai.Tool{
				Type: goopenai.ToolType(t.Type),
				Function: &goopenai.FunctionDefinition{
					Name:        t.Function.Name,
					Description: t.Function.Description,
					Parameters:  t.Function.Parameters,
				},
			}
		}
		if options.ToolChoice != "" {
			req.ToolChoice = string(options.ToolChoice)
		}
	}

	return req, nil
}

// Chat implements provider.ChatModel.Chat
func (m *ChatModel) Chat(ctx context.Context, messages []types.Message, opts ...provider.Option) (*types.ChatResponse, error) {
	req, err := m.prepareRequest(messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, err
	}

	if len(resp.Choices) == 0 {
		return nil, errors.New("openai: no choices returned")
	}

	choice := resp.Choices[0]

	chatMsg := types.Message{
		Role:    types.RoleAssistant,
		Content: choice.Message.Content,
	}
	if len(choice.Message.ToolCalls) > 0 {
		chatMsg.ToolCalls = convertFromOpenAIToolCalls(choice.Message.ToolCalls)
	}

	return &types.ChatResponse{
		Message:      chatMsg,
		FinishReason: string(choice.FinishReason),
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}, nil
}

// Stream implements provider.ChatModel.Stream
func (m *ChatModel) Stream(ctx context.Context, messages []types.Message, opts ...provider.Option) (<-chan provider.ChatChunk, error) {
	req, err := m.prepareRequest(messages, opts)
	if err != nil {
		return nil, err
	}
	req.Stream = true

	stream, err := m.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, err
	}

	ch := make(chan provider.ChatChunk)
	go func() {
		defer close(ch)
		defer stream.Close()

		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				ch <- provider.ChatChunk{Error: err}
				return
			}

			if len(resp.Choices) > 0 {
				choice := resp.Choices[0]
				chunk := provider.ChatChunk{
					Content:      choice.Delta.Content,
					ID:           resp.ID,
					FinishReason: string(choice.FinishReason),
				}

				// Tool calls arrive as indexed fragments. Every fragment is
				// forwarded with its index so the consumer can merge them.
				for _, tc := range choice.Delta.ToolCalls {
					delta := types.ToolCallDelta{ID: tc.ID}
					if tc.Index != nil {
						delta.Index = *tc.Index
					}
					delta.Name = tc.Function.Name
					delta.Arguments = tc.Function.Arguments
					chunk.ToolCalls = append(chunk.ToolCalls, delta)
				}

				ch <- chunk
			}
		}
	}()

	return ch, nil
}

// Helpers

func convertToOpenAIToolCalls(tcs []types.ToolCall) []goopenai.ToolCall {
	res := make([]goopenai.ToolCall, len(tcs))
	for i, tc := range tcs {
		res[i] = goopenai.ToolCall{
			ID:   tc.ID,
			Type: goopenai.ToolType(tc.Type),
			Function: goopenai.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		}
	}
	return res
}

func convertFromOpenAIToolCalls(tcs []goopenai.ToolCall) []types.ToolCall {
	res := make([]types.ToolCall, len(tcs))
	for i, tc := range tcs {
		res[i] = types.NewToolCall(tc.ID, tc.Function.Name, tc.Function.Arguments)
	}
	return res
}

// Ensure interface compliance
var _ provider.ChatModel = (*ChatModel)(nil)
