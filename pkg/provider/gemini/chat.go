package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"callassist/pkg/provider"
	"callassist/pkg/types"
)

// Config contains Gemini credential and runtime options.
type Config struct {
	APIKey      string
	Model       string // e.g., "gemini-1.5-pro"
	Temperature float64
}

// ChatModel implements provider.ChatModel using Google Gemini.
type ChatModel struct {
	client             *genai.Client
	defaultModel       string
	defaultTemperature float64
}

const (
	defaultModel       = "gemini-1.5-pro"
	defaultTemperature = 0.1
)

// NewChatModel builds a Gemini chat provider.
func NewChatModel(ctx context.Context, cfg Config) (provider.ChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = defaultModel
	}

	temp := cfg.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}

	return &ChatModel{
		client:             client,
		defaultModel:       modelName,
		defaultTemperature: temp,
	}, nil
}

func (m *ChatModel) Name() string {
	return "gemini"
}

// Chat implements provider.ChatModel.Chat
func (m *ChatModel) Chat(ctx context.Context, messages []types.Message, opts ...provider.Option) (*types.ChatResponse, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	cs, parts, err := m.prepareSession(messages, opts)
	if err != nil {
		return nil, err
	}

	resp, err := cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, err
	}

	return toChatResponse(resp), nil
}

// Stream implements provider.ChatModel.Stream
func (m *ChatModel) Stream(ctx context.Context, messages []types.Message, opts ...provider.Option) (<-chan provider.ChatChunk, error) {
	if len(messages) == 0 {
		return nil, errors.New("no messages to send")
	}

	cs, parts, err := m.prepareSession(messages, opts)
	if err != nil {
		return nil, err
	}

	iter := cs.SendMessageStream(ctx, parts...)
	ch := make(chan provider.ChatChunk)

	go func() {
		defer close(ch)
		// Gemini delivers each function call whole; assign indexes by arrival
		// order so the consumer-side accumulator sees the same shape as the
		// OpenAI fragment stream.
		nextIndex := 0
		for {
			resp, err := iter.Next()
			if err == iterator.Done {
				return
			}
			if err != nil {
				ch <- provider.ChatChunk{Error: err}
				return
			}

			if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
				continue
			}

			cand := resp.Candidates[0]
			var chunk provider.ChatChunk
			var sb strings.Builder
			for _, part := range cand.Content.Parts {
				switch p := part.(type) {
				case genai.Text:
					sb.WriteString(string(p))
				case genai.FunctionCall:
					chunk.ToolCalls = append(chunk.ToolCalls, types.ToolCallDelta{
						Index:     nextIndex,
						ID:        syntheticCallID(nextIndex, p.Name),
						Name:      p.Name,
						Arguments: marshalArgs(p.Args),
					})
					nextIndex++
				}
			}
			chunk.Content = sb.String()
			ch <- chunk
		}
	}()

	return ch, nil
}

// prepareSession creates a ChatSession with history populated and returns
// the parts to send for the newest turn.
func (m *ChatModel) prepareSession(messages []types.Message, opts []provider.Option) (*genai.ChatSession, []genai.Part, error) {
	// 1. Apply options
	options := &provider.ChatOptions{
		Model:       m.defaultModel,
		Temperature: m.defaultTemperature,
	}
	for _, o := range opts {
		o(options)
	}

	// 2. Configure Model
	gm := m.client.GenerativeModel(options.Model)
	gm.SetTemperature(float32(options.Temperature))
	if options.MaxTokens > 0 {
		gm.SetMaxOutputTokens(int32(options.MaxTokens))
	}
	if len(options.Tools) > 0 {
		gm.Tools = convertToGeminiTools(options.Tools)
	}

	// 3. Route the instruction and build history. Gemini takes the
	// instruction text out of band, never as a turn, so the system message
	// is split off before the log is partitioned into history + newest.
	instruction, turns := splitLog(messages)
	if instruction != "" {
		gm.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(instruction)},
		}
	}

	cs := gm.StartChat()

	// An opening request carries only the instruction. Gemini still needs
	// a non-empty user part to elicit the first reply.
	if len(turns) == 0 {
		return cs, []genai.Part{genai.Text(" ")}, nil
	}

	history := turns[:len(turns)-1]
	geminiHistory := make([]*genai.Content, 0, len(history))
	for _, msg := range history {
		role := "user"
		switch msg.Role {
		case types.RoleAssistant:
			role = "model" // Gemini uses "model" instead of "assistant"
		case types.RoleTool:
			role = "function"
		}
		geminiHistory = append(geminiHistory, &genai.Content{
			Role:  role,
			Parts: toGeminiParts(msg),
		})
	}
	cs.History = geminiHistory

	return cs, toGeminiParts(turns[len(turns)-1]), nil
}

// splitLog separates the instruction text from the conversational turns.
func splitLog(messages []types.Message) (instruction string, turns []types.Message) {
	for _, msg := range messages {
		if msg.Role == types.RoleSystem {
			instruction = msg.Content
			continue
		}
		turns = append(turns, msg)
	}
	return instruction, turns
}

// Helpers

func toGeminiParts(msg types.Message) []genai.Part {
	var parts []genai.Part

	if msg.Role == types.RoleTool {
		var result map[string]any
		if err := json.Unmarshal([]byte(msg.Content), &result); err != nil {
			result = map[string]any{"output": msg.Content}
		}
		parts = append(parts, genai.FunctionResponse{
			Name:     msg.Name,
			Response: result,
		})
		return parts
	}

	if msg.Content != "" {
		parts = append(parts, genai.Text(msg.Content))
	}
	for _, tc := range msg.ToolCalls {
		var args map[string]any
		if err := json.Unmarshal([]byte(tc.Function.Arguments), &args); err != nil {
			args = map[string]any{}
		}
		parts = append(parts, genai.FunctionCall{
			Name: tc.Function.Name,
			Args: args,
		})
	}
	return parts
}

func toChatResponse(resp *genai.GenerateContentResponse) *types.ChatResponse {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return &types.ChatResponse{
			Message: types.Message{Role: types.RoleAssistant, Content: ""},
		}
	}

	cand := resp.Candidates[0]
	var sb strings.Builder

	msg := types.Message{
		Role: types.RoleAssistant,
	}

	for i, part := range cand.Content.Parts {
		switch p := part.(type) {
		case genai.Text:
			sb.WriteString(string(p))
		case genai.FunctionCall:
			msg.ToolCalls = append(msg.ToolCalls,
				types.NewToolCall(syntheticCallID(i, p.Name), p.Name, marshalArgs(p.Args)))
		}
	}
	msg.Content = sb.String()

	out := &types.ChatResponse{
		Message:      msg,
		FinishReason: toFinishReason(cand.FinishReason),
	}
	if resp.UsageMetadata != nil {
		out.Usage = types.Usage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return out
}

func toFinishReason(fr genai.FinishReason) string {
	switch fr {
	case genai.FinishReasonStop:
		return "stop"
	case genai.FinishReasonMaxTokens:
		return "length"
	default:
		return fmt.Sprintf("unknown:%d", fr)
	}
}

// syntheticCallID fabricates a stable call id; Gemini does not assign one.
func syntheticCallID(index int, name string) string {
	return fmt.Sprintf("call_%d_%s", index, name)
}

func marshalArgs(args map[string]any) string {
	if len(args) == 0 {
		return "{}"
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// convertToGeminiTools maps OpenAI-shaped tool definitions onto Gemini
// function declarations. Only the schema subset the built-in tools use is
// translated (object/string/number/boolean/array, enum, required).
func convertToGeminiTools(defs []types.ToolDefinition) []*genai.Tool {
	decls := make([]*genai.FunctionDeclaration, 0, len(defs))
	for _, d := range defs {
		decl := &genai.FunctionDeclaration{
			Name:        d.Function.Name,
			Description: d.Function.Description,
		}
		if params, ok := d.Function.Parameters.(map[string]any); ok {
			decl.Parameters = convertSchema(params)
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func convertSchema(schema map[string]any) *genai.Schema {
	out := &genai.Schema{Type: toGeminiType(schema["type"])}
	if desc, ok := schema["description"].(string); ok {
		out.Description = desc
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = convertSchema(sub)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = convertSchema(items)
	}
	if req, ok := schema["required"].([]string); ok {
		out.Required = req
	}
	return out
}

func toGeminiType(t any) genai.Type {
	s, _ := t.(string)
	switch s {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}

var _ provider.ChatModel = (*ChatModel)(nil)
