package tool

import (
	"context"

	"callassist/pkg/types"
)

// Tool represents a callable capability exposed to the completion service.
// Tools are pure: no I/O, no mutation, and Execute must not fail for any
// argument record the model could plausibly send.
type Tool interface {
	// Name returns the unique name of the tool.
	Name() string

	// Description returns the text shown to the model.
	Description() string

	// InputSchema returns the JSON schema for the arguments.
	InputSchema() map[string]any

	// Execute runs the tool logic and returns the result record.
	Execute(ctx context.Context, args map[string]any) (map[string]any, error)
}

// BaseTool implements the metadata half of Tool.
// Embed this struct to get default implementations.
type BaseTool struct {
	NameVal   string
	DescVal   string
	SchemaVal map[string]any
}

func NewBaseTool(name, desc string) BaseTool {
	return BaseTool{
		NameVal: name,
		DescVal: desc,
	}
}

func (b *BaseTool) Name() string                { return b.NameVal }
func (b *BaseTool) Description() string         { return b.DescVal }
func (b *BaseTool) InputSchema() map[string]any { return b.SchemaVal }

// ToDefinition converts a Tool into a types.ToolDefinition for LLM providers.
func ToDefinition(t Tool) types.ToolDefinition {
	def := types.ToolDefinition{Type: "function"}
	def.Function.Name = t.Name()
	def.Function.Description = t.Description()
	def.Function.Parameters = t.InputSchema()
	return def
}
