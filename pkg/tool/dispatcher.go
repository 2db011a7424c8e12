package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"callassist/pkg/types"
)

// Dispatcher routes tool invocations by name. An unknown name or a failing
// tool produces an error RECORD, never a Go error: the result always goes
// back into the conversation as a tool message so the turn can continue.
type Dispatcher struct {
	tools  map[string]Tool
	order  []string
	logger *slog.Logger
}

// NewDispatcher builds a dispatcher over a fixed tool set.
func NewDispatcher(logger *slog.Logger, tools ...Tool) *Dispatcher {
	d := &Dispatcher{
		tools:  make(map[string]Tool, len(tools)),
		logger: logger,
	}
	for _, t := range tools {
		if _, dup := d.tools[t.Name()]; !dup {
			d.order = append(d.order, t.Name())
		}
		d.tools[t.Name()] = t
	}
	return d
}

// Dispatch executes the named tool with the given argument record.
func (d *Dispatcher) Dispatch(ctx context.Context, name string, args map[string]any) map[string]any {
	t, ok := d.tools[name]
	if !ok {
		d.logger.Warn("unknown tool requested", "tool", name)
		return map[string]any{"error": fmt.Sprintf("Unknown tool: %s", name)}
	}

	result, err := t.Execute(ctx, args)
	if err != nil {
		d.logger.Error("tool execution failed", "tool", name, "error", err)
		return map[string]any{"error": err.Error()}
	}
	return result
}

// DispatchJSON runs Dispatch and serializes the result record for a tool
// message. Serialization of a map built from JSON-decoded values cannot
// fail; a marshal error still degrades to an error record.
func (d *Dispatcher) DispatchJSON(ctx context.Context, name string, args map[string]any) string {
	result := d.Dispatch(ctx, name, args)
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Sprintf(`{"error":%q}`, err.Error())
	}
	return string(raw)
}

// Definitions returns the tool definitions in registration order, ready to
// attach to a completion request.
func (d *Dispatcher) Definitions() []types.ToolDefinition {
	defs := make([]types.ToolDefinition, 0, len(d.order))
	for _, name := range d.order {
		defs = append(defs, ToDefinition(d.tools[name]))
	}
	return defs
}
