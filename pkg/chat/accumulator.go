package chat

import (
	"sort"
	"strings"

	"callassist/pkg/types"
)

// accumulator merges streamed tool-call fragments keyed by their index.
// Within one index the id and name are set at most once and the arguments
// text grows by concatenation in arrival order. Fragments for different
// indices may interleave freely.
//
// An invocation is only safe to dispatch after the stream has ended, which
// is why reading back happens through finalize and nothing else.
type accumulator struct {
	entries map[int]*callEntry
}

type callEntry struct {
	id   string
	name string
	args strings.Builder
}

func newAccumulator() *accumulator {
	return &accumulator{entries: make(map[int]*callEntry)}
}

// add merges one fragment.
func (a *accumulator) add(d types.ToolCallDelta) {
	e, ok := a.entries[d.Index]
	if !ok {
		e = &callEntry{}
		a.entries[d.Index] = e
	}
	if e.id == "" {
		e.id = d.ID
	}
	if e.name == "" {
		e.name = d.Name
	}
	e.args.WriteString(d.Arguments)
}

func (a *accumulator) empty() bool {
	return len(a.entries) == 0
}

// finalize produces the complete invocations in ascending index order.
func (a *accumulator) finalize() []types.ToolCall {
	indices := make([]int, 0, len(a.entries))
	for idx := range a.entries {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	calls := make([]types.ToolCall, 0, len(indices))
	for _, idx := range indices {
		e := a.entries[idx]
		calls = append(calls, types.NewToolCall(e.id, e.name, e.args.String()))
	}
	return calls
}
