package chat

import (
	"testing"

	"callassist/pkg/types"
)

func TestAccumulator_MergesInterleavedFragments(t *testing.T) {
	acc := newAccumulator()

	// Fragments for two calls arriving interleaved and out of index order.
	acc.add(types.ToolCallDelta{Index: 1, ID: "call_b", Name: "detect_robot_call"})
	acc.add(types.ToolCallDelta{Index: 0, ID: "call_a", Name: "spell_out_name"})
	acc.add(types.ToolCallDelta{Index: 0, Arguments: `{"name_to`})
	acc.add(types.ToolCallDelta{Index: 1, Arguments: `{"transcript"`})
	acc.add(types.ToolCallDelta{Index: 0, Arguments: `_spell": "Meier"}`})
	acc.add(types.ToolCallDelta{Index: 1, Arguments: `: "Hallo"}`})

	calls := acc.finalize()
	if len(calls) != 2 {
		t.Fatalf("finalize() returned %d calls, want 2", len(calls))
	}
	if calls[0].ID != "call_a" || calls[0].Function.Name != "spell_out_name" {
		t.Errorf("calls[0] = %+v, want call_a/spell_out_name", calls[0])
	}
	if calls[0].Function.Arguments != `{"name_to_spell": "Meier"}` {
		t.Errorf("calls[0].Arguments = %q", calls[0].Function.Arguments)
	}
	if calls[1].ID != "call_b" || calls[1].Function.Arguments != `{"transcript": "Hallo"}` {
		t.Errorf("calls[1] = %+v", calls[1])
	}
}

func TestAccumulator_IDAndNameSetOnce(t *testing.T) {
	acc := newAccumulator()
	acc.add(types.ToolCallDelta{Index: 0, ID: "call_1", Name: "spell_out_name"})
	acc.add(types.ToolCallDelta{Index: 0, ID: "", Name: ""})
	acc.add(types.ToolCallDelta{Index: 0, Arguments: "{}"})

	calls := acc.finalize()
	if calls[0].ID != "call_1" || calls[0].Function.Name != "spell_out_name" {
		t.Errorf("finalize() = %+v, want id/name preserved", calls[0])
	}
}

func TestAccumulator_Empty(t *testing.T) {
	acc := newAccumulator()
	if !acc.empty() {
		t.Error("fresh accumulator should be empty")
	}
	acc.add(types.ToolCallDelta{Index: 0, Arguments: "{"})
	if acc.empty() {
		t.Error("accumulator with a fragment should not be empty")
	}
}
