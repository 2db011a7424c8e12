package echo

import (
	"context"
	"testing"

	"callassist/pkg/provider"
	"callassist/pkg/types"
)

func userTurn(text string) []types.Message {
	return []types.Message{{Role: types.RoleUser, Content: text}}
}

func TestChat_Fallback(t *testing.T) {
	p := New("")

	resp, err := p.Chat(context.Background(), userTurn("Hallo"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.Message.Content != "Hallo" {
		t.Errorf("Content = %q", resp.Message.Content)
	}
	if resp.FinishReason != "stop" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
}

func TestChat_ScriptedToolCalls(t *testing.T) {
	p := New("")
	p.Enqueue(
		provider.ChatChunk{ToolCalls: []types.ToolCallDelta{
			{Index: 1, ID: "call_b", Name: "detect_robot_call", Arguments: `{"transcript"`},
			{Index: 0, ID: "call_a", Name: "spell_out_name", Arguments: `{}`},
		}},
		provider.ChatChunk{ToolCalls: []types.ToolCallDelta{
			{Index: 1, Arguments: `: "Hallo"}`},
		}},
	)

	resp, err := p.Chat(context.Background(), userTurn("Hallo"))
	if err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	if resp.FinishReason != "tool_calls" {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
	if len(resp.Message.ToolCalls) != 2 {
		t.Fatalf("got %d tool calls, want 2", len(resp.Message.ToolCalls))
	}
	// Merged by index, ascending, with argument fragments concatenated.
	if resp.Message.ToolCalls[0].ID != "call_a" {
		t.Errorf("ToolCalls[0] = %+v", resp.Message.ToolCalls[0])
	}
	if resp.Message.ToolCalls[1].Function.Arguments != `{"transcript": "Hallo"}` {
		t.Errorf("ToolCalls[1].Arguments = %q", resp.Message.ToolCalls[1].Function.Arguments)
	}
}

func TestStream_CancelledConsumer(t *testing.T) {
	p := New("")
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := p.Stream(ctx, userTurn("eins zwei drei vier"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	// Read one chunk, abandon the rest. Every producer send selects on
	// ctx.Done, so the channel must still close.
	<-ch
	cancel()
	for range ch {
	}
}

func TestRequests_RecordsEveryCall(t *testing.T) {
	p := New("")
	if _, err := p.Chat(context.Background(), userTurn("a")); err != nil {
		t.Fatalf("Chat() error = %v", err)
	}
	ch, err := p.Stream(context.Background(), userTurn("b"))
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}
	for range ch {
	}

	reqs := p.Requests()
	if len(reqs) != 2 {
		t.Fatalf("recorded %d requests, want 2", len(reqs))
	}
	if reqs[0][0].Content != "a" || reqs[1][0].Content != "b" {
		t.Errorf("request logs = %v", reqs)
	}
}
