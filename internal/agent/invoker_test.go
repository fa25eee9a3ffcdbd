package agent

import (
	"context"
	"errors"
	"testing"
)

func TestInvokeWithoutToolCall(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*GenerateResponse{{Text: "Hi ||| 50 ||| Ok"}}}
	inv := NewInvoker(gen, &fakeFacts{}, InvokerOptions{}, nil)

	got, err := inv.Invoke(context.Background(), BuildPrompt(testProfile, nil, "hello"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got.Text != "Hi ||| 50 ||| Ok" || len(got.ToolsUsed) != 0 {
		t.Fatalf("unexpected invocation: %+v", got)
	}
	calls := gen.calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if len(calls[0].Tools) != 1 || calls[0].Tools[0].Name != FactLookupToolName {
		t.Errorf("first call must declare the fact lookup tool: %+v", calls[0].Tools)
	}
}

func TestInvokeSingleToolRoundTrip(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*GenerateResponse{
		{ToolCalls: []ToolCall{{ID: "c1", Name: FactLookupToolName, Args: map[string]any{"topic": " pricing "}}}},
		{Text: "Standard is $12. ||| 60 ||| Sign me up", ToolCalls: []ToolCall{{Name: FactLookupToolName}}},
	}}
	facts := &fakeFacts{text: "Business Standard: $12"}
	inv := NewInvoker(gen, facts, InvokerOptions{}, nil)

	msgs := BuildPrompt(testProfile, nil, "How much?")
	got, err := inv.Invoke(context.Background(), msgs)
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got.Text != "Standard is $12. ||| 60 ||| Sign me up" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if len(got.ToolsUsed) != 1 || got.ToolsUsed[0] != FactLookupToolName {
		t.Errorf("unexpected tools used %v", got.ToolsUsed)
	}
	if len(facts.topics) != 1 || facts.topics[0] != "pricing" {
		t.Errorf("expected exactly one lookup for pricing, got %v", facts.topics)
	}

	calls := gen.calls()
	if len(calls) != 2 {
		t.Fatalf("expected exactly 2 calls, got %d", len(calls))
	}
	second := calls[1]
	if len(second.Tools) != 0 {
		t.Error("second call must not declare tools")
	}
	if len(second.Messages) != len(msgs)+2 {
		t.Fatalf("expected tool call and result appended, got %d messages", len(second.Messages))
	}
	toolTurn := second.Messages[len(second.Messages)-1]
	if toolTurn.Role != RoleTool || toolTurn.ToolResult == nil || toolTurn.ToolResult.Output != "Business Standard: $12" {
		t.Errorf("unexpected tool turn %+v", toolTurn)
	}
	if toolTurn.ToolResult.CallID != "c1" {
		t.Errorf("tool result must carry the call id, got %q", toolTurn.ToolResult.CallID)
	}
	if len(msgs) != 2 {
		t.Error("Invoke must not modify the caller's messages")
	}
}

func TestInvokeUnknownToolStillAnswers(t *testing.T) {
	t.Parallel()

	gen := &fakeGenerator{responses: []*GenerateResponse{
		{ToolCalls: []ToolCall{{Name: "delete_everything"}}},
		{Text: "Sorry ||| 40"},
	}}
	facts := &fakeFacts{}
	inv := NewInvoker(gen, facts, InvokerOptions{}, nil)

	got, err := inv.Invoke(context.Background(), BuildPrompt(testProfile, nil, "hi"))
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}
	if got.Text != "Sorry ||| 40" {
		t.Errorf("unexpected text %q", got.Text)
	}
	if len(facts.topics) != 0 {
		t.Error("unknown tool must not hit the knowledge source")
	}
}

func TestInvokePropagatesTransportErrors(t *testing.T) {
	t.Parallel()

	boom := errors.New("quota exceeded")
	gen := &fakeGenerator{
		responses: []*GenerateResponse{{ToolCalls: []ToolCall{{Name: FactLookupToolName}}}},
		errs:      []error{nil, boom},
	}
	inv := NewInvoker(gen, &fakeFacts{}, InvokerOptions{}, nil)

	_, err := inv.Invoke(context.Background(), BuildPrompt(testProfile, nil, "hi"))
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped quota error, got %v", err)
	}
}
