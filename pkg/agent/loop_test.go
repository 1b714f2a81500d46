package agent_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/agent"
	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// sequenceProvider returns its responses in order, repeating the last one.
type sequenceProvider struct {
	calls     int
	responses []*model.Response
	requests  []model.Request
}

func (p *sequenceProvider) Name() string { return "sequence" }

func (p *sequenceProvider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	p.requests = append(p.requests, req)
	i := p.calls
	if i >= len(p.responses) {
		i = len(p.responses) - 1
	}
	p.calls++
	return p.responses[i], nil
}

func textResponse(text string) *model.Response {
	return &model.Response{
		Message:    model.Message{Role: model.RoleAssistant, Content: text},
		StopReason: model.StopEnd,
	}
}

func toolResponse(calls ...model.ToolCall) *model.Response {
	return &model.Response{
		Message:    model.Message{Role: model.RoleAssistant, ToolCalls: calls},
		StopReason: model.StopToolUse,
	}
}

func echoTool() tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name:        "echo",
			Description: "echo input back",
			Parameters: tools.MustSchema(tools.SimpleSchema{
				Properties: map[string]tools.Property{"text": {Type: "string"}},
				Required:   []string{"text"},
			}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			return tools.TextResult(fmt.Sprintf("echo: %v", params["text"])), nil
		},
	}
}

func newAgent(t *testing.T, p model.Provider, reg *tools.Registry, maxIters int) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Config{
		Name:     "test",
		Provider: p,
		Model:    "test-model",
		Tools:    reg,
		MaxIters: maxIters,
	})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

func TestRunPlainAnswer(t *testing.T) {
	p := &sequenceProvider{responses: []*model.Response{textResponse("the answer")}}
	a := newAgent(t, p, nil, 10)

	got, err := a.Run(context.Background(), "question?")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "the answer" {
		t.Errorf("answer = %q", got)
	}
	msgs := a.Messages()
	if len(msgs) != 2 || msgs[0].Role != model.RoleUser || msgs[1].Role != model.RoleAssistant {
		t.Errorf("history = %+v", msgs)
	}
}

func TestRunExecutesToolCalls(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(echoTool())

	call := model.ToolCall{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "hi"}}
	p := &sequenceProvider{responses: []*model.Response{
		toolResponse(call),
		textResponse("done"),
	}}
	a := newAgent(t, p, reg, 10)

	got, err := a.Run(context.Background(), "use echo")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "done" {
		t.Errorf("answer = %q", got)
	}

	msgs := a.Messages()
	// user, assistant(tool call), tool result, assistant(text)
	if len(msgs) != 4 {
		t.Fatalf("history length = %d", len(msgs))
	}
	if msgs[2].Role != model.RoleTool || msgs[2].Content != "echo: hi" || msgs[2].ToolCallID != "c1" {
		t.Errorf("tool result = %+v", msgs[2])
	}
}

func TestRunUnknownToolFeedsErrorBack(t *testing.T) {
	p := &sequenceProvider{responses: []*model.Response{
		toolResponse(model.ToolCall{ID: "c1", Name: "no_such_tool"}),
		textResponse("recovered"),
	}}
	a := newAgent(t, p, nil, 10)

	got, err := a.Run(context.Background(), "go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got != "recovered" {
		t.Errorf("answer = %q", got)
	}
	msgs := a.Messages()
	if !msgs[2].IsError {
		t.Errorf("tool result should be an error: %+v", msgs[2])
	}
}

func TestRunIterationLimit(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(echoTool())
	p := &sequenceProvider{responses: []*model.Response{
		toolResponse(model.ToolCall{ID: "c", Name: "echo", Arguments: map[string]any{"text": "again"}}),
	}}
	a := newAgent(t, p, reg, 3)

	var sawLimit bool
	unsub := a.Subscribe(func(ev agent.Event) {
		if ev.Type == agent.EventIterationLimit {
			sawLimit = true
		}
	})
	defer unsub()

	_, err := a.Run(context.Background(), "loop forever")
	if !errors.Is(err, agent.ErrIterationLimit) {
		t.Fatalf("err = %v, want ErrIterationLimit", err)
	}
	if !sawLimit {
		t.Error("no iteration_limit event")
	}
	if p.calls != 3 {
		t.Errorf("model calls = %d, want 3", p.calls)
	}
}

func TestEventSequence(t *testing.T) {
	reg := tools.NewRegistry()
	reg.Register(echoTool())
	p := &sequenceProvider{responses: []*model.Response{
		toolResponse(model.ToolCall{ID: "c1", Name: "echo", Arguments: map[string]any{"text": "x"}}),
		textResponse("fin"),
	}}
	a := newAgent(t, p, reg, 10)

	var got []agent.EventType
	a.Subscribe(func(ev agent.Event) { got = append(got, ev.Type) })

	if _, err := a.Run(context.Background(), "go"); err != nil {
		t.Fatal(err)
	}

	want := []agent.EventType{
		agent.EventAgentStart,
		agent.EventMessageEnd,
		agent.EventToolStart,
		agent.EventToolEnd,
		agent.EventMessageEnd,
		agent.EventAgentEnd,
	}
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("events = %v, want %v", got, want)
		}
	}
}

func TestTransformContextLeavesHistoryAlone(t *testing.T) {
	p := &sequenceProvider{responses: []*model.Response{textResponse("ok")}}
	a := newAgent(t, p, nil, 10)
	a.SetTransformContext(func(msgs []model.Message) []model.Message {
		return append(msgs, model.UserMessage("injected context"))
	})

	if _, err := a.Run(context.Background(), "real input"); err != nil {
		t.Fatal(err)
	}

	sent := p.requests[0].Messages
	if sent[len(sent)-1].Content != "injected context" {
		t.Errorf("injected message missing from request: %+v", sent)
	}
	for _, m := range a.Messages() {
		if m.Content == "injected context" {
			t.Error("transient message leaked into stored history")
		}
	}
}

func TestContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := &sequenceProvider{responses: []*model.Response{textResponse("never")}}
	a := newAgent(t, p, nil, 10)
	if _, err := a.Run(ctx, "go"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestSetMessagesForResume(t *testing.T) {
	p := &sequenceProvider{responses: []*model.Response{textResponse("resumed")}}
	a := newAgent(t, p, nil, 10)
	a.SetMessages([]model.Message{
		model.UserMessage("old input"),
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "c1", Name: "echo"}}},
		model.ToolResult(model.ToolCall{ID: "c1", Name: "echo"}, "echo: old", false),
	})

	got, err := a.Continue(context.Background())
	if err != nil {
		t.Fatalf("Continue: %v", err)
	}
	if got != "resumed" {
		t.Errorf("answer = %q", got)
	}
	if len(p.requests[0].Messages) != 3 {
		t.Errorf("restored history not sent: %d messages", len(p.requests[0].Messages))
	}
}
