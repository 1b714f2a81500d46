package agent

import (
	"context"
	"fmt"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// Run appends the user input to the conversation and drives the loop until
// the model produces a plain text answer. It returns that answer.
func (a *Agent) Run(ctx context.Context, input string) (string, error) {
	a.appendMessage(model.UserMessage(input))
	return a.runLoop(ctx)
}

// Continue drives the loop from the existing history without new input.
// Used after a resume when the last step was interrupted mid-task.
func (a *Agent) Continue(ctx context.Context) (string, error) {
	return a.runLoop(ctx)
}

func (a *Agent) runLoop(ctx context.Context) (string, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return "", fmt.Errorf("agent: run already in progress")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	log := clog.FromContext(ctx).With("agent", a.cfg.Name)
	a.broadcast(Event{Type: EventAgentStart})

	var finalText string
	var loopErr error

	for iter := 0; ; iter++ {
		if err := ctx.Err(); err != nil {
			loopErr = err
			break
		}
		if iter >= a.cfg.MaxIters {
			log.With("max_iters", a.cfg.MaxIters).Warn("iteration limit reached")
			a.broadcast(Event{Type: EventIterationLimit})
			finalText = a.LastResponse()
			loopErr = ErrIterationLimit
			break
		}

		resp, err := a.generate(ctx)
		if err != nil {
			loopErr = fmt.Errorf("agent: model call: %w", err)
			break
		}

		a.appendMessage(resp.Message)
		a.broadcast(Event{Type: EventMessageEnd, Message: &resp.Message})

		if len(resp.Message.ToolCalls) == 0 {
			finalText = resp.Message.Content
			break
		}

		for _, call := range resp.Message.ToolCalls {
			result := a.executeToolCall(ctx, call)
			a.appendMessage(model.ToolResult(call, result.Text, result.IsError))
			if err := ctx.Err(); err != nil {
				loopErr = err
				break
			}
		}
		if loopErr != nil {
			break
		}
	}

	a.broadcast(Event{Type: EventAgentEnd, Err: loopErr})
	return finalText, loopErr
}

func (a *Agent) generate(ctx context.Context) (*model.Response, error) {
	a.mu.RLock()
	msgs := make([]model.Message, len(a.messages))
	copy(msgs, a.messages)
	cfg := a.cfg
	a.mu.RUnlock()

	if cfg.TransformContext != nil {
		msgs = cfg.TransformContext(msgs)
	}

	req := model.Request{
		Model:        cfg.Model,
		SystemPrompt: cfg.SystemPrompt,
		Messages:     msgs,
		Tools:        cfg.Tools.Definitions(),
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		APIKey:       cfg.APIKey,
	}
	return model.GenerateWithRetry(ctx, cfg.Provider, req, cfg.Retry)
}

func (a *Agent) executeToolCall(ctx context.Context, call model.ToolCall) tools.Result {
	log := clog.FromContext(ctx).With("agent", a.cfg.Name, "tool", call.Name)
	a.broadcast(Event{Type: EventToolStart, ToolCall: &call})

	result := a.runTool(ctx, call)
	if result.IsError {
		log.With("result", result.Text).Warn("tool call failed")
	}

	a.broadcast(Event{Type: EventToolEnd, ToolCall: &call, Result: &result})
	return result
}

func (a *Agent) runTool(ctx context.Context, call model.ToolCall) tools.Result {
	tool := a.cfg.Tools.Get(call.Name)
	if tool == nil {
		return tools.Result{
			Text:    fmt.Sprintf("error: unknown tool %q. Available tools: %v", call.Name, a.cfg.Tools.Names()),
			IsError: true,
		}
	}

	args, err := tools.ValidateAndCoerce(tool, call.Arguments)
	if err != nil {
		return tools.ErrorResult(err)
	}

	result, err := tool.Execute(ctx, call.ID, args)
	if err != nil {
		return tools.ErrorResult(err)
	}
	return result
}
