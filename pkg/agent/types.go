// Package agent implements the reasoning/acting loop shared by the planner
// and its workers: call the model, execute the tool calls it returns, feed
// the results back, repeat until a plain answer or the iteration cap.
package agent

import (
	"errors"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// EventType identifies agent lifecycle events.
type EventType string

const (
	// EventAgentStart fires when a run begins.
	EventAgentStart EventType = "agent_start"
	// EventMessageEnd fires after each assistant message is appended.
	EventMessageEnd EventType = "message_end"
	// EventToolStart fires before a tool call executes.
	EventToolStart EventType = "tool_start"
	// EventToolEnd fires after a tool call finishes.
	EventToolEnd EventType = "tool_end"
	// EventIterationLimit fires when the loop hits its iteration cap.
	EventIterationLimit EventType = "iteration_limit"
	// EventAgentEnd fires when a run finishes, successfully or not.
	EventAgentEnd EventType = "agent_end"
)

// Event is delivered synchronously to subscribers.
type Event struct {
	Type     EventType
	Message  *model.Message
	ToolCall *model.ToolCall
	Result   *tools.Result
	Err      error
}

// ErrIterationLimit is returned when a run exhausts MaxIters without
// producing a final answer.
var ErrIterationLimit = errors.New("agent: iteration limit reached")

// Config configures an Agent.
type Config struct {
	Name         string
	Provider     model.Provider
	Model        string
	APIKey       string
	SystemPrompt string
	Tools        *tools.Registry

	MaxTokens   int
	Temperature *float64

	// MaxIters caps model-call iterations per run. Defaults to 100.
	MaxIters int
	// Retry controls backoff for model calls. Zero value uses defaults.
	Retry model.RetryConfig

	// TransformContext, when set, may rewrite the outgoing message slice for
	// one model call. The stored history is never modified; the planner uses
	// this to inject its transient session-context message.
	TransformContext func(msgs []model.Message) []model.Message
}
