// Package tools defines the Tool interface, the registry used to hand
// restricted tool subsets to workers, argument validation, and the external
// subprocess tool-server protocol.
package tools

import (
	"context"
	"encoding/json"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

// Result is what a tool hands back to the loop.
type Result struct {
	// Text is sent back to the model.
	Text string
	// IsError marks the result as a failure the model should react to.
	IsError bool
	// Details is arbitrary structured data for callers (not sent to the model).
	Details any
}

// Tool is implemented by everything a worker or the planner can call.
// Register it with a Registry; the agent loop calls Execute automatically.
type Tool interface {
	// Definition returns the schema handed to the model.
	Definition() model.ToolDefinition
	// Execute runs the tool. ctx carries the agent's cancel signal.
	Execute(ctx context.Context, callID string, params map[string]any) (Result, error)
}

func TextResult(text string) Result {
	return Result{Text: text}
}

func ErrorResult(err error) Result {
	return Result{Text: "error: " + err.Error(), IsError: true}
}

// JSONResult marshals v as indented JSON for the model.
func JSONResult(v any) Result {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return ErrorResult(err)
	}
	return Result{Text: string(b), Details: v}
}

// ---------------------------------------------------------------------------
// SimpleSchema is a helper for building JSON Schema objects inline.
// ---------------------------------------------------------------------------

type SimpleSchema struct {
	Properties map[string]Property `json:"properties"`
	Required   []string            `json:"required,omitempty"`
}

type Property struct {
	Type        string    `json:"type"`
	Description string    `json:"description,omitempty"`
	Enum        []any     `json:"enum,omitempty"`
	Items       *Property `json:"items,omitempty"`
}

// MustSchema renders s as JSON Schema bytes, panicking on marshal failure.
func MustSchema(s SimpleSchema) json.RawMessage {
	s2 := map[string]any{
		"type":       "object",
		"properties": s.Properties,
	}
	if len(s.Required) > 0 {
		s2["required"] = s.Required
	}
	b, err := json.Marshal(s2)
	if err != nil {
		panic("tools.MustSchema: " + err.Error())
	}
	return b
}

// Func adapts a function into a Tool. Useful for small tools that close over
// their dependencies instead of defining a struct.
type Func struct {
	Def model.ToolDefinition
	Fn  func(ctx context.Context, params map[string]any) (Result, error)
}

func (f *Func) Definition() model.ToolDefinition { return f.Def }

func (f *Func) Execute(ctx context.Context, callID string, params map[string]any) (Result, error) {
	return f.Fn(ctx, params)
}
