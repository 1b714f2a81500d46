// Package model defines the minimal chat-model client layer: flat message
// records, tool definitions, and the Provider interface implemented by the
// backends under providers/.
package model

import (
	"encoding/json"
	"time"
)

// Role identifies who produced a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// StopReason reports why a generation ended.
type StopReason string

const (
	StopEnd      StopReason = "end"
	StopLength   StopReason = "length"
	StopToolUse  StopReason = "tool_use"
	StopCanceled StopReason = "canceled"
)

// ToolCall is a tool invocation requested by the assistant.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Message is a single conversation record. The same flat shape serves as
// in-memory history, provider input, and the persisted snapshot format.
//
// Role decides which fields are meaningful: assistant messages may carry
// ToolCalls, tool messages carry ToolCallID/ToolName and optionally IsError.
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	IsError    bool       `json:"is_error,omitempty"`
	Timestamp  int64      `json:"timestamp,omitempty"`
}

// UserMessage builds a user message with the current timestamp.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text, Timestamp: time.Now().UnixMilli()}
}

// ToolResult builds a tool result message linked to a call.
func ToolResult(call ToolCall, content string, isErr bool) Message {
	return Message{
		Role:       RoleTool,
		Content:    content,
		ToolCallID: call.ID,
		ToolName:   call.Name,
		IsError:    isErr,
		Timestamp:  time.Now().UnixMilli(),
	}
}

// ToolDefinition describes a callable tool for the model.
type ToolDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema object
}

// Usage is token accounting for one generation.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Total returns input + output tokens.
func (u Usage) Total() int { return u.InputTokens + u.OutputTokens }

// Request is one generation request.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []ToolDefinition
	MaxTokens    int
	Temperature  *float64
	APIKey       string
}

// Response is the assistant's reply for one Request.
type Response struct {
	Message    Message
	StopReason StopReason
	Usage      Usage
}

// Text returns the assistant text of the response.
func (r *Response) Text() string { return r.Message.Content }
