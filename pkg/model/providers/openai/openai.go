// Package openai implements model.Provider for the OpenAI chat completions
// API and any OpenAI-compatible endpoint reachable through a base URL.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Provider talks to a chat-completions endpoint.
type Provider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Provider. An empty baseURL selects api.openai.com.
func New(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *Provider) Name() string { return "openai" }

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type wireToolCall struct {
	ID       string `json:"id"`
	Type     string `json:"type"` // "function"
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type wireMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCalls  []wireToolCall `json:"tool_calls,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
}

type wireTool struct {
	Type     string `json:"type"` // "function"
	Function struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	MaxTokens   int           `json:"max_completion_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireResponse struct {
	Choices []struct {
		Message      wireMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func (p *Provider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	wreq := wireRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	}
	if req.SystemPrompt != "" {
		wreq.Messages = append(wreq.Messages, wireMessage{Role: "system", Content: req.SystemPrompt})
	}
	for _, m := range req.Messages {
		wm, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		wreq.Messages = append(wreq.Messages, wm)
	}
	for _, t := range req.Tools {
		var wt wireTool
		wt.Type = "function"
		wt.Function.Name = t.Name
		wt.Function.Description = t.Description
		wt.Function.Parameters = t.Parameters
		wreq.Tools = append(wreq.Tools, wt)
	}

	body, _ := json.Marshal(wreq)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if req.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.APIKey)
	}

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &model.APIError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var wresp wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wresp); err != nil {
		return nil, fmt.Errorf("openai: decode response: %w", err)
	}
	if len(wresp.Choices) == 0 {
		return nil, fmt.Errorf("openai: response has no choices")
	}
	choice := wresp.Choices[0]

	msg := model.Message{
		Role:      model.RoleAssistant,
		Content:   choice.Message.Content,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, tc := range choice.Message.ToolCalls {
		var args map[string]any
		if tc.Function.Arguments != "" {
			_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		}
		id := tc.ID
		if id == "" {
			id = "call_" + uuid.New().String()[:8]
		}
		msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: args,
		})
	}

	return &model.Response{
		Message:    msg,
		StopReason: mapStopReason(choice.FinishReason),
		Usage: model.Usage{
			InputTokens:  wresp.Usage.PromptTokens,
			OutputTokens: wresp.Usage.CompletionTokens,
		},
	}, nil
}

func convertMessage(m model.Message) (wireMessage, error) {
	switch m.Role {
	case model.RoleUser:
		return wireMessage{Role: "user", Content: m.Content}, nil

	case model.RoleAssistant:
		wm := wireMessage{Role: "assistant", Content: m.Content}
		for _, tc := range m.ToolCalls {
			args, _ := json.Marshal(tc.Arguments)
			var wtc wireToolCall
			wtc.ID = tc.ID
			wtc.Type = "function"
			wtc.Function.Name = tc.Name
			wtc.Function.Arguments = string(args)
			wm.ToolCalls = append(wm.ToolCalls, wtc)
		}
		return wm, nil

	case model.RoleTool:
		return wireMessage{Role: "tool", Content: m.Content, ToolCallID: m.ToolCallID}, nil
	}
	return wireMessage{}, fmt.Errorf("openai: unsupported message role: %q", m.Role)
}

func mapStopReason(s string) model.StopReason {
	switch s {
	case "stop":
		return model.StopEnd
	case "length":
		return model.StopLength
	case "tool_calls":
		return model.StopToolUse
	default:
		return model.StopReason(s)
	}
}
