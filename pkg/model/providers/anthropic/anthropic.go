// Package anthropic implements model.Provider for the Anthropic Messages API.
package anthropic

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

const defaultBaseURL = "https://api.anthropic.com/v1"
const apiVersion = "2023-06-01"

// Provider talks to the Anthropic Messages API.
type Provider struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Provider. An empty baseURL selects api.anthropic.com.
func New(baseURL string) *Provider {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Provider{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Minute},
	}
}

func (p *Provider) Name() string { return "anthropic" }

// ---------------------------------------------------------------------------
// Wire types
// ---------------------------------------------------------------------------

type wireContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	// Tool use (assistant)
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`
	// Tool result (user)
	ToolUseID string        `json:"tool_use_id,omitempty"`
	Content   []wireContent `json:"content,omitempty"`
	IsError   bool          `json:"is_error,omitempty"`
}

type wireMessage struct {
	Role    string        `json:"role"`
	Content []wireContent `json:"content"`
}

type wireTool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"input_schema"`
}

type wireRequest struct {
	Model       string        `json:"model"`
	MaxTokens   int           `json:"max_tokens"`
	System      string        `json:"system,omitempty"`
	Messages    []wireMessage `json:"messages"`
	Tools       []wireTool    `json:"tools,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type wireResponse struct {
	Content    []wireContent `json:"content"`
	StopReason string        `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// ---------------------------------------------------------------------------
// Generate
// ---------------------------------------------------------------------------

func (p *Provider) Generate(ctx context.Context, req model.Request) (*model.Response, error) {
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 8192
	}

	wreq := wireRequest{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Temperature: req.Temperature,
	}
	for _, m := range req.Messages {
		wm, err := convertMessage(m)
		if err != nil {
			return nil, err
		}
		wreq.Messages = append(wreq.Messages, wm)
	}
	for _, t := range req.Tools {
		wreq.Tools = append(wreq.Tools, wireTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	body, _ := json.Marshal(wreq)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/messages", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", req.APIKey)
	httpReq.Header.Set("anthropic-version", apiVersion)

	resp, err := p.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("anthropic: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, &model.APIError{Provider: "anthropic", StatusCode: resp.StatusCode, Body: string(b)}
	}

	var wresp wireResponse
	if err := json.NewDecoder(resp.Body).Decode(&wresp); err != nil {
		return nil, fmt.Errorf("anthropic: decode response: %w", err)
	}

	msg := model.Message{Role: model.RoleAssistant, Timestamp: time.Now().UnixMilli()}
	for _, c := range wresp.Content {
		switch c.Type {
		case "text":
			if msg.Content != "" {
				msg.Content += "\n"
			}
			msg.Content += c.Text
		case "tool_use":
			id := c.ID
			if id == "" {
				id = "call_" + uuid.New().String()[:8]
			}
			msg.ToolCalls = append(msg.ToolCalls, model.ToolCall{
				ID:        id,
				Name:      c.Name,
				Arguments: c.Input,
			})
		}
	}

	return &model.Response{
		Message:    msg,
		StopReason: mapStopReason(wresp.StopReason),
		Usage: model.Usage{
			InputTokens:  wresp.Usage.InputTokens,
			OutputTokens: wresp.Usage.OutputTokens,
		},
	}, nil
}

func convertMessage(m model.Message) (wireMessage, error) {
	switch m.Role {
	case model.RoleUser:
		return wireMessage{
			Role:    "user",
			Content: []wireContent{{Type: "text", Text: m.Content}},
		}, nil

	case model.RoleAssistant:
		var content []wireContent
		if m.Content != "" {
			content = append(content, wireContent{Type: "text", Text: m.Content})
		}
		for _, tc := range m.ToolCalls {
			content = append(content, wireContent{
				Type:  "tool_use",
				ID:    tc.ID,
				Name:  tc.Name,
				Input: tc.Arguments,
			})
		}
		return wireMessage{Role: "assistant", Content: content}, nil

	case model.RoleTool:
		return wireMessage{
			Role: "user",
			Content: []wireContent{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   []wireContent{{Type: "text", Text: m.Content}},
				IsError:   m.IsError,
			}},
		}, nil
	}
	return wireMessage{}, fmt.Errorf("anthropic: unsupported message role: %q", m.Role)
}

func mapStopReason(s string) model.StopReason {
	switch s {
	case "end_turn":
		return model.StopEnd
	case "max_tokens":
		return model.StopLength
	case "tool_use":
		return model.StopToolUse
	default:
		return model.StopReason(s)
	}
}
