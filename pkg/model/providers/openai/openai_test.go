package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/model/providers/openai"
)

func TestGenerateText(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer sk-test" {
			t.Errorf("auth = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "hello there"},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 12, "completion_tokens": 3},
		})
	}))
	defer srv.Close()

	p := openai.New(srv.URL)
	resp, err := p.Generate(context.Background(), model.Request{
		Model:        "gpt-4-turbo",
		SystemPrompt: "be brief",
		Messages:     []model.Message{model.UserMessage("hi")},
		APIKey:       "sk-test",
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.Text() != "hello there" {
		t.Errorf("text = %q", resp.Text())
	}
	if resp.StopReason != model.StopEnd {
		t.Errorf("stop = %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 12 || resp.Usage.OutputTokens != 3 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	msgs := gotBody["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("request messages = %d, want system + user", len(msgs))
	}
	if role := msgs[0].(map[string]any)["role"]; role != "system" {
		t.Errorf("first message role = %v", role)
	}
}

func TestGenerateToolCalls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message": map[string]any{
					"role": "assistant",
					"tool_calls": []map[string]any{{
						"id":   "call_1",
						"type": "function",
						"function": map[string]any{
							"name":      "read_file",
							"arguments": `{"path":"notes.md"}`,
						},
					}},
				},
				"finish_reason": "tool_calls",
			}},
		})
	}))
	defer srv.Close()

	p := openai.New(srv.URL)
	resp, err := p.Generate(context.Background(), model.Request{
		Model:    "gpt-4-turbo",
		Messages: []model.Message{model.UserMessage("read the notes")},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if resp.StopReason != model.StopToolUse {
		t.Errorf("stop = %q", resp.StopReason)
	}
	if len(resp.Message.ToolCalls) != 1 {
		t.Fatalf("tool calls = %d", len(resp.Message.ToolCalls))
	}
	tc := resp.Message.ToolCalls[0]
	if tc.Name != "read_file" || tc.Arguments["path"] != "notes.md" {
		t.Errorf("tool call = %+v", tc)
	}
}

func TestGenerateAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer srv.Close()

	p := openai.New(srv.URL)
	_, err := p.Generate(context.Background(), model.Request{Model: "gpt-4-turbo"})
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.StatusCode != 429 || !apiErr.Retryable() {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestToolResultRoundTrip(t *testing.T) {
	var gotBody struct {
		Messages []map[string]any `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{{
				"message":       map[string]any{"role": "assistant", "content": "done"},
				"finish_reason": "stop",
			}},
		})
	}))
	defer srv.Close()

	call := model.ToolCall{ID: "call_9", Name: "write_file", Arguments: map[string]any{"path": "a.txt"}}
	p := openai.New(srv.URL)
	_, err := p.Generate(context.Background(), model.Request{
		Model: "gpt-4-turbo",
		Messages: []model.Message{
			model.UserMessage("write it"),
			{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{call}},
			model.ToolResult(call, "ok", false),
		},
	})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	last := gotBody.Messages[len(gotBody.Messages)-1]
	if last["role"] != "tool" || last["tool_call_id"] != "call_9" {
		t.Errorf("last wire message = %v", last)
	}
}
