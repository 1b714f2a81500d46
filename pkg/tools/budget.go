package tools

import (
	"context"
	"fmt"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

// WithBudget wraps a tool so its text output never exceeds maxBytes. Output
// over the budget is cut at the limit with a marker noting how much was
// dropped. Results inside the budget pass through untouched.
//
// Apply this to tools whose output size is unbounded (web fetches, external
// tool servers) so a single call cannot flood the model context.
func WithBudget(t Tool, maxBytes int) Tool {
	if maxBytes <= 0 {
		return t
	}
	return &budgetTool{inner: t, maxBytes: maxBytes}
}

type budgetTool struct {
	inner    Tool
	maxBytes int
}

func (b *budgetTool) Definition() model.ToolDefinition { return b.inner.Definition() }

func (b *budgetTool) Execute(ctx context.Context, callID string, params map[string]any) (Result, error) {
	res, err := b.inner.Execute(ctx, callID, params)
	if err != nil {
		return res, err
	}
	if len(res.Text) <= b.maxBytes {
		return res, nil
	}
	dropped := len(res.Text) - b.maxBytes
	res.Text = res.Text[:b.maxBytes] +
		fmt.Sprintf("\n\n[output truncated: %d bytes over the %d byte budget were dropped]", dropped, b.maxBytes)
	return res, nil
}
