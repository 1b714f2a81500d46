package worker

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Report is a worker's structured response for one subtask execution.
type Report struct {
	Status         string            `json:"status"` // done | in_progress | blocked
	Summary        string            `json:"summary"`
	GeneratedFiles map[string]string `json:"generated_files,omitempty"`
}

// Done reports whether the worker considers its subtask finished.
func (r *Report) Done() bool { return r.Status == "done" }

// ParseReport extracts the JSON report from a worker's final message.
// Models wrap JSON in markdown code fences more often than not, so the
// fenced block is tried first, then the raw text. When no JSON can be
// found the whole text becomes an in_progress summary rather than an
// error, so the planner still gets something actionable.
func ParseReport(text string) *Report {
	r, err := Extract[Report](text)
	if err != nil || r.Status == "" {
		return &Report{Status: "in_progress", Summary: strings.TrimSpace(text)}
	}
	return &r
}

// ExtractJSON pulls JSON content out of a markdown response. It prefers a
// ```json fenced block, falls back to stripping bare ``` fences, and
// otherwise returns the trimmed input.
func ExtractJSON(text string) string {
	lines := strings.Split(text, "\n")
	var jsonLines []string
	inBlock := false

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```json") {
			inBlock = true
			continue
		}
		if inBlock && strings.HasPrefix(trimmed, "```") {
			break
		}
		if inBlock {
			jsonLines = append(jsonLines, line)
		}
	}
	if len(jsonLines) > 0 {
		return strings.Join(jsonLines, "\n")
	}

	trimmed := strings.TrimSpace(text)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// Extract unmarshals the JSON content of a markdown response into T.
func Extract[T any](text string) (T, error) {
	var out T
	if err := json.Unmarshal([]byte(ExtractJSON(text)), &out); err != nil {
		return out, fmt.Errorf("worker: parse response: %w", err)
	}
	return out, nil
}
