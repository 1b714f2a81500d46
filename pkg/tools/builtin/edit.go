package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// EditTool replaces an exact text fragment in a file, or appends to it.
type EditTool struct {
	root string
}

func NewEditTool(root string) *EditTool { return &EditTool{root: root} }

func (t *EditTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "edit_file",
		Description: "Edit a file by replacing an exact text fragment with new text. " +
			"old_text must appear exactly once in the file. " +
			"With an empty old_text the new text is appended to the end of the file.",
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"path":     {Type: "string", Description: "Path to the file to edit (relative to the workspace)"},
				"old_text": {Type: "string", Description: "Exact text to replace; empty to append"},
				"new_text": {Type: "string", Description: "Replacement text"},
			},
			Required: []string{"path", "new_text"},
		}),
	}
}

func (t *EditTool) Execute(_ context.Context, _ string, params map[string]any) (tools.Result, error) {
	pathParam, _ := params["path"].(string)
	oldText, _ := params["old_text"].(string)
	newText, _ := params["new_text"].(string)

	absPath, err := resolvePath(pathParam, t.root)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot read %s: %w", pathParam, err)), nil
	}
	content := normalizeToLF(string(raw))

	var updated string
	if oldText == "" {
		updated = content + newText
	} else {
		oldText = normalizeToLF(oldText)
		switch n := strings.Count(content, oldText); n {
		case 0:
			return tools.ErrorResult(fmt.Errorf("old_text not found in %s", pathParam)), nil
		case 1:
			updated = strings.Replace(content, oldText, normalizeToLF(newText), 1)
		default:
			return tools.ErrorResult(fmt.Errorf("old_text appears %d times in %s; provide a unique fragment", n, pathParam)), nil
		}
	}

	if err := os.WriteFile(absPath, []byte(updated), 0o644); err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot write %s: %w", pathParam, err)), nil
	}
	return tools.TextResult(fmt.Sprintf("Edited %s (%d bytes)", pathParam, len(updated))), nil
}
