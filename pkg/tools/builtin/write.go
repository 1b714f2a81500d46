package builtin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// WriteTool creates or overwrites a file, making parent directories as
// needed.
type WriteTool struct {
	root string
}

func NewWriteTool(root string) *WriteTool { return &WriteTool{root: root} }

func (t *WriteTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        "write_file",
		Description: "Write content to a file in the workspace. Creates the file if it doesn't exist, overwrites if it does. Parent directories are created automatically. Prefer writing large files incrementally with edit_file appends.",
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"path":    {Type: "string", Description: "Path to the file to write (relative to the workspace)"},
				"content": {Type: "string", Description: "Content to write to the file"},
			},
			Required: []string{"path", "content"},
		}),
	}
}

func (t *WriteTool) Execute(_ context.Context, _ string, params map[string]any) (tools.Result, error) {
	pathParam, _ := params["path"].(string)
	content, _ := params["content"].(string)

	absPath, err := resolvePath(pathParam, t.root)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot create directories for %s: %w", pathParam, err)), nil
	}
	if err := os.WriteFile(absPath, []byte(content), 0o644); err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot write %s: %w", pathParam, err)), nil
	}

	return tools.TextResult(fmt.Sprintf("Successfully wrote %d bytes to %s", len(content), pathParam)), nil
}
