package builtin

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// ListTool lists a directory, directories first.
type ListTool struct {
	root string
}

func NewListTool(root string) *ListTool { return &ListTool{root: root} }

func (t *ListTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name:        "list_directory",
		Description: "List the entries of a directory in the workspace. Directories are suffixed with a slash.",
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"path": {Type: "string", Description: "Directory to list (relative to the workspace; \".\" for the workspace root)"},
			},
			Required: []string{"path"},
		}),
	}
}

func (t *ListTool) Execute(_ context.Context, _ string, params map[string]any) (tools.Result, error) {
	pathParam, _ := params["path"].(string)
	absPath, err := resolvePath(pathParam, t.root)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	entries, err := os.ReadDir(absPath)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot list %s: %w", pathParam, err)), nil
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].IsDir() != entries[j].IsDir() {
			return entries[i].IsDir()
		}
		return entries[i].Name() < entries[j].Name()
	})

	var b strings.Builder
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() {
			name += "/"
		}
		b.WriteString(name)
		b.WriteByte('\n')
	}
	if b.Len() == 0 {
		return tools.TextResult("(empty directory)"), nil
	}
	return tools.TextResult(strings.TrimRight(b.String(), "\n")), nil
}
