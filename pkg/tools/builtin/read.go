package builtin

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// ReadTool reads text files with pagination and truncation.
type ReadTool struct {
	root string
}

func NewReadTool(root string) *ReadTool { return &ReadTool{root: root} }

func (t *ReadTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "read_file",
		Description: fmt.Sprintf(
			"Read the contents of a text file. Output is truncated to %d lines or %s, "+
				"whichever is hit first. Use offset/limit for large files.",
			DefaultMaxLines, FormatSize(DefaultMaxBytes),
		),
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"path":   {Type: "string", Description: "Path to the file to read (relative to the workspace)"},
				"offset": {Type: "integer", Description: "Line number to start reading from (1-indexed)"},
				"limit":  {Type: "integer", Description: "Maximum number of lines to read"},
			},
			Required: []string{"path"},
		}),
	}
}

func (t *ReadTool) Execute(_ context.Context, _ string, params map[string]any) (tools.Result, error) {
	pathParam, _ := params["path"].(string)
	absPath, err := resolvePath(pathParam, t.root)
	if err != nil {
		return tools.ErrorResult(err), nil
	}

	raw, err := os.ReadFile(absPath)
	if err != nil {
		return tools.ErrorResult(fmt.Errorf("cannot read %s: %w", pathParam, err)), nil
	}

	allLines := strings.Split(normalizeToLF(string(raw)), "\n")
	totalLines := len(allLines)

	startLine := 0
	if offset := intParam(params, "offset"); offset > 0 {
		startLine = offset - 1
	}
	if startLine >= totalLines {
		return tools.ErrorResult(fmt.Errorf("offset %d is beyond end of file (%d lines total)", startLine+1, totalLines)), nil
	}

	endLine := totalLines
	if limit := intParam(params, "limit"); limit > 0 && startLine+limit < totalLines {
		endLine = startLine + limit
	}

	tr := TruncateHead(strings.Join(allLines[startLine:endLine], "\n"), DefaultMaxLines, DefaultMaxBytes)

	out := tr.Content
	shownEnd := startLine + tr.OutputLines
	if tr.Truncated || shownEnd < totalLines {
		out += fmt.Sprintf("\n\n[Showing lines %d-%d of %d. Use offset=%d to continue.]",
			startLine+1, shownEnd, totalLines, shownEnd+1)
	}
	return tools.TextResult(out), nil
}

func intParam(params map[string]any, key string) int {
	switch n := params[key].(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	}
	return 0
}
