package builtin

import (
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

const defaultShellTimeout = 2 * time.Minute

// ShellTool runs a shell command in the workspace root.
type ShellTool struct {
	root string
}

func NewShellTool(root string) *ShellTool { return &ShellTool{root: root} }

func (t *ShellTool) Definition() model.ToolDefinition {
	return model.ToolDefinition{
		Name: "execute_shell",
		Description: fmt.Sprintf(
			"Run a shell command in the workspace root. Combined stdout/stderr is returned, "+
				"keeping the last %d lines or %s. Default timeout %s.",
			DefaultMaxLines, FormatSize(DefaultMaxBytes), defaultShellTimeout),
		Parameters: tools.MustSchema(tools.SimpleSchema{
			Properties: map[string]tools.Property{
				"command": {Type: "string", Description: "Shell command to run"},
				"timeout": {Type: "integer", Description: "Timeout in seconds (optional)"},
			},
			Required: []string{"command"},
		}),
	}
}

func (t *ShellTool) Execute(ctx context.Context, _ string, params map[string]any) (tools.Result, error) {
	command, _ := params["command"].(string)
	if command == "" {
		return tools.ErrorResult(fmt.Errorf("command is required")), nil
	}

	timeout := defaultShellTimeout
	if secs := intParam(params, "timeout"); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "bash", "-c", command)
	cmd.Dir = t.root
	out, err := cmd.CombinedOutput()

	tr := TruncateTail(string(out), DefaultMaxLines, DefaultMaxBytes)
	text := tr.Content
	if tr.Truncated {
		text = fmt.Sprintf("[showing last %d of %d lines]\n", tr.OutputLines, tr.TotalLines) + text
	}

	if ctx.Err() == context.DeadlineExceeded {
		return tools.Result{Text: text + "\n[command timed out]", IsError: true}, nil
	}
	if err != nil {
		return tools.Result{Text: fmt.Sprintf("%s\n[exit error: %v]", text, err), IsError: true}, nil
	}
	if text == "" {
		text = "(no output)"
	}
	return tools.TextResult(text), nil
}
