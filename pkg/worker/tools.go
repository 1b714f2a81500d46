package worker

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/plan"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// RegisterTools adds the worker coordination tools to the registry. They
// operate on the manager's pool and fold worker results into the notebook.
func RegisterTools(reg *tools.Registry, m *Manager, nb *plan.Notebook) {
	reg.RegisterOrReplace(showPoolTool(m))
	reg.RegisterOrReplace(createTool(m))
	reg.RegisterOrReplace(executeTool(m, nb))
}

// ToolNames lists the worker coordination tool names.
func ToolNames() []string {
	return []string{"show_current_worker_pool", "create_worker", "execute_worker"}
}

func showPoolTool(m *Manager) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name:        "show_current_worker_pool",
			Description: "List the workers created so far with their descriptions and tools.",
			Parameters:  []byte(`{"type": "object", "properties": {}}`),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			infos := m.Infos()
			if len(infos) == 0 {
				return tools.TextResult("The worker pool is empty. Use create_worker to build one."), nil
			}
			return tools.JSONResult(infos), nil
		},
	}
}

func createTool(m *Manager) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name: "create_worker",
			Description: "Create a worker agent for a kind of subtask. The worker gets the " +
				"requested tools plus the baseline file tools, and a system prompt built " +
				"from the given role description. Names that collide get a version suffix.",
			Parameters: tools.MustSchema(tools.SimpleSchema{
				Properties: map[string]tools.Property{
					"name":        {Type: "string", Description: "Short snake_case worker name, e.g. web_researcher"},
					"description": {Type: "string", Description: "What kinds of subtasks this worker handles"},
					"role_prompt": {Type: "string", Description: "The worker's role and working style, as a system prompt paragraph"},
					"tools": {
						Type:        "array",
						Description: "Names of tools this worker needs, from the available tool catalogue",
						Items:       &tools.Property{Type: "string"},
					},
				},
				Required: []string{"name", "description", "role_prompt"},
			}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			name, _ := params["name"].(string)
			if name == "" {
				return tools.ErrorResult(fmt.Errorf("name is required")), nil
			}
			description, _ := params["description"].(string)
			rolePrompt, _ := params["role_prompt"].(string)

			var toolNames []string
			if raw, ok := params["tools"].([]any); ok {
				for _, v := range raw {
					if s, ok := v.(string); ok {
						toolNames = append(toolNames, s)
					}
				}
			}

			w, err := m.Create(ctx, name, description, rolePrompt, toolNames)
			if err != nil {
				return tools.ErrorResult(err), nil
			}
			return tools.JSONResult(w.Info), nil
		},
	}
}

func executeTool(m *Manager, nb *plan.Notebook) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name: "execute_worker",
			Description: "Run a worker on a roadmap subtask with a detailed instruction. " +
				"Returns the worker's structured report. The instruction must contain " +
				"everything the worker needs, including a markdown checklist of expected outputs.",
			Parameters: tools.MustSchema(tools.SimpleSchema{
				Properties: map[string]tools.Property{
					"subtask_index": {Type: "integer", Description: "Zero-based roadmap index of the subtask"},
					"worker_name":   {Type: "string", Description: "Name of the worker to run"},
					"instruction":   {Type: "string", Description: "Detailed instruction with an expected-output checklist"},
				},
				Required: []string{"subtask_index", "worker_name", "instruction"},
			}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			workerName, _ := params["worker_name"].(string)
			instruction, _ := params["instruction"].(string)
			index := toInt(params["subtask_index"])

			w := m.Get(workerName)
			if w == nil {
				// Hand the current pool back so the model can pick a real one.
				return tools.JSONResult(map[string]any{
					"error":        fmt.Sprintf("no worker named %q", workerName),
					"current_pool": m.Infos(),
				}), nil
			}

			subtask, err := nb.Roadmap.At(index)
			if err != nil {
				return tools.ErrorResult(err), nil
			}
			if subtask.Status == plan.StatusDone {
				return tools.ErrorResult(fmt.Errorf("subtask %q is already done", subtask.Name)), nil
			}
			if err := subtask.SetStatus(plan.StatusInProgress); err != nil {
				return tools.ErrorResult(err), nil
			}

			answer, runErr := w.Agent.Run(ctx, instruction)
			if runErr != nil && answer == "" {
				return tools.ErrorResult(fmt.Errorf("worker %s: %w", workerName, runErr)), nil
			}

			report := ParseReport(answer)
			report.GeneratedFiles = verifyFiles(ctx, m.WorkDir(), report.GeneratedFiles)
			for path, desc := range report.GeneratedFiles {
				nb.RecordFile(path, desc)
			}

			subtask.Workers = append(subtask.Workers, w.Info)
			if report.Done() {
				if err := subtask.SetStatus(plan.StatusDone); err != nil {
					return tools.ErrorResult(err), nil
				}
			}
			return tools.JSONResult(report), nil
		},
	}
}

// verifyFiles keeps only claimed files that actually exist under workDir.
// Workers occasionally report files they never wrote; those claims are
// dropped rather than recorded in the notebook.
func verifyFiles(ctx context.Context, workDir string, claimed map[string]string) map[string]string {
	if len(claimed) == 0 {
		return nil
	}
	log := clog.FromContext(ctx)
	verified := make(map[string]string, len(claimed))
	for path, desc := range claimed {
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(workDir, path)
		}
		if _, err := os.Stat(abs); err != nil {
			log.With("path", path).Warn("worker claimed a file that does not exist, dropping")
			continue
		}
		verified[path] = desc
	}
	return verified
}

func toInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int64:
		return int(n)
	case int:
		return n
	}
	return 0
}
