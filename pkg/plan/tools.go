package plan

import (
	"context"
	"fmt"
	"strings"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// RegisterTools adds the roadmap tools to the registry, all operating on nb.
func RegisterTools(reg *tools.Registry, nb *Notebook) {
	reg.RegisterOrReplace(decomposeTool(nb))
	reg.RegisterOrReplace(reviseTool(nb))
	reg.RegisterOrReplace(nextUnfinishedTool(nb))
	reg.RegisterOrReplace(preferenceTool(nb))
}

// ToolNames lists the roadmap tool names.
func ToolNames() []string {
	return []string{
		"decompose_task_and_build_roadmap",
		"revise_roadmap",
		"get_next_unfinished_subtask_from_roadmap",
		"record_user_preference",
	}
}

func subtaskFromParams(m map[string]any) (*Subtask, error) {
	name, _ := m["name"].(string)
	if name == "" {
		return nil, fmt.Errorf("subtask name is required")
	}
	desc, _ := m["description"].(string)
	outcome, _ := m["expected_outcome"].(string)
	return &Subtask{
		Name:            name,
		Description:     desc,
		ExpectedOutcome: outcome,
		Status:          StatusPending,
	}, nil
}

func decomposeTool(nb *Notebook) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name: "decompose_task_and_build_roadmap",
			Description: "Decompose the current task into an ordered roadmap of subtasks. " +
				"Each subtask needs a name, a description of its input, and its expected outcome. " +
				"Replaces any existing roadmap, so call it once per task and use revise_roadmap for adjustments.",
			Parameters: []byte(`{
  "type": "object",
  "properties": {
    "analysis": {
      "type": "string",
      "description": "Your analysis of the task and why this decomposition fits it"
    },
    "subtasks": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "description": {"type": "string", "description": "What this subtask consumes and must do"},
          "expected_outcome": {"type": "string", "description": "What this subtask must produce"}
        },
        "required": ["name", "description", "expected_outcome"]
      }
    }
  },
  "required": ["analysis", "subtasks"]
}`),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			rawSubtasks, _ := params["subtasks"].([]any)
			if len(rawSubtasks) == 0 {
				return tools.ErrorResult(fmt.Errorf("at least one subtask is required")), nil
			}
			analysis, _ := params["analysis"].(string)

			roadmap := Roadmap{Analysis: analysis}
			for i, raw := range rawSubtasks {
				m, ok := raw.(map[string]any)
				if !ok {
					return tools.ErrorResult(fmt.Errorf("subtask %d is not an object", i)), nil
				}
				st, err := subtaskFromParams(m)
				if err != nil {
					return tools.ErrorResult(fmt.Errorf("subtask %d: %w", i, err)), nil
				}
				roadmap.Subtasks = append(roadmap.Subtasks, st)
			}

			nb.Roadmap = roadmap
			return tools.JSONResult(nb.Roadmap), nil
		},
	}
}

func reviseTool(nb *Notebook) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name: "revise_roadmap",
			Description: "Revise the existing roadmap: add a subtask, remove a pending subtask, " +
				"or advance a subtask's status. Statuses only move forward " +
				"(pending, in_progress, done).",
			Parameters: []byte(`{
  "type": "object",
  "properties": {
    "action": {
      "type": "string",
      "enum": ["add_subtask", "remove_subtask", "update_status"]
    },
    "index": {
      "type": "integer",
      "description": "Zero-based subtask index; insertion point for add_subtask (appends when omitted)"
    },
    "subtask": {
      "type": "object",
      "description": "For add_subtask: the subtask to insert",
      "properties": {
        "name": {"type": "string"},
        "description": {"type": "string"},
        "expected_outcome": {"type": "string"}
      },
      "required": ["name", "description", "expected_outcome"]
    },
    "status": {
      "type": "string",
      "enum": ["pending", "in_progress", "done"],
      "description": "For update_status: the new status"
    }
  },
  "required": ["action"]
}`),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			if nb.Roadmap.Empty() {
				return tools.ErrorResult(fmt.Errorf("no roadmap yet; call decompose_task_and_build_roadmap first")), nil
			}
			action, _ := params["action"].(string)
			hasIndex := params["index"] != nil
			index := toInt(params["index"])

			switch action {
			case "add_subtask":
				m, ok := params["subtask"].(map[string]any)
				if !ok {
					return tools.ErrorResult(fmt.Errorf("add_subtask requires a subtask object")), nil
				}
				st, err := subtaskFromParams(m)
				if err != nil {
					return tools.ErrorResult(err), nil
				}
				subtasks := nb.Roadmap.Subtasks
				if !hasIndex || index >= len(subtasks) {
					nb.Roadmap.Subtasks = append(subtasks, st)
				} else if index < 0 {
					return tools.ErrorResult(fmt.Errorf("index must not be negative")), nil
				} else {
					subtasks = append(subtasks[:index], append([]*Subtask{st}, subtasks[index:]...)...)
					nb.Roadmap.Subtasks = subtasks
				}

			case "remove_subtask":
				st, err := nb.Roadmap.At(index)
				if err != nil {
					return tools.ErrorResult(err), nil
				}
				if st.Status != StatusPending {
					return tools.ErrorResult(fmt.Errorf("subtask %q is %s; only pending subtasks can be removed", st.Name, st.Status)), nil
				}
				nb.Roadmap.Subtasks = append(nb.Roadmap.Subtasks[:index], nb.Roadmap.Subtasks[index+1:]...)

			case "update_status":
				st, err := nb.Roadmap.At(index)
				if err != nil {
					return tools.ErrorResult(err), nil
				}
				status, _ := params["status"].(string)
				if err := st.SetStatus(Status(status)); err != nil {
					return tools.ErrorResult(err), nil
				}

			default:
				return tools.ErrorResult(fmt.Errorf("unknown action %q", action)), nil
			}

			return tools.JSONResult(nb.Roadmap), nil
		},
	}
}

func nextUnfinishedTool(nb *Notebook) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name:        "get_next_unfinished_subtask_from_roadmap",
			Description: "Get the first subtask of the roadmap that is not done yet, with its index.",
			Parameters:  []byte(`{"type": "object", "properties": {}}`),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			if nb.Roadmap.Empty() {
				return tools.ErrorResult(fmt.Errorf("no roadmap yet; call decompose_task_and_build_roadmap first")), nil
			}
			idx, st := nb.Roadmap.NextUnfinished()
			if st == nil {
				return tools.TextResult("All subtasks are done. Summarize the results for the user."), nil
			}
			return tools.JSONResult(map[string]any{"index": idx, "subtask": st}), nil
		},
	}
}

func preferenceTool(nb *Notebook) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name:        "record_user_preference",
			Description: "Record a durable user preference (style, format, constraints) so later subtasks and workers honor it.",
			Parameters: tools.MustSchema(tools.SimpleSchema{
				Properties: map[string]tools.Property{
					"preference": {Type: "string", Description: "The preference, stated as a short imperative sentence"},
				},
				Required: []string{"preference"},
			}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			pref, _ := params["preference"].(string)
			pref = strings.TrimSpace(pref)
			if pref == "" {
				return tools.ErrorResult(fmt.Errorf("preference is required")), nil
			}
			nb.RecordPreference(pref)
			return tools.TextResult(fmt.Sprintf("Recorded preference: %s", pref)), nil
		},
	}
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
