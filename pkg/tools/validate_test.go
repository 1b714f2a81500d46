package tools_test

import (
	"context"
	"strings"
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

func schemaTool(props map[string]tools.Property, required ...string) tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name:       "schema_tool",
			Parameters: tools.MustSchema(tools.SimpleSchema{Properties: props, Required: required}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			return tools.TextResult("ok"), nil
		},
	}
}

func TestValidatePassThrough(t *testing.T) {
	tool := schemaTool(map[string]tools.Property{"path": {Type: "string"}}, "path")
	args, err := tools.ValidateAndCoerce(tool, map[string]any{"path": "a.txt"})
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if args["path"] != "a.txt" {
		t.Errorf("args = %v", args)
	}
}

func TestValidateCoercesStringToInteger(t *testing.T) {
	tool := schemaTool(map[string]tools.Property{"index": {Type: "integer"}})
	args, err := tools.ValidateAndCoerce(tool, map[string]any{"index": "3"})
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if got, ok := args["index"].(int64); !ok || got != 3 {
		t.Errorf("index = %v (%T), want int64(3)", args["index"], args["index"])
	}
}

func TestValidateCoercesStringToBool(t *testing.T) {
	tool := schemaTool(map[string]tools.Property{"force": {Type: "boolean"}})
	args, err := tools.ValidateAndCoerce(tool, map[string]any{"force": "True"})
	if err != nil {
		t.Fatalf("ValidateAndCoerce: %v", err)
	}
	if args["force"] != true {
		t.Errorf("force = %v", args["force"])
	}
}

func TestValidateMissingRequired(t *testing.T) {
	tool := schemaTool(map[string]tools.Property{"path": {Type: "string"}}, "path")
	_, err := tools.ValidateAndCoerce(tool, map[string]any{})
	if err == nil {
		t.Fatal("expected validation error for missing required property")
	}
	if !strings.Contains(err.Error(), "schema_tool") {
		t.Errorf("error does not name the tool: %v", err)
	}
}

func TestBudgetTruncatesOversizedOutput(t *testing.T) {
	big := &tools.Func{
		Def: model.ToolDefinition{Name: "big"},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			return tools.TextResult(strings.Repeat("x", 500)), nil
		},
	}
	wrapped := tools.WithBudget(big, 100)
	res, err := wrapped.Execute(context.Background(), "c1", nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !strings.HasPrefix(res.Text, strings.Repeat("x", 100)) {
		t.Error("budget did not keep the head of the output")
	}
	if !strings.Contains(res.Text, "truncated") {
		t.Error("missing truncation marker")
	}

	small, _ := tools.WithBudget(big, 1000).Execute(context.Background(), "c2", nil)
	if strings.Contains(small.Text, "truncated") {
		t.Error("under-budget output was truncated")
	}
}
