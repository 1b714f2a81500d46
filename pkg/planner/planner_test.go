package planner_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/plan"
	"github.com/Tendo33/AgentTracks/pkg/planner"
	"github.com/Tendo33/AgentTracks/pkg/state"
	"github.com/Tendo33/AgentTracks/pkg/tools"
	"github.com/Tendo33/AgentTracks/pkg/tools/builtin"
)

// scriptedProvider pops one canned response per call, repeating the last
// one, and records every request it sees.
type scriptedProvider struct {
	mu        sync.Mutex
	responses []*model.Response
	requests  []model.Request
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Generate(_ context.Context, req model.Request) (*model.Response, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if len(p.responses) == 0 {
		return nil, fmt.Errorf("scripted provider: no responses left")
	}
	resp := p.responses[0]
	if len(p.responses) > 1 {
		p.responses = p.responses[1:]
	}
	return resp, nil
}

func (p *scriptedProvider) recorded() []model.Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Request(nil), p.requests...)
}

func textResponse(text string) *model.Response {
	return &model.Response{
		Message:    model.Message{Role: model.RoleAssistant, Content: text},
		StopReason: model.StopEnd,
	}
}

func toolResponse(id, name, args string) *model.Response {
	parsed := map[string]any{}
	if err := json.Unmarshal([]byte(args), &parsed); err != nil {
		panic(fmt.Sprintf("bad tool args in script: %v", err))
	}
	return &model.Response{
		Message: model.Message{
			Role:      model.RoleAssistant,
			ToolCalls: []model.ToolCall{{ID: id, Name: name, Arguments: parsed}},
		},
		StopReason: model.StopToolUse,
	}
}

func newOptions(t *testing.T, provider model.Provider, mode planner.Mode) planner.Options {
	t.Helper()
	workspace := t.TempDir()
	reg := tools.NewRegistry()
	builtin.Register(reg, workspace)
	return planner.Options{
		Provider:       provider,
		Model:          "test-model",
		Mode:           mode,
		Workspace:      workspace,
		StateRoot:      t.TempDir(),
		WorkerRegistry: reg,
	}
}

func TestDynamicModeRunsFullTask(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		toolResponse("c1", planner.GateToolName, `{"task_name": "Write Survey!"}`),
		toolResponse("c2", "decompose_task_and_build_roadmap", `{
			"analysis": "one research stage",
			"subtasks": [{"name": "research", "description": "gather sources", "expected_outcome": "notes.md"}]
		}`),
		toolResponse("c3", "create_worker", `{
			"name": "researcher",
			"description": "finds sources",
			"role_prompt": "You are a researcher.",
			"tools": ["read_file"]
		}`),
		toolResponse("c4", "execute_worker", `{
			"subtask_index": 0, "worker_name": "researcher", "instruction": "collect notes"
		}`),
		// Consumed by the researcher's own run.
		textResponse("Collected.\n```json\n{\"status\": \"done\", \"summary\": \"notes gathered\", \"generated_files\": {\"notes.md\": \"research notes\"}}\n```"),
		textResponse("Survey research is done."),
	}}

	opts := newOptions(t, provider, planner.ModeDynamic)
	// Pre-create the file the worker will claim so verification finds it.
	taskDir := filepath.Join(opts.Workspace, "write-survey")
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(taskDir, "notes.md"), []byte("notes"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, err := planner.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	answer, err := p.Run(context.Background(), "write a survey about Go")
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if answer != "Survey research is done." {
		t.Errorf("answer = %q", answer)
	}

	if !p.InPlanMode() {
		t.Error("planner should be in plan mode")
	}
	if p.TaskDir() != taskDir {
		t.Errorf("task dir = %q, want %q", p.TaskDir(), taskDir)
	}

	nb := p.Notebook()
	if len(nb.Roadmap.Subtasks) != 1 || nb.Roadmap.Subtasks[0].Status != plan.StatusDone {
		t.Errorf("roadmap = %+v", nb.Roadmap)
	}
	if nb.Files["notes.md"] != "research notes" {
		t.Errorf("files = %v", nb.Files)
	}
	if len(nb.WorkerTools) == 0 {
		t.Error("worker tool catalogue not published")
	}
	workers := p.Workers()
	if len(workers) != 1 || workers[0].Name != "researcher" {
		t.Errorf("workers = %+v", workers)
	}

	latest, err := state.Latest(p.StateDir())
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	snap, err := state.Load(latest)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !snap.InPlanMode || snap.TaskName != "write-survey" {
		t.Errorf("snapshot = %+v", snap)
	}
	if len(snap.Messages) == 0 || len(snap.Workers) != 1 {
		t.Errorf("snapshot messages=%d workers=%d", len(snap.Messages), len(snap.Workers))
	}
}

func TestSnapshotStagesCoverEachStep(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		toolResponse("c1", planner.GateToolName, `{"task_name": "demo"}`),
		textResponse("Entered."),
	}}
	p, err := planner.New(newOptions(t, provider, planner.ModeDynamic))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), "do the demo task"); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(p.StateDir())
	if err != nil {
		t.Fatal(err)
	}
	var reasoning, action bool
	for _, e := range entries {
		if strings.Contains(e.Name(), "post-reasoning") {
			reasoning = true
		}
		if strings.Contains(e.Name(), "post-action-"+planner.GateToolName) {
			action = true
		}
	}
	if !reasoning || !action {
		t.Errorf("snapshot stages incomplete: reasoning=%v action=%v", reasoning, action)
	}
}

func TestDisabledModeStaysPlain(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{textResponse("hello")}}
	p, err := planner.New(newOptions(t, provider, planner.ModeDisabled))
	if err != nil {
		t.Fatal(err)
	}
	answer, err := p.Run(context.Background(), "hi")
	if err != nil {
		t.Fatal(err)
	}
	if answer != "hello" {
		t.Errorf("answer = %q", answer)
	}
	if p.InPlanMode() {
		t.Error("disabled mode must never enter plan mode")
	}
	reqs := provider.recorded()
	if len(reqs) != 1 || len(reqs[0].Tools) != 0 {
		t.Errorf("disabled planner should expose no tools, got %d requests, %d tools",
			len(reqs), len(reqs[0].Tools))
	}
}

func TestEnforcedModeEntersOnFirstInput(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{textResponse("planning")}}
	opts := newOptions(t, provider, planner.ModeEnforced)
	p, err := planner.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p.Run(context.Background(), "Build a CLI tool"); err != nil {
		t.Fatal(err)
	}
	if !p.InPlanMode() {
		t.Fatal("enforced mode should be in plan mode after the first input")
	}
	if p.TaskDir() != filepath.Join(opts.Workspace, "build-a-cli-tool") {
		t.Errorf("task dir = %q", p.TaskDir())
	}

	reqs := provider.recorded()
	names := map[string]bool{}
	for _, def := range reqs[0].Tools {
		names[def.Name] = true
	}
	if !names["decompose_task_and_build_roadmap"] || !names["execute_worker"] {
		t.Errorf("plan-mode tools missing from request: %v", names)
	}
	if names[planner.GateToolName] {
		t.Error("gate tool should not be exposed in enforced mode")
	}
	// The session context rides along as a transient trailing user message.
	last := reqs[0].Messages[len(reqs[0].Messages)-1]
	if last.Role != model.RoleUser || !strings.Contains(last.Content, "## Session Context") {
		t.Errorf("last request message = %+v", last)
	}
}

func TestResumeRestoresPlanState(t *testing.T) {
	provider := &scriptedProvider{responses: []*model.Response{
		toolResponse("c1", planner.GateToolName, `{"task_name": "survey"}`),
		toolResponse("c2", "decompose_task_and_build_roadmap", `{
			"analysis": "a",
			"subtasks": [{"name": "research", "description": "d", "expected_outcome": "o"}]
		}`),
		toolResponse("c3", "create_worker", `{
			"name": "researcher", "description": "finds sources",
			"role_prompt": "You are a researcher.", "tools": ["read_file"]
		}`),
		textResponse("Roadmap ready."),
	}}
	opts := newOptions(t, provider, planner.ModeDynamic)
	p1, err := planner.New(opts)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := p1.Run(context.Background(), "write a survey"); err != nil {
		t.Fatal(err)
	}
	latest, err := state.Latest(p1.StateDir())
	if err != nil {
		t.Fatal(err)
	}

	provider2 := &scriptedProvider{responses: []*model.Response{textResponse("picking up")}}
	opts2 := opts
	opts2.Provider = provider2
	opts2.Mode = ""
	p2, err := planner.Resume(context.Background(), opts2, latest)
	if err != nil {
		t.Fatalf("Resume: %v", err)
	}

	if !p2.InPlanMode() || p2.Mode() != planner.ModeDynamic {
		t.Errorf("mode=%q inPlanMode=%v", p2.Mode(), p2.InPlanMode())
	}
	if got := p2.Notebook().Roadmap.Subtasks; len(got) != 1 || got[0].Name != "research" {
		t.Errorf("roadmap = %+v", got)
	}
	workers := p2.Workers()
	if len(workers) != 1 || workers[0].Name != "researcher" {
		t.Errorf("rebuilt workers = %+v", workers)
	}
	if got, want := len(p2.Agent().Messages()), len(p1.Agent().Messages()); got != want {
		t.Errorf("restored %d messages, want %d", got, want)
	}

	// New snapshots land in the same run directory.
	if _, err := p2.Run(context.Background(), "continue"); err != nil {
		t.Fatal(err)
	}
	newest, err := state.Latest(p1.StateDir())
	if err != nil {
		t.Fatal(err)
	}
	if newest == latest {
		t.Error("resumed run did not write new snapshots into the run directory")
	}
}
