// Package planner wires the reasoning loop, the planning notebook, the
// worker pool, and the state store into the meta planner: an assistant that
// escalates complicated tasks into a roadmap, staffs each subtask with a
// purpose-built worker, and snapshots its full state after every step.
package planner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/agent"
	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/plan"
	"github.com/Tendo33/AgentTracks/pkg/prompts"
	"github.com/Tendo33/AgentTracks/pkg/state"
	"github.com/Tendo33/AgentTracks/pkg/tools"
	"github.com/Tendo33/AgentTracks/pkg/worker"
)

// Mode controls when the planner escalates into plan mode.
type Mode string

const (
	// ModeDisabled never plans; the planner stays a plain assistant.
	ModeDisabled Mode = "disabled"
	// ModeDynamic lets the model decide, via the gate tool, whether a
	// request is complicated enough to plan.
	ModeDynamic Mode = "dynamic"
	// ModeEnforced enters plan mode on the first user input.
	ModeEnforced Mode = "enforced"
)

// Valid reports whether m is a known mode.
func (m Mode) Valid() bool {
	return m == ModeDisabled || m == ModeDynamic || m == ModeEnforced
}

// GateToolName is the tool the model calls to enter plan mode.
const GateToolName = "enter_solving_complicated_task_mode"

// Options configures a Planner.
type Options struct {
	Provider model.Provider
	Model    string
	APIKey   string

	// Mode defaults to ModeDynamic.
	Mode Mode
	// Workspace is the directory task directories are created under.
	// Defaults to the current directory.
	Workspace string
	// StateRoot is the directory run directories are created under.
	// Defaults to "agent-states".
	StateRoot string
	// WorkerRegistry holds every tool workers may be granted.
	WorkerRegistry *tools.Registry

	MaxTokens   int
	Temperature *float64
	// MaxIters caps planner iterations per run. Defaults to 100.
	MaxIters int
	// WorkerMaxIters caps each worker run. Defaults to 20.
	WorkerMaxIters int
	Retry          model.RetryConfig

	// Now is the clock used for the injected session context. Defaults to
	// time.Now.
	Now func() time.Time
}

// Planner is the top-level assistant.
type Planner struct {
	opts    Options
	agent   *agent.Agent
	reg     *tools.Registry
	nb      *plan.Notebook
	workers *worker.Manager
	store   *state.Store

	mu         sync.Mutex
	runCtx     context.Context
	inPlanMode bool
	taskName   string
	taskDir    string
}

// New creates a planner and its run directory under opts.StateRoot.
func New(opts Options) (*Planner, error) {
	p, err := build(opts)
	if err != nil {
		return nil, err
	}
	store, err := state.NewStore(p.opts.StateRoot)
	if err != nil {
		return nil, err
	}
	p.store = store
	if p.opts.Mode == ModeDynamic {
		p.reg.Register(p.gateTool())
	}
	return p, nil
}

// build assembles a planner without a state store; New and Resume finish
// the setup their own way.
func build(opts Options) (*Planner, error) {
	if opts.Provider == nil {
		return nil, errors.New("planner: provider is required")
	}
	if opts.Mode == "" {
		opts.Mode = ModeDynamic
	}
	if !opts.Mode.Valid() {
		return nil, fmt.Errorf("planner: unknown mode %q", opts.Mode)
	}
	if opts.Workspace == "" {
		opts.Workspace = "."
	}
	if opts.StateRoot == "" {
		opts.StateRoot = "agent-states"
	}
	if opts.WorkerRegistry == nil {
		opts.WorkerRegistry = tools.NewRegistry()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	p := &Planner{
		opts:   opts,
		reg:    tools.NewRegistry(),
		nb:     plan.NewNotebook(),
		runCtx: context.Background(),
	}
	p.workers = worker.NewManager(worker.Options{
		Provider:    opts.Provider,
		Model:       opts.Model,
		APIKey:      opts.APIKey,
		Registry:    opts.WorkerRegistry,
		MaxIters:    opts.WorkerMaxIters,
		Temperature: opts.Temperature,
	})

	systemPrompt := prompts.Default
	if opts.Mode == ModeDisabled {
		systemPrompt = prompts.Plain
	}
	a, err := agent.New(agent.Config{
		Name:         "planner",
		Provider:     opts.Provider,
		Model:        opts.Model,
		APIKey:       opts.APIKey,
		SystemPrompt: systemPrompt,
		Tools:        p.reg,
		MaxTokens:    opts.MaxTokens,
		Temperature:  opts.Temperature,
		MaxIters:     opts.MaxIters,
		Retry:        opts.Retry,
	})
	if err != nil {
		return nil, err
	}
	a.SetTransformContext(p.transformContext)
	a.Subscribe(p.onEvent)
	p.agent = a
	return p, nil
}

// Run sends one user input through the planner and returns the final answer.
func (p *Planner) Run(ctx context.Context, input string) (string, error) {
	p.mu.Lock()
	p.runCtx = ctx
	p.nb.RecordUserInput(input)
	if p.opts.Mode == ModeEnforced && !p.inPlanMode {
		if err := p.enterPlanMode(ctx, deriveTaskName(input)); err != nil {
			p.mu.Unlock()
			return "", err
		}
	}
	p.mu.Unlock()
	return p.agent.Run(ctx, input)
}

// Notebook returns the planner's working memory.
func (p *Planner) Notebook() *plan.Notebook { return p.nb }

// Workers returns the worker pool records in creation order.
func (p *Planner) Workers() []plan.WorkerInfo { return p.workers.Infos() }

// Agent returns the planner's own agent, for event subscription.
func (p *Planner) Agent() *agent.Agent { return p.agent }

// Mode returns the configured planning mode.
func (p *Planner) Mode() Mode { return p.opts.Mode }

// InPlanMode reports whether the planner has escalated into plan mode.
func (p *Planner) InPlanMode() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.inPlanMode
}

// TaskDir returns the current task directory, or "" outside plan mode.
func (p *Planner) TaskDir() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.taskDir
}

// StateDir returns this run's snapshot directory.
func (p *Planner) StateDir() string { return p.store.Dir() }

// gateTool builds the tool the model calls to escalate into plan mode.
func (p *Planner) gateTool() tools.Tool {
	return &tools.Func{
		Def: model.ToolDefinition{
			Name: GateToolName,
			Description: "Enter the structured mode for solving a complicated, " +
				"multi-stage task. Call this before attempting such a task.",
			Parameters: tools.MustSchema(tools.SimpleSchema{
				Properties: map[string]tools.Property{
					"task_name": {Type: "string", Description: "Short name for the task, used for its working directory"},
				},
				Required: []string{"task_name"},
			}),
		},
		Fn: func(ctx context.Context, params map[string]any) (tools.Result, error) {
			name, _ := params["task_name"].(string)
			p.mu.Lock()
			defer p.mu.Unlock()
			if p.inPlanMode {
				return tools.TextResult("Already in complicated task mode."), nil
			}
			if err := p.enterPlanMode(ctx, deriveTaskName(name)); err != nil {
				return tools.ErrorResult(err), nil
			}
			return tools.TextResult(fmt.Sprintf(
				"Entered complicated task mode. Task directory: %s. "+
					"Build a roadmap with decompose_task_and_build_roadmap before anything else.",
				p.taskDir)), nil
		},
	}
}

// enterPlanMode creates the task directory, registers the planning and
// worker tools, publishes the worker tool catalogue, and swaps the system
// prompt. Callers hold p.mu.
func (p *Planner) enterPlanMode(ctx context.Context, taskName string) error {
	dir := filepath.Join(p.opts.Workspace, taskName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("planner: create task dir: %w", err)
	}
	p.workers.SetWorkDir(dir)

	p.reg.Remove(GateToolName)
	plan.RegisterTools(p.reg, p.nb)
	worker.RegisterTools(p.reg, p.workers, p.nb)

	p.nb.WorkerTools = toolCatalogue(p.opts.WorkerRegistry)
	p.agent.SetSystemPrompt(prompts.MetaPlanner(p.nb.WorkerTools))

	p.inPlanMode = true
	p.taskName = taskName
	p.taskDir = dir
	clog.FromContext(ctx).With("task", taskName, "dir", dir).Info("entered plan mode")
	return nil
}

// transformContext appends the transient session-context message before each
// model call while in plan mode. The stored history never contains it.
func (p *Planner) transformContext(msgs []model.Message) []model.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.inPlanMode {
		return msgs
	}
	return append(msgs, model.UserMessage(p.nb.ComposeContext(p.opts.Now())))
}

// onEvent snapshots planner state after every reasoning and action step.
func (p *Planner) onEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventMessageEnd:
		p.saveSnapshot("post-reasoning")
	case agent.EventToolEnd:
		stage := "post-action"
		if ev.ToolCall != nil {
			stage += "-" + ev.ToolCall.Name
		}
		p.saveSnapshot(stage)
	}
}

func (p *Planner) saveSnapshot(stage string) {
	p.mu.Lock()
	snap := state.NewSnapshot(stage)
	snap.Mode = string(p.opts.Mode)
	snap.InPlanMode = p.inPlanMode
	snap.TaskName = p.taskName
	snap.TaskDir = p.taskDir
	snap.Notebook = p.nb
	snap.Workers = p.workers.Infos()
	snap.Messages = p.agent.Messages()
	ctx := p.runCtx
	p.mu.Unlock()

	if _, err := p.store.Save(snap); err != nil {
		clog.FromContext(ctx).With("stage", stage).Warnf("failed to save state snapshot: %v", err)
	}
}

// toolCatalogue summarises a registry for the worker tool catalogue.
func toolCatalogue(reg *tools.Registry) []plan.ToolSummary {
	defs := reg.Definitions()
	out := make([]plan.ToolSummary, 0, len(defs))
	for _, d := range defs {
		out = append(out, plan.ToolSummary{Name: d.Name, Description: d.Description})
	}
	return out
}

// deriveTaskName turns free text into a directory-safe task name.
func deriveTaskName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	lastDash := true
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
		if b.Len() >= 40 {
			break
		}
	}
	name := strings.Trim(b.String(), "-")
	if name == "" {
		return "task"
	}
	return name
}
