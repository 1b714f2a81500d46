// Package worker keeps the pool of dynamically created worker agents and
// the coordination tools the planner drives them with.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/agent"
	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/plan"
	"github.com/Tendo33/AgentTracks/pkg/prompts"
	"github.com/Tendo33/AgentTracks/pkg/tools"
	"github.com/Tendo33/AgentTracks/pkg/tools/builtin"
)

// Options configures a Manager.
type Options struct {
	Provider model.Provider
	Model    string
	APIKey   string
	// Registry is the full tool registry workers draw restricted subsets from.
	Registry *tools.Registry
	// WorkDir is the task directory workers operate in.
	WorkDir string
	// MaxIters caps each worker run. Defaults to 20.
	MaxIters    int
	Temperature *float64
}

// Worker is one pool entry: its persisted identity plus the live agent.
type Worker struct {
	Info  plan.WorkerInfo
	Agent *agent.Agent
}

// Manager owns the worker pool.
type Manager struct {
	opts  Options
	pool  map[string]*Worker
	order []string
}

// NewManager creates an empty pool.
func NewManager(opts Options) *Manager {
	if opts.MaxIters <= 0 {
		opts.MaxIters = 20
	}
	return &Manager{opts: opts, pool: make(map[string]*Worker)}
}

// SetWorkDir points the pool at a new task directory. Affects workers
// created afterwards.
func (m *Manager) SetWorkDir(dir string) { m.opts.WorkDir = dir }

// WorkDir returns the current task directory.
func (m *Manager) WorkDir() string { return m.opts.WorkDir }

// Get returns the named worker, or nil.
func (m *Manager) Get(name string) *Worker { return m.pool[name] }

// Infos returns the pool's worker records in creation order.
func (m *Manager) Infos() []plan.WorkerInfo {
	out := make([]plan.WorkerInfo, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, m.pool[name].Info)
	}
	return out
}

// Create builds a worker bound to the requested tools plus the baseline file
// tools, registers it in the pool, and returns it. A name collision never
// overwrites: the new worker gets a _vN suffix.
func (m *Manager) Create(ctx context.Context, name, description, rolePrompt string, toolNames []string) (*Worker, error) {
	name = m.uniqueName(name)

	wanted := append(append([]string(nil), toolNames...), builtin.BaselineNames()...)
	subset := m.opts.Registry.Subset(ctx, dedupe(wanted)...)
	if len(subset.Names()) == 0 {
		return nil, fmt.Errorf("worker: none of the requested tools exist: %v", toolNames)
	}

	info := plan.WorkerInfo{
		Name:         name,
		Description:  description,
		SystemPrompt: rolePrompt,
		Tools:        subset.Names(),
		CreatedAt:    time.Now().UnixMilli(),
	}

	w, err := m.build(info, subset)
	if err != nil {
		return nil, err
	}

	m.pool[name] = w
	m.order = append(m.order, name)
	clog.FromContext(ctx).With("worker", name, "tools", info.Tools).Info("worker created")
	return w, nil
}

// Rebuild reconstructs the pool from persisted worker records after a
// resume. Tools that are no longer registered are dropped with a warning and
// the worker keeps the rest.
func (m *Manager) Rebuild(ctx context.Context, infos []plan.WorkerInfo) error {
	log := clog.FromContext(ctx)
	for _, info := range infos {
		subset := m.opts.Registry.Subset(ctx, info.Tools...)
		if got, want := len(subset.Names()), len(info.Tools); got < want {
			log.With("worker", info.Name, "missing", want-got).Warn("rebuilding worker without some recorded tools")
		}
		w, err := m.build(info, subset)
		if err != nil {
			return fmt.Errorf("worker: rebuild %s: %w", info.Name, err)
		}
		m.pool[info.Name] = w
		m.order = append(m.order, info.Name)
	}
	return nil
}

func (m *Manager) build(info plan.WorkerInfo, subset *tools.Registry) (*Worker, error) {
	a, err := agent.New(agent.Config{
		Name:         info.Name,
		Provider:     m.opts.Provider,
		Model:        m.opts.Model,
		APIKey:       m.opts.APIKey,
		SystemPrompt: prompts.Worker(info.SystemPrompt, m.opts.WorkDir),
		Tools:        subset,
		MaxIters:     m.opts.MaxIters,
		Temperature:  m.opts.Temperature,
	})
	if err != nil {
		return nil, err
	}
	return &Worker{Info: info, Agent: a}, nil
}

// uniqueName suffixes colliding names: name, name_v1, name_v2, ...
func (m *Manager) uniqueName(name string) string {
	if _, exists := m.pool[name]; !exists {
		return name
	}
	for v := 1; ; v++ {
		candidate := fmt.Sprintf("%s_v%d", name, v)
		if _, exists := m.pool[candidate]; !exists {
			return candidate
		}
	}
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
