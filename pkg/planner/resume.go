package planner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/plan"
	"github.com/Tendo33/AgentTracks/pkg/prompts"
	"github.com/Tendo33/AgentTracks/pkg/state"
	"github.com/Tendo33/AgentTracks/pkg/worker"
)

// Resume rebuilds a planner from a state snapshot and continues writing
// snapshots into the same run directory. Workers are recreated from their
// recorded identities; recorded tools that are no longer registered are
// dropped with a warning.
func Resume(ctx context.Context, opts Options, snapshotPath string) (*Planner, error) {
	snap, err := state.Load(snapshotPath)
	if err != nil {
		return nil, err
	}
	if opts.Mode == "" && snap.Mode != "" {
		opts.Mode = Mode(snap.Mode)
	}
	p, err := build(opts)
	if err != nil {
		return nil, err
	}
	store, err := state.OpenStore(filepath.Dir(snapshotPath))
	if err != nil {
		return nil, err
	}
	p.store = store

	if snap.Notebook != nil {
		p.nb = snap.Notebook
	}
	if p.nb.Files == nil {
		p.nb.Files = make(map[string]string)
	}

	if snap.InPlanMode {
		dir := snap.TaskDir
		if dir == "" {
			dir = filepath.Join(p.opts.Workspace, deriveTaskName(snap.TaskName))
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("planner: restore task dir: %w", err)
		}
		p.workers.SetWorkDir(dir)
		plan.RegisterTools(p.reg, p.nb)
		worker.RegisterTools(p.reg, p.workers, p.nb)
		if err := p.workers.Rebuild(ctx, snap.Workers); err != nil {
			return nil, err
		}
		// Re-derive the catalogue so it reflects the tools available now,
		// not at snapshot time.
		p.nb.WorkerTools = toolCatalogue(p.opts.WorkerRegistry)
		p.agent.SetSystemPrompt(prompts.MetaPlanner(p.nb.WorkerTools))
		p.inPlanMode = true
		p.taskName = snap.TaskName
		p.taskDir = dir
	} else if p.opts.Mode == ModeDynamic {
		p.reg.Register(p.gateTool())
	}

	p.agent.SetMessages(snap.Messages)
	clog.FromContext(ctx).With("snapshot", snapshotPath, "stage", snap.Stage).
		Info("resumed planner state")
	return p, nil
}
