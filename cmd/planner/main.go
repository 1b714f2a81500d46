// Binary planner is a meta-planning assistant: it decomposes complicated
// tasks into a roadmap, creates worker agents for the subtasks, and
// snapshots its full state after every step so a run can be resumed.
//
// Usage:
//
//	planner [flags]
//
// Flags:
//
//	-config     path to YAML config file (default: planner.yaml)
//	-prompt     one-shot prompt (skips interactive mode)
//	-resume     path to a state snapshot to resume from
//	-runs       list saved runs and exit
//	-workspace  override the workspace directory for task dirs
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Tendo33/AgentTracks/pkg/agent"
	"github.com/Tendo33/AgentTracks/pkg/config"
	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/model/providers/anthropic"
	"github.com/Tendo33/AgentTracks/pkg/model/providers/bedrock"
	"github.com/Tendo33/AgentTracks/pkg/model/providers/openai"
	"github.com/Tendo33/AgentTracks/pkg/planner"
	"github.com/Tendo33/AgentTracks/pkg/state"
	"github.com/Tendo33/AgentTracks/pkg/tools"
	"github.com/Tendo33/AgentTracks/pkg/tools/builtin"
)

func main() {
	configPath := flag.String("config", "planner.yaml", "path to planner config file")
	oneShot := flag.String("prompt", "", "one-shot prompt (non-interactive)")
	resumePath := flag.String("resume", "", "state snapshot to resume from")
	listRuns := flag.Bool("runs", false, "list saved runs and exit")
	workspaceFlag := flag.String("workspace", "", "override workspace directory for task dirs")
	flag.Parse()

	ctx := context.Background()
	cfg, err := config.Load(ctx, *configPath)
	if err != nil {
		fatalf("config: %v", err)
	}

	workspace := cfg.Planner.Workspace
	if *workspaceFlag != "" {
		workspace = *workspaceFlag
	}
	if workspace == "" {
		workspace, err = os.Getwd()
		if err != nil {
			fatalf("getwd: %v", err)
		}
	}

	// Handle -runs flag: list run directories and exit.
	if *listRuns {
		printRuns(cfg.Planner.StateDir)
		return
	}

	provider, err := buildProvider(cfg)
	if err != nil {
		fatalf("provider: %v", err)
	}

	// Build the worker tool registry: built-in tools plus external tool
	// servers, everything capped by the response budget.
	registry := tools.NewRegistry()
	builtin.Register(registry, workspace)

	var servers []*tools.Server
	for _, sc := range cfg.Tools.Servers {
		srv, err := tools.StartServer(sc.Path, sc.Args...)
		if err != nil {
			fatalf("tool server %s: %v", sc.Path, err)
		}
		servers = append(servers, srv)
		for _, t := range srv.Tools() {
			registry.Register(t)
			fmt.Printf("[planner] loaded server tool: %s\n", t.Definition().Name)
		}
	}
	defer func() {
		for _, srv := range servers {
			_ = srv.Close()
		}
	}()
	for _, t := range registry.All() {
		registry.RegisterOrReplace(tools.WithBudget(t, cfg.Tools.ResponseBudget))
	}

	opts := planner.Options{
		Provider:       provider,
		Model:          cfg.Model,
		APIKey:         cfg.APIKey,
		Mode:           planner.Mode(cfg.Planner.Mode),
		Workspace:      workspace,
		StateRoot:      cfg.Planner.StateDir,
		WorkerRegistry: registry,
		MaxTokens:      cfg.MaxTokens,
		Temperature:    cfg.Temperature,
		MaxIters:       cfg.Planner.MaxIters,
		WorkerMaxIters: cfg.Planner.WorkerMaxIters,
	}

	var p *planner.Planner
	if *resumePath != "" {
		p, err = planner.Resume(ctx, opts, *resumePath)
		if err != nil {
			fatalf("resume: %v", err)
		}
		fmt.Printf("[planner] resumed from %s (%d messages)\n",
			*resumePath, len(p.Agent().Messages()))
	} else {
		p, err = planner.New(opts)
		if err != nil {
			fatalf("planner: %v", err)
		}
	}

	unsub := p.Agent().Subscribe(makeEventPrinter())
	defer unsub()

	// SIGINT / SIGTERM cancels the in-flight run.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	if *oneShot != "" {
		answer, err := p.Run(runCtx, *oneShot)
		if err != nil {
			fatalf("run: %v", err)
		}
		fmt.Println(answer)
		return
	}

	// Interactive REPL
	fmt.Printf("[planner] provider=%s model=%s mode=%s state=%s\n",
		provider.Name(), cfg.Model, p.Mode(), p.StateDir())
	fmt.Println("[planner] type a prompt and press enter. Commands: /state /roadmap /workers exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "exit", "quit":
			return
		case "/state":
			fmt.Printf("[state] mode=%s plan_mode=%v task_dir=%q messages=%d snapshots=%s\n",
				p.Mode(), p.InPlanMode(), p.TaskDir(), len(p.Agent().Messages()), p.StateDir())
			continue
		case "/roadmap":
			printRoadmap(p)
			continue
		case "/workers":
			printWorkers(p)
			continue
		}

		answer, err := p.Run(runCtx, line)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			if runCtx.Err() != nil {
				// A canceled context is spent; arm a fresh one so the
				// next prompt can run.
				runCtx, cancel = context.WithCancel(ctx)
			}
			continue
		}
		fmt.Println(answer)
	}
}

func printRoadmap(p *planner.Planner) {
	rm := p.Notebook().Roadmap
	if rm.Empty() {
		fmt.Println("[roadmap] empty")
		return
	}
	if rm.Analysis != "" {
		fmt.Printf("[roadmap] %s\n", rm.Analysis)
	}
	for i, st := range rm.Subtasks {
		fmt.Printf("  %d. [%-11s] %s\n", i, st.Status, st.Name)
	}
}

func printWorkers(p *planner.Planner) {
	workers := p.Workers()
	if len(workers) == 0 {
		fmt.Println("[workers] none")
		return
	}
	for _, w := range workers {
		fmt.Printf("  %-20s  tools=%v  %s\n", w.Name, w.Tools, w.Description)
	}
}

func printRuns(stateRoot string) {
	runs, err := state.ListRuns(stateRoot)
	if err != nil {
		fatalf("runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("[no runs]")
		return
	}
	for _, dir := range runs {
		latest, err := state.Latest(dir)
		if err != nil {
			fmt.Printf("  %s  (no snapshots)\n", dir)
			continue
		}
		snap, err := state.Load(latest)
		if err != nil {
			fmt.Printf("  %s  (unreadable: %v)\n", dir, err)
			continue
		}
		task := snap.TaskName
		if task == "" {
			task = "-"
		}
		fmt.Printf("  %s  task=%-20s  msgs=%-3d  %s\n",
			dir, task, len(snap.Messages),
			time.UnixMilli(snap.SavedAt).Format("2006-01-02 15:04"))
	}
}

func buildProvider(cfg *config.Config) (model.Provider, error) {
	switch cfg.Provider {
	case "anthropic":
		return anthropic.New(cfg.BaseURL), nil

	case "openai":
		return openai.New(cfg.BaseURL), nil

	case "bedrock", "amazon-bedrock":
		return bedrock.New(cfg.Region, cfg.Profile), nil

	// Generic fallback: any base_url is treated as openai-compatible.
	default:
		if cfg.BaseURL != "" {
			fmt.Printf("[planner] unknown provider %q, using OpenAI completions format with base_url\n", cfg.Provider)
			return openai.New(cfg.BaseURL), nil
		}
		return nil, fmt.Errorf("unknown provider %q, set base_url to use as openai-compatible", cfg.Provider)
	}
}

func makeEventPrinter() func(agent.Event) {
	return func(ev agent.Event) {
		switch ev.Type {
		case agent.EventToolStart:
			if ev.ToolCall != nil {
				fmt.Printf("[tool] %s(%s)\n", ev.ToolCall.Name, compactArgs(ev.ToolCall.Arguments))
			}
		case agent.EventToolEnd:
			if ev.ToolCall == nil {
				return
			}
			status := "ok"
			if ev.Result != nil && ev.Result.IsError {
				status = "error"
			}
			fmt.Printf("[tool] %s -> %s\n", ev.ToolCall.Name, status)
		case agent.EventIterationLimit:
			fmt.Println("[planner] iteration limit reached")
		}
	}
}

func compactArgs(args map[string]any) string {
	raw, err := json.Marshal(args)
	if err != nil {
		return fmt.Sprintf("%v", args)
	}
	s := strings.Join(strings.Fields(string(raw)), " ")
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
