package tools

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/Tendo33/AgentTracks/pkg/model"
)

// Registry holds registered tools, keyed by name. The planner keeps one full
// registry; each worker gets a restricted Subset of it.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Tool)}
}

// Register adds a tool and panics on a duplicate name; a collision here is
// always a programming error.
func (r *Registry) Register(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Definition().Name
	if _, exists := r.tools[name]; exists {
		panic(fmt.Sprintf("tools: tool %q already registered", name))
	}
	r.tools[name] = t
}

// RegisterOrReplace adds a tool, replacing any existing one with the same
// name. Used when wrapping already-registered tools.
func (r *Registry) RegisterOrReplace(t Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[t.Definition().Name] = t
}

// Get returns the named tool, or nil.
func (r *Registry) Get(name string) Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.tools[name]
}

// Has reports whether a tool with the given name is registered.
func (r *Registry) Has(name string) bool {
	return r.Get(name) != nil
}

// All returns every registered tool in map order.
func (r *Registry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Names returns the sorted names of all registered tools.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for n := range r.tools {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Definitions returns the tool definitions, sorted by name.
func (r *Registry) Definitions() []model.ToolDefinition {
	defs := make([]model.ToolDefinition, 0)
	for _, name := range r.Names() {
		defs = append(defs, r.Get(name).Definition())
	}
	return defs
}

// Remove drops the named tool if present.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Subset builds a new registry containing only the named tools, shared from
// this one. Unknown names are skipped with a warning so a worker request
// naming a stale tool still yields a usable subset.
func (r *Registry) Subset(ctx context.Context, names ...string) *Registry {
	log := clog.FromContext(ctx)
	sub := NewRegistry()
	for _, name := range names {
		t := r.Get(name)
		if t == nil {
			log.With("tool", name).Warn("tool not registered, skipping")
			continue
		}
		sub.RegisterOrReplace(t)
	}
	return sub
}
