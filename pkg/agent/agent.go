package agent

import (
	"fmt"
	"sync"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/tools"
)

// Agent holds one conversation and its tool registry.
type Agent struct {
	mu        sync.RWMutex
	cfg       Config
	messages  []model.Message
	listeners map[int]func(Event)
	nextID    int
	running   bool
}

// New creates an Agent. Provider and Model are required.
func New(cfg Config) (*Agent, error) {
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("agent: model is required")
	}
	if cfg.Tools == nil {
		cfg.Tools = tools.NewRegistry()
	}
	if cfg.MaxIters <= 0 {
		cfg.MaxIters = 100
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseBackoff == 0 {
		cfg.Retry = model.DefaultRetryConfig()
	}
	return &Agent{cfg: cfg, listeners: make(map[int]func(Event))}, nil
}

// Name returns the agent's configured name.
func (a *Agent) Name() string { return a.cfg.Name }

// Tools returns the agent's tool registry.
func (a *Agent) Tools() *tools.Registry { return a.cfg.Tools }

// SystemPrompt returns the current system prompt.
func (a *Agent) SystemPrompt() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg.SystemPrompt
}

// SetSystemPrompt replaces the system prompt. The planner swaps prompts when
// it enters plan mode.
func (a *Agent) SetSystemPrompt(prompt string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.SystemPrompt = prompt
}

// SetTransformContext replaces the per-call context hook.
func (a *Agent) SetTransformContext(fn func([]model.Message) []model.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.TransformContext = fn
}

// Subscribe registers a listener for agent events. The returned function
// unsubscribes it. Events are delivered synchronously on the loop goroutine.
func (a *Agent) Subscribe(fn func(Event)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.listeners[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.listeners, id)
	}
}

func (a *Agent) broadcast(ev Event) {
	a.mu.RLock()
	fns := make([]func(Event), 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.RUnlock()
	for _, fn := range fns {
		fn(ev)
	}
}

// Messages returns a copy of the conversation history.
func (a *Agent) Messages() []model.Message {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]model.Message, len(a.messages))
	copy(out, a.messages)
	return out
}

// SetMessages replaces the conversation history. Used on resume.
func (a *Agent) SetMessages(msgs []model.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append([]model.Message(nil), msgs...)
}

// ClearMessages drops the conversation history.
func (a *Agent) ClearMessages() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = nil
}

// IsRunning reports whether a run is in flight.
func (a *Agent) IsRunning() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running
}

func (a *Agent) appendMessage(msg model.Message) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
}

// LastResponse returns the text of the most recent assistant message.
func (a *Agent) LastResponse() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	for i := len(a.messages) - 1; i >= 0; i-- {
		if a.messages[i].Role == model.RoleAssistant && a.messages[i].Content != "" {
			return a.messages[i].Content
		}
	}
	return ""
}
