package plan

import (
	"encoding/json"
	"fmt"
	"time"
)

// ToolSummary is one catalogue entry of the tools workers may be given.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Notebook is the planner's persistent working memory. Everything the
// planner knows about the current task lives here; it is serialised whole
// into every state snapshot and rendered into the session context injected
// before each reasoning step.
type Notebook struct {
	// UserInputs is every user message of the session, in order.
	UserInputs []string `json:"user_inputs,omitempty"`
	// Roadmap is the current task decomposition.
	Roadmap Roadmap `json:"roadmap"`
	// Files maps generated file paths to their descriptions. Only paths
	// verified to exist on disk are recorded.
	Files map[string]string `json:"files,omitempty"`
	// Preferences are durable user preferences the planner should honor.
	Preferences []string `json:"preferences,omitempty"`
	// WorkerTools is the catalogue of tools available for worker creation.
	WorkerTools []ToolSummary `json:"worker_tools,omitempty"`
}

// NewNotebook returns an empty notebook.
func NewNotebook() *Notebook {
	return &Notebook{Files: make(map[string]string)}
}

// RecordUserInput appends one user message.
func (n *Notebook) RecordUserInput(input string) {
	n.UserInputs = append(n.UserInputs, input)
}

// RecordFile records a generated file and its description.
func (n *Notebook) RecordFile(path, description string) {
	if n.Files == nil {
		n.Files = make(map[string]string)
	}
	n.Files[path] = description
}

// RecordPreference appends a durable user preference, skipping duplicates.
func (n *Notebook) RecordPreference(pref string) {
	for _, existing := range n.Preferences {
		if existing == pref {
			return
		}
	}
	n.Preferences = append(n.Preferences, pref)
}

// sessionContext is the JSON body of the injected context message. User
// inputs are rendered separately and the tool catalogue is already in the
// system prompt, so both are left out.
type sessionContext struct {
	Roadmap     Roadmap           `json:"roadmap"`
	Files       map[string]string `json:"files,omitempty"`
	Preferences []string          `json:"preferences,omitempty"`
}

// ComposeContext renders the transient user message injected before each
// reasoning step: all user input so far plus the current task progress.
func (n *Notebook) ComposeContext(now time.Time) string {
	body, err := json.MarshalIndent(sessionContext{
		Roadmap:     n.Roadmap,
		Files:       n.Files,
		Preferences: n.Preferences,
	}, "", "  ")
	if err != nil {
		body = []byte("{}")
	}

	out := "## All User Input\n"
	for _, in := range n.UserInputs {
		out += "- " + in + "\n"
	}
	out += "\n## Session Context\nInformation of current task progress:\n```json\n" +
		string(body) + "\n```\n" +
		fmt.Sprintf("Current time: %s\n", now.Format(time.RFC3339))
	return out
}
