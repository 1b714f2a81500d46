// Package plan holds the planner's shared state: the roadmap of decomposed
// subtasks and the notebook that carries task progress between reasoning
// steps and across restarts.
package plan

import "fmt"

// Status is a subtask's lifecycle state. Transitions only move forward:
// pending → in_progress → done.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

var statusRank = map[Status]int{
	StatusPending:    0,
	StatusInProgress: 1,
	StatusDone:       2,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok
}

// WorkerInfo records a worker's identity and capabilities. It is embedded in
// subtasks the worker touched and used to rebuild the worker after a resume.
type WorkerInfo struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	SystemPrompt string   `json:"system_prompt,omitempty"`
	Tools        []string `json:"tools,omitempty"`
	CreatedAt    int64    `json:"created_at,omitempty"`
}

// Subtask is one roadmap entry.
type Subtask struct {
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	ExpectedOutcome string       `json:"expected_outcome"`
	Status          Status       `json:"status"`
	Workers         []WorkerInfo `json:"workers,omitempty"`
}

// SetStatus advances the subtask status. Moving backwards is rejected so a
// confused model cannot un-finish completed work.
func (s *Subtask) SetStatus(next Status) error {
	if !next.Valid() {
		return fmt.Errorf("plan: unknown status %q", next)
	}
	if statusRank[next] < statusRank[s.Status] {
		return fmt.Errorf("plan: subtask %q cannot go from %s back to %s", s.Name, s.Status, next)
	}
	s.Status = next
	return nil
}

// Roadmap is the ordered decomposition of the current task.
type Roadmap struct {
	Analysis string     `json:"analysis,omitempty"`
	Subtasks []*Subtask `json:"subtasks,omitempty"`
}

// Empty reports whether no decomposition has happened yet.
func (r *Roadmap) Empty() bool { return len(r.Subtasks) == 0 }

// NextUnfinished returns the first subtask that is not done, or (-1, nil)
// when the roadmap is complete.
func (r *Roadmap) NextUnfinished() (int, *Subtask) {
	for i, st := range r.Subtasks {
		if st.Status != StatusDone {
			return i, st
		}
	}
	return -1, nil
}

// At returns the subtask at index, or an error for out-of-range indexes.
func (r *Roadmap) At(index int) (*Subtask, error) {
	if index < 0 || index >= len(r.Subtasks) {
		return nil, fmt.Errorf("plan: subtask index %d out of range (have %d subtasks)", index, len(r.Subtasks))
	}
	return r.Subtasks[index], nil
}
