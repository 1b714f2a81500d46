// Package state persists full planner snapshots to disk so a run can be
// resumed after a crash or restart. Each run gets its own directory; each
// reasoning or action step writes one snapshot file into it.
package state

import (
	"time"

	"github.com/Tendo33/AgentTracks/pkg/model"
	"github.com/Tendo33/AgentTracks/pkg/plan"
)

// CurrentVersion is written into every snapshot for forward compatibility.
const CurrentVersion = 1

// Snapshot is the complete serialised planner state at one step.
type Snapshot struct {
	Version int    `json:"version"`
	Stage   string `json:"stage"`
	SavedAt int64  `json:"saved_at"` // unix milliseconds

	Mode       string `json:"mode"`
	InPlanMode bool   `json:"in_plan_mode"`
	TaskName   string `json:"task_name,omitempty"`
	TaskDir    string `json:"task_dir,omitempty"`

	Notebook *plan.Notebook    `json:"notebook"`
	Workers  []plan.WorkerInfo `json:"workers,omitempty"`
	Messages []model.Message   `json:"messages,omitempty"`
}

// NewSnapshot stamps a snapshot with version and time.
func NewSnapshot(stage string) *Snapshot {
	return &Snapshot{
		Version: CurrentVersion,
		Stage:   stage,
		SavedAt: time.Now().UnixMilli(),
	}
}
