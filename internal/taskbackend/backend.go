// Package taskbackend gates phase advancement on fine-grained work items.
//
// A backend is the system of record for tasks within a phase. The external
// implementation shells out to a tracker CLI; the inline implementation
// tracks nothing and always reports the gate as passed. Backend failures
// are soft: an agent's only forward path must never be blocked because an
// optional external dependency is flaky.
package taskbackend

import (
	"context"
	"time"
)

// Kind selects the task backend implementation.
type Kind string

const (
	KindInline   Kind = "inline"
	KindExternal Kind = "external"
	KindAuto     Kind = "auto"
)

// Config describes how the backend is resolved for an invocation.
// Resolution probes for the external tracker each time; availability is
// never cached across process restarts.
type Config struct {
	Kind Kind `koanf:"kind"`

	// Command is the tracker CLI executable (default "backlog").
	Command string `koanf:"command"`

	// Timeout bounds every tracker subprocess call.
	Timeout time.Duration `koanf:"timeout"`
}

// Task is a single work item as reported by the backend.
type Task struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Status string `json:"status"`
}

// Validation is the result of checking a phase's tasks for completeness.
type Validation struct {
	Valid     bool   `json:"valid"`
	OpenTasks []Task `json:"open_tasks,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Backend is the task-tracking capability consulted by the transition
// engine's task gate.
type Backend interface {
	// IsAvailable reports whether a real backend is active. When false,
	// the task gate passes unconditionally.
	IsAvailable(ctx context.Context) bool

	// OpenTasks lists unresolved tasks under a phase's backend task ID.
	OpenTasks(ctx context.Context, phaseTaskID string) ([]Task, error)

	// ValidateComplete checks whether all tasks under the phase task are
	// resolved. Implementations degrade infrastructure failures to a
	// passing result with an explanatory message.
	ValidateComplete(ctx context.Context, phaseTaskID string) (*Validation, error)

	// CreateTask creates a task and returns its backend ID.
	CreateTask(ctx context.Context, title, parentID, priority string) (string, error)

	// SetStatus updates a task's status.
	SetStatus(ctx context.Context, taskID, status string) error

	// Hint returns operational guidance for callers when the backend is
	// active, appended to synthesized instructions. Empty when inactive.
	Hint() string
}
