// Package conversation persists per-work-unit state for phased.
//
// A conversation tracks one unit of work, keyed by (project path, branch).
// Its record holds the current workflow phase, which is the authoritative
// progress marker: the plan document is advisory and can be regenerated
// from it.
package conversation

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// PlanStrategy selects how the plan document tracks fine-grained work.
type PlanStrategy string

const (
	// StrategyInline keeps a task checklist inside the plan document.
	StrategyInline PlanStrategy = "inline"

	// StrategyDelegated keeps tasks in an external tracker; the plan
	// document only carries backend task-id markers and narrative notes.
	StrategyDelegated PlanStrategy = "delegated"
)

// Context is the persistent record of one tracked work unit.
type Context struct {
	ID           string       `json:"id"`
	ProjectPath  string       `json:"project_path"`
	Branch       string       `json:"branch"`
	WorkflowName string       `json:"workflow_name"`
	CurrentPhase string       `json:"current_phase"`
	PlanFilePath string       `json:"plan_file_path"`
	PlanStrategy PlanStrategy `json:"plan_strategy"`

	// RequireReviews enables review gating on review-annotated edges.
	RequireReviews bool `json:"require_reviews"`

	// AgentRole identifies the collaborating agent, empty for solo work.
	AgentRole string `json:"agent_role,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContextID derives the deterministic conversation ID for a project/branch
// pair. The same pair always maps to the same conversation.
func ContextID(projectPath, branch string) string {
	sum := sha256.Sum256([]byte(projectPath + "\x00" + branch))
	return "conv-" + hex.EncodeToString(sum[:8])
}
