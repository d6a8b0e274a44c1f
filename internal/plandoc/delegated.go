package plandoc

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// delegatedManager records only backend task-id markers in the document;
// the external tracker is the system of record for tasks.
type delegatedManager struct {
	docManager
}

func (m *delegatedManager) Strategy() conversation.PlanStrategy {
	return conversation.StrategyDelegated
}

func (m *delegatedManager) InitialContent(projectPath, branch string) string {
	return renderInitial(m.def, projectPath, branch, func(*workflow.Phase) string {
		// Placeholder until the phase's backend task is created.
		return TaskMarker("TBD") + "\n"
	})
}

func (m *delegatedManager) EnsureExists(ctx context.Context, path, projectPath, branch string) (bool, error) {
	return m.ensureExists(ctx, path, m.InitialContent(projectPath, branch))
}

func (m *delegatedManager) Guidance(phase workflow.PhaseID) string {
	return fmt.Sprintf(
		"Tasks for the %q phase live in the external tracker; manage them "+
			"there exclusively. Use the plan document as narrative memory only: "+
			"goal, key decisions, and notes. Never maintain a task checklist in "+
			"the document.",
		headingFor(phase),
	)
}

var _ Manager = (*delegatedManager)(nil)
