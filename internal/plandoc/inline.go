package plandoc

import (
	"context"
	"fmt"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// inlineManager keeps the task checklist inside the plan document itself.
type inlineManager struct {
	docManager
}

func (m *inlineManager) Strategy() conversation.PlanStrategy {
	return conversation.StrategyInline
}

func (m *inlineManager) InitialContent(projectPath, branch string) string {
	return renderInitial(m.def, projectPath, branch, func(*workflow.Phase) string {
		// Empty checklist: tasks accumulate as "- [ ]" entries.
		return ""
	})
}

func (m *inlineManager) EnsureExists(ctx context.Context, path, projectPath, branch string) (bool, error) {
	return m.ensureExists(ctx, path, m.InitialContent(projectPath, branch))
}

func (m *inlineManager) Guidance(phase workflow.PhaseID) string {
	return fmt.Sprintf(
		"Track tasks as markdown checkboxes under the %q section of the plan "+
			"document: add \"- [ ] task\" entries as work is identified and tick "+
			"them off (\"- [x]\") as it completes. Keep the Goal and Key Decisions "+
			"sections current.",
		headingFor(phase),
	)
}

var _ Manager = (*inlineManager)(nil)
