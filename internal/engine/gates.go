package engine

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/phased/internal/conversation"
	"github.com/fyrsmithlabs/phased/internal/taskbackend"
	"github.com/fyrsmithlabs/phased/internal/workflow"
)

// ReviewState is the caller-supplied state of review for a transition.
type ReviewState string

const (
	ReviewPerformed   ReviewState = "performed"
	ReviewPending     ReviewState = "pending"
	ReviewNotRequired ReviewState = "not-required"
)

// Attempt bundles everything the gates need to judge one transition.
type Attempt struct {
	Conversation *conversation.Context
	Definition   *workflow.Definition
	Edge         *workflow.Transition
	ReviewState  ReviewState

	// PhaseTaskID is the current phase's backend task ID, resolved from
	// the plan document. Empty when the strategy is inline or the task
	// marker is still pending.
	PhaseTaskID string
}

// Gate is one validation step in the transition pipeline. Gates run in a
// fixed order; the first failure rejects the transition.
type Gate interface {
	Name() string
	Check(ctx context.Context, a *Attempt) error
}

// reviewGate rejects review-gated edges unless a review was performed.
type reviewGate struct{}

func (reviewGate) Name() string { return "review" }

func (reviewGate) Check(_ context.Context, a *Attempt) error {
	if !a.Edge.RequiresReview() {
		// No perspectives declared: any review state is acceptable.
		return nil
	}
	if !a.Conversation.RequireReviews {
		return nil
	}

	perspectives := strings.Join(a.Edge.ReviewPerspectives, ", ")
	switch a.ReviewState {
	case ReviewPerformed:
		return nil
	case ReviewNotRequired:
		return &TransitionError{
			Code:         CodeReviewRequired,
			CurrentPhase: a.Conversation.CurrentPhase,
			TargetPhase:  string(a.Edge.To),
			Message: fmt.Sprintf(
				"review state %q is inconsistent: this transition declares review perspectives (%s)",
				ReviewNotRequired, perspectives),
		}
	default: // pending or unspecified
		return &TransitionError{
			Code:         CodeReviewRequired,
			CurrentPhase: a.Conversation.CurrentPhase,
			TargetPhase:  string(a.Edge.To),
			Message: fmt.Sprintf(
				"complete a review covering these perspectives first: %s; then retry with review_state=%q",
				perspectives, ReviewPerformed),
		}
	}
}

// roleGate restricts role-annotated edges to the declared role. It only
// applies when the workflow declares collaboration and the conversation
// carries an agent role.
type roleGate struct{}

func (roleGate) Name() string { return "role" }

func (roleGate) Check(_ context.Context, a *Attempt) error {
	if !a.Definition.HasCollaboration() || a.Conversation.AgentRole == "" {
		return nil
	}
	if a.Edge.Role == "" || a.Edge.Role == a.Conversation.AgentRole {
		return nil
	}
	return &TransitionError{
		Code:         CodeRoleNotPermitted,
		CurrentPhase: a.Conversation.CurrentPhase,
		TargetPhase:  string(a.Edge.To),
		Message: fmt.Sprintf(
			"role %q may not move from %q to %q: that transition is reserved for role %q",
			a.Conversation.AgentRole, a.Conversation.CurrentPhase, a.Edge.To, a.Edge.Role),
	}
}

// taskGate blocks advancement while the backend unambiguously reports
// open work under the current phase. Backend detection failures never
// block; only a clear "open tasks remain" does.
type taskGate struct {
	backend taskbackend.Backend
	logger  *zap.Logger
}

func (taskGate) Name() string { return "tasks" }

func (g taskGate) Check(ctx context.Context, a *Attempt) error {
	if g.backend == nil || !g.backend.IsAvailable(ctx) {
		return nil
	}
	if a.PhaseTaskID == "" {
		// Phase has no backend task yet; nothing to verify.
		return nil
	}

	v, err := g.backend.ValidateComplete(ctx, a.PhaseTaskID)
	if err != nil {
		g.logger.Warn("task backend validation errored, gate passes",
			zap.String("phase_task_id", a.PhaseTaskID),
			zap.Error(err),
		)
		return nil
	}
	if v.Valid {
		return nil
	}

	ids := make([]string, len(v.OpenTasks))
	for i, task := range v.OpenTasks {
		ids[i] = task.ID
	}
	return &TransitionError{
		Code:         CodeOpenTasksRemain,
		CurrentPhase: a.Conversation.CurrentPhase,
		TargetPhase:  string(a.Edge.To),
		OpenTaskIDs:  ids,
		Message: fmt.Sprintf(
			"phase %q still has open tasks; resolve them in the tracker before advancing",
			a.Conversation.CurrentPhase),
	}
}

// gatePipeline builds the fixed-order validation pipeline.
func gatePipeline(backend taskbackend.Backend, logger *zap.Logger) []Gate {
	return []Gate{
		reviewGate{},
		roleGate{},
		taskGate{backend: backend, logger: logger},
	}
}
