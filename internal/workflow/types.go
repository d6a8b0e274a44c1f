// Package workflow defines the declarative phase graph that drives phased.
//
// A workflow is a directed, generally cyclic graph of phases. Each phase
// carries default instructions and an ordered list of outgoing transitions.
// Transitions may be gated by an agent role or by required review
// perspectives; those gates are enforced by the transition engine, not here.
package workflow

// PhaseID identifies a single phase within a workflow definition.
type PhaseID string

// Definition is an immutable, validated workflow graph.
type Definition struct {
	Name         string
	Description  string
	InitialPhase PhaseID
	Phases       map[PhaseID]*Phase

	// order preserves phase declaration order from the source document.
	// Plan documents render one section per phase in this order.
	order []PhaseID
}

// Phase is a single named stage of a workflow.
type Phase struct {
	ID                  PhaseID
	Description         string
	DefaultInstructions string
	Transitions         []Transition
}

// Transition is a directed edge between two phases.
type Transition struct {
	// Trigger is the symbolic name used for modeled advancement.
	// Unique per phase; enforced at load time.
	Trigger string

	// To is the target phase.
	To PhaseID

	// Instructions replace the target phase's default instructions when
	// this edge is followed. Empty means fall back to the defaults.
	Instructions string

	// AdditionalInstructions are appended after Instructions when set.
	AdditionalInstructions string

	// TransitionReason explains why this edge exists, surfaced to callers.
	TransitionReason string

	// Role restricts this edge to a specific collaborating agent role.
	// Empty means any role may use it.
	Role string

	// ReviewPerspectives, when non-empty, require a completed review
	// before the edge may be taken.
	ReviewPerspectives []string
}

// RequiresReview reports whether this edge is review-gated.
func (t *Transition) RequiresReview() bool {
	return len(t.ReviewPerspectives) > 0
}

// PhaseOrder returns phase IDs in declaration order.
func (d *Definition) PhaseOrder() []PhaseID {
	out := make([]PhaseID, len(d.order))
	copy(out, d.order)
	return out
}

// Phase looks up a phase by ID.
func (d *Definition) Phase(id PhaseID) (*Phase, bool) {
	p, ok := d.Phases[id]
	return p, ok
}

// HasCollaboration reports whether any transition in the workflow declares
// a role. Role gating only applies to collaborative workflows.
func (d *Definition) HasCollaboration() bool {
	for _, p := range d.Phases {
		for i := range p.Transitions {
			if p.Transitions[i].Role != "" {
				return true
			}
		}
	}
	return false
}

// TransitionByTrigger finds the phase's outgoing edge with the given trigger.
func (p *Phase) TransitionByTrigger(trigger string) (*Transition, bool) {
	for i := range p.Transitions {
		if p.Transitions[i].Trigger == trigger {
			return &p.Transitions[i], true
		}
	}
	return nil, false
}

// TransitionsTo returns all outgoing edges of the phase that target the
// given phase, in declaration order. Jump-style advancement picks from
// these, ignoring trigger names.
func (p *Phase) TransitionsTo(target PhaseID) []*Transition {
	var out []*Transition
	for i := range p.Transitions {
		if p.Transitions[i].To == target {
			out = append(out, &p.Transitions[i])
		}
	}
	return out
}
