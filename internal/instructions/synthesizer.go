// Package instructions builds the guidance text returned to callers.
//
// Synthesis is a pure function: identical inputs always produce identical
// output, so generated instructions are snapshot-testable. No filesystem
// or backend access happens here; callers gather that context first.
package instructions

import "strings"

// Context carries everything synthesis may weave into the base text.
type Context struct {
	ProjectPath string
	Branch      string
	Phase       string
	Role        string

	// Collaboration is true when the workflow declares agent roles.
	Collaboration bool

	// Drives is true when the caller's role may take at least one
	// outgoing edge of the current phase. Only meaningful when
	// Collaboration is set and Role is non-empty.
	Drives bool

	// PlanGuidance is the plan-document manager's strategy-specific
	// maintenance guidance for the current phase.
	PlanGuidance string

	// BackendHint is the task backend's operational hint, empty when no
	// backend is active.
	BackendHint string
}

// Generated is the synthesized guidance returned to the caller.
type Generated struct {
	Text string
}

// Variables recognized in base instruction text.
const (
	VarProjectPath = "$PROJECT_PATH"
	VarBranch      = "$BRANCH"
	VarPhase       = "$PHASE"
	VarRole        = "$ROLE"
)

// Synthesize expands variables in the base text and appends plan-document
// guidance, role notes, and backend hints, in that order.
func Synthesize(base string, ictx Context) Generated {
	replacer := strings.NewReplacer(
		VarProjectPath, ictx.ProjectPath,
		VarBranch, ictx.Branch,
		VarPhase, ictx.Phase,
		VarRole, ictx.Role,
	)

	parts := []string{strings.TrimSpace(replacer.Replace(base))}

	if g := strings.TrimSpace(ictx.PlanGuidance); g != "" {
		parts = append(parts, g)
	}

	if ictx.Collaboration && ictx.Role != "" {
		parts = append(parts, roleNote(ictx.Role, ictx.Drives))
	}

	if h := strings.TrimSpace(ictx.BackendHint); h != "" {
		parts = append(parts, h)
	}

	return Generated{Text: strings.Join(parts, "\n\n")}
}

func roleNote(role string, drives bool) string {
	if drives {
		return "You are acting as \"" + role + "\" and are the primary driver of this phase."
	}
	return "You are acting as \"" + role + "\". This phase is driven by another role: " +
		"you are available for consultation only. Do not edit the plan document."
}
