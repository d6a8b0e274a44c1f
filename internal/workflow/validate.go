package workflow

import "fmt"

// Validate checks the referential integrity of a workflow graph.
// It returns all findings rather than stopping at the first, so a workflow
// author can fix a definition in one pass.
//
// Rules:
//   - the definition has a name and at least one phase
//   - the initial phase is a declared phase
//   - every transition target is a declared phase
//   - trigger names are unique within a phase
//
// Role values are opaque strings; workflows may declare arbitrary roles,
// so no role validation happens here.
func Validate(def *Definition) []Issue {
	var issues []Issue

	if def.Name == "" {
		issues = append(issues, Issue{
			Code:    IssueMissingName,
			Message: "workflow name is required",
		})
	}

	if len(def.Phases) == 0 {
		issues = append(issues, Issue{
			Code:    IssueNoPhases,
			Message: "workflow declares no phases",
		})
		return issues
	}

	if def.InitialPhase == "" {
		issues = append(issues, Issue{
			Code:    IssueMissingInitialPhase,
			Message: "initial_state is required",
		})
	} else if _, ok := def.Phases[def.InitialPhase]; !ok {
		issues = append(issues, Issue{
			Code:    IssueUnknownInitialPhase,
			Message: fmt.Sprintf("initial_state %q is not a declared phase", def.InitialPhase),
		})
	}

	for _, id := range def.order {
		phase := def.Phases[id]
		seen := make(map[string]bool, len(phase.Transitions))
		for i := range phase.Transitions {
			tr := &phase.Transitions[i]

			if tr.Trigger == "" {
				issues = append(issues, Issue{
					Code:    IssueEmptyTrigger,
					Message: fmt.Sprintf("phase %q has a transition with no trigger", id),
				})
			} else if seen[tr.Trigger] {
				// Ambiguous triggers are a definition error, not a
				// runtime lookup problem.
				issues = append(issues, Issue{
					Code:    IssueDuplicateTrigger,
					Message: fmt.Sprintf("phase %q declares trigger %q more than once", id, tr.Trigger),
				})
			}
			seen[tr.Trigger] = true

			if _, ok := def.Phases[tr.To]; !ok {
				issues = append(issues, Issue{
					Code:    IssueUnknownTarget,
					Message: fmt.Sprintf("phase %q transition %q targets unknown phase %q", id, tr.Trigger, tr.To),
				})
			}
		}
	}

	return issues
}
