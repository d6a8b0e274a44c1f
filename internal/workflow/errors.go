package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound indicates no workflow definition exists with the given name.
var ErrNotFound = errors.New("workflow not found")

// Issue is a single validation finding in a workflow definition.
type Issue struct {
	Code    string
	Message string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Message)
}

// Issue codes produced by Validate.
const (
	IssueMissingName         = "missing_name"
	IssueMissingInitialPhase = "missing_initial_phase"
	IssueUnknownInitialPhase = "unknown_initial_phase"
	IssueNoPhases            = "no_phases"
	IssueUnknownTarget       = "unknown_target"
	IssueDuplicateTrigger    = "duplicate_trigger"
	IssueEmptyTrigger        = "empty_trigger"
)

// DefinitionError reports a malformed or inconsistent workflow graph.
// It is fatal at load time; a definition that fails validation is never
// partially usable.
type DefinitionError struct {
	Workflow string
	Issues   []Issue
}

func (e *DefinitionError) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.String()
	}
	return fmt.Sprintf("workflow %q is invalid: %s", e.Workflow, strings.Join(msgs, "; "))
}
