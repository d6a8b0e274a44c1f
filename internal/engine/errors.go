package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Code classifies recoverable transition failures. The caller corrects
// its input and retries; none of these leave the conversation mutated.
type Code string

const (
	CodeUnknownTrigger   Code = "unknown_trigger"
	CodeNoSuchEdge       Code = "no_such_edge"
	CodeRoleNotPermitted Code = "role_not_permitted"
	CodeReviewRequired   Code = "review_required"
	CodeOpenTasksRemain  Code = "open_tasks_remain"
)

// TransitionError is a recoverable transition failure with enough
// structured detail for the caller to self-correct.
type TransitionError struct {
	Code         Code
	Message      string
	CurrentPhase string
	TargetPhase  string
	Trigger      string

	// OpenTaskIDs names the unresolved work items when Code is
	// CodeOpenTasksRemain.
	OpenTaskIDs []string
}

func (e *TransitionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Code, e.Message)
	if len(e.OpenTaskIDs) > 0 {
		fmt.Fprintf(&b, " (open tasks: %s)", strings.Join(e.OpenTaskIDs, ", "))
	}
	return b.String()
}

// IsCode reports whether err is a TransitionError with the given code.
func IsCode(err error, code Code) bool {
	var te *TransitionError
	return errors.As(err, &te) && te.Code == code
}
