package taskbackend

import (
	"regexp"
	"strings"
)

// PendingTaskID is the plan-document placeholder for a phase whose backend
// task has not been created yet.
const PendingTaskID = "TBD"

// taskLineRe matches one task in the tracker's plain listing format:
//
//	T-12 [In Progress] Wire the review gate
var taskLineRe = regexp.MustCompile(`^\s*(\S+)\s+\[([^\]]+)\]\s+(.+?)\s*$`)

// createdRe extracts the task ID from tracker create output, e.g.
// "Created task T-7".
var createdRe = regexp.MustCompile(`(?i)created task\s+(\S+)`)

// closedStatuses are tracker statuses that count as resolved work.
var closedStatuses = map[string]bool{
	"done":      true,
	"completed": true,
	"complete":  true,
	"closed":    true,
	"archived":  true,
	"cancelled": true,
}

// ParseTaskList parses the tracker's plain-text task listing. Lines that
// do not look like tasks (headers, separators, blank lines) are ignored.
func ParseTaskList(output string) []Task {
	var tasks []Task
	for _, line := range strings.Split(output, "\n") {
		m := taskLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		tasks = append(tasks, Task{
			ID:     m[1],
			Status: strings.TrimSpace(m[2]),
			Title:  m[3],
		})
	}
	return tasks
}

// ParseCreatedTaskID extracts the new task's ID from create output.
// Returns "" when the output doesn't contain one.
func ParseCreatedTaskID(output string) string {
	m := createdRe.FindStringSubmatch(output)
	if m == nil {
		return ""
	}
	return m[1]
}

// IsClosedStatus reports whether a tracker status counts as resolved.
func IsClosedStatus(status string) bool {
	return closedStatuses[strings.ToLower(strings.TrimSpace(status))]
}
