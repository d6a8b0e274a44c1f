package taskbackend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTaskList(t *testing.T) {
	output := `Tasks under T-1:
  T-2 [To Do] Write failing test
  T-3 [In Progress] Wire the review gate
  T-4 [Done] Sketch the design

2 of 3 open
`
	tasks := ParseTaskList(output)
	require.Len(t, tasks, 3)
	assert.Equal(t, Task{ID: "T-2", Status: "To Do", Title: "Write failing test"}, tasks[0])
	assert.Equal(t, "In Progress", tasks[1].Status)
	assert.Equal(t, "Sketch the design", tasks[2].Title)
}

func TestParseTaskList_Empty(t *testing.T) {
	assert.Empty(t, ParseTaskList(""))
	assert.Empty(t, ParseTaskList("No tasks found.\n"))
}

func TestParseCreatedTaskID(t *testing.T) {
	assert.Equal(t, "T-7", ParseCreatedTaskID("Created task T-7\n"))
	assert.Equal(t, "T-12", ParseCreatedTaskID("done. created task T-12 under T-1"))
	assert.Empty(t, ParseCreatedTaskID("something went wrong"))
}

func TestIsClosedStatus(t *testing.T) {
	tests := []struct {
		status string
		closed bool
	}{
		{"Done", true},
		{"done", true},
		{" Completed ", true},
		{"closed", true},
		{"To Do", false},
		{"In Progress", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			assert.Equal(t, tt.closed, IsClosedStatus(tt.status))
		})
	}
}
