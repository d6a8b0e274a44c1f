package workflow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDefinition = `
name: sample
description: "Sample workflow for tests"
initial_state: explore
states:
  explore:
    description: "Look around"
    default_instructions: "Explore the code"
    transitions:
      - trigger: exploration_complete
        to: build
        instructions: "Start building"
        transition_reason: "Exploration finished"
  build:
    description: "Build it"
    default_instructions: "Build the thing"
    transitions:
      - trigger: build_complete
        to: ship
        transition_reason: "Build finished"
      - trigger: need_more_context
        to: explore
        transition_reason: "Build surfaced unknowns"
  ship:
    description: "Ship it"
    default_instructions: "Ship the thing"
    transitions:
      - trigger: shipped
        to: explore
        transition_reason: "Cycle restarts"
        role: releaser
        review_perspectives:
          - quality
`

func TestParse_ValidDefinition(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)

	assert.Equal(t, "sample", def.Name)
	assert.Equal(t, PhaseID("explore"), def.InitialPhase)
	assert.Len(t, def.Phases, 3)

	// Declaration order must survive parsing.
	assert.Equal(t, []PhaseID{"explore", "build", "ship"}, def.PhaseOrder())

	build, ok := def.Phase("build")
	require.True(t, ok)
	assert.Len(t, build.Transitions, 2)

	tr, ok := build.TransitionByTrigger("build_complete")
	require.True(t, ok)
	assert.Equal(t, PhaseID("ship"), tr.To)
	assert.False(t, tr.RequiresReview())

	ship, ok := def.Phase("ship")
	require.True(t, ok)
	shipped, ok := ship.TransitionByTrigger("shipped")
	require.True(t, ok)
	assert.True(t, shipped.RequiresReview())
	assert.Equal(t, "releaser", shipped.Role)
}

func TestParse_UnknownTransitionTarget(t *testing.T) {
	doc := `
name: broken
initial_state: a
states:
  a:
    transitions:
      - trigger: go
        to: nowhere
`
	def, err := Parse([]byte(doc))
	require.Error(t, err)
	assert.Nil(t, def, "a failed load must never produce a partial definition")

	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	require.Len(t, defErr.Issues, 1)
	assert.Equal(t, IssueUnknownTarget, defErr.Issues[0].Code)
}

func TestParse_UnknownInitialPhase(t *testing.T) {
	doc := `
name: broken
initial_state: missing
states:
  a:
    transitions: []
`
	_, err := Parse([]byte(doc))
	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.Equal(t, IssueUnknownInitialPhase, defErr.Issues[0].Code)
}

func TestParse_DuplicateTrigger(t *testing.T) {
	doc := `
name: broken
initial_state: a
states:
  a:
    transitions:
      - trigger: go
        to: a
      - trigger: go
        to: a
`
	_, err := Parse([]byte(doc))
	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	require.Len(t, defErr.Issues, 1)
	assert.Equal(t, IssueDuplicateTrigger, defErr.Issues[0].Code)
}

func TestParse_CollectsAllIssues(t *testing.T) {
	doc := `
name: ""
initial_state: missing
states:
  a:
    transitions:
      - trigger: ""
        to: nowhere
`
	_, err := Parse([]byte(doc))
	var defErr *DefinitionError
	require.True(t, errors.As(err, &defErr))
	assert.GreaterOrEqual(t, len(defErr.Issues), 3)
}

func TestHasCollaboration(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)
	assert.True(t, def.HasCollaboration())

	solo := `
name: solo
initial_state: a
states:
  a:
    transitions:
      - trigger: loop
        to: a
`
	soloDef, err := Parse([]byte(solo))
	require.NoError(t, err)
	assert.False(t, soloDef.HasCollaboration())
}

func TestTransitionsTo(t *testing.T) {
	def, err := Parse([]byte(sampleDefinition))
	require.NoError(t, err)

	build, _ := def.Phase("build")
	edges := build.TransitionsTo("explore")
	require.Len(t, edges, 1)
	assert.Equal(t, "need_more_context", edges[0].Trigger)

	assert.Empty(t, build.TransitionsTo("build"))
}
