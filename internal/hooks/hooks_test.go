package hooks

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder implements every hook point and appends its name to a shared
// trace so ordering can be asserted.
type recorder struct {
	name     string
	priority int
	trace    *[]string
	fail     error
}

func (r *recorder) Name() string  { return r.name }
func (r *recorder) Priority() int { return r.priority }

func (r *recorder) BeforeStart(ctx context.Context, hctx *Context) error {
	*r.trace = append(*r.trace, r.name)
	return r.fail
}

func (r *recorder) BeforePhaseTransition(ctx context.Context, hctx *Context, target string) error {
	*r.trace = append(*r.trace, r.name)
	return r.fail
}

func (r *recorder) AfterInstructionsGenerated(ctx context.Context, hctx *Context, instructions string) (string, error) {
	*r.trace = append(*r.trace, r.name)
	return instructions + " [" + r.name + "]", r.fail
}

func TestRegistry_PriorityOrder(t *testing.T) {
	var trace []string
	reg := NewRegistry()
	reg.Register(&recorder{name: "late", priority: 50, trace: &trace})
	reg.Register(&recorder{name: "early", priority: 10, trace: &trace})
	reg.Register(&recorder{name: "middle", priority: 30, trace: &trace})

	require.NoError(t, reg.RunBeforeStart(context.Background(), &Context{}))
	assert.Equal(t, []string{"early", "middle", "late"}, trace)
}

func TestRegistry_EqualPriorityKeepsRegistrationOrder(t *testing.T) {
	var trace []string
	reg := NewRegistry()
	reg.Register(&recorder{name: "first", priority: 10, trace: &trace})
	reg.Register(&recorder{name: "second", priority: 10, trace: &trace})

	require.NoError(t, reg.RunBeforeStart(context.Background(), &Context{}))
	assert.Equal(t, []string{"first", "second"}, trace)
}

func TestRegistry_TransformsAreThreaded(t *testing.T) {
	var trace []string
	reg := NewRegistry()
	reg.Register(&recorder{name: "a", priority: 1, trace: &trace})
	reg.Register(&recorder{name: "b", priority: 2, trace: &trace})

	out, err := reg.RunInstructionsGenerated(context.Background(), &Context{}, "base")
	require.NoError(t, err)
	assert.Equal(t, "base [a] [b]", out)
}

func TestRegistry_GuardErrorAbortsTransition(t *testing.T) {
	var trace []string
	boom := errors.New("policy says no")
	reg := NewRegistry()
	reg.Register(&recorder{name: "guard", priority: 1, trace: &trace, fail: boom})
	reg.Register(&recorder{name: "never", priority: 2, trace: &trace})

	err := reg.RunBeforePhaseTransition(context.Background(), &Context{}, "code")
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "guard")
	assert.Equal(t, []string{"guard"}, trace, "later hooks must not run after an abort")
}

func TestRegistry_EmptyRegistryIsNoop(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	require.NoError(t, reg.RunBeforeStart(ctx, &Context{}))
	require.NoError(t, reg.RunAfterStart(ctx, &Context{}))
	require.NoError(t, reg.RunBeforePhaseTransition(ctx, &Context{}, "x"))

	content, err := reg.RunPlanDocumentCreated(ctx, &Context{}, "doc")
	require.NoError(t, err)
	assert.Equal(t, "doc", content)
}

func TestJournal_RecordsEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal", "events.jsonl")
	j := NewJournal(path, nil)
	ctx := context.Background()
	hctx := &Context{ConversationID: "conv-1", WorkflowName: "minor", CurrentPhase: "explore"}

	require.NoError(t, j.AfterStart(ctx, hctx))
	require.NoError(t, j.BeforePhaseTransition(ctx, hctx, "implement"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"event":"start"`)
	assert.Contains(t, lines[1], `"target_phase":"implement"`)
}

func TestJournal_NeverAbortsTransitions(t *testing.T) {
	// An unwritable journal path must not block the caller.
	j := NewJournal(filepath.Join(string(os.PathSeparator), "dev", "null", "nope", "events.jsonl"), nil)
	err := j.BeforePhaseTransition(context.Background(), &Context{}, "implement")
	assert.NoError(t, err)
}
