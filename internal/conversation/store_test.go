package conversation

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextID_Deterministic(t *testing.T) {
	a := ContextID("/home/dev/project", "main")
	b := ContextID("/home/dev/project", "main")
	c := ContextID("/home/dev/project", "feature/auth")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Regexp(t, `^conv-[0-9a-f]{16}$`, a)
}

func TestStore_PutGet(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	ctx := context.Background()

	conv := &Context{
		ID:           ContextID("/p", "main"),
		ProjectPath:  "/p",
		Branch:       "main",
		WorkflowName: "minor",
		CurrentPhase: "explore",
		PlanStrategy: StrategyInline,
	}
	require.NoError(t, store.Put(ctx, conv))

	got, err := store.Get(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, conv.ID, got.ID)
	assert.Equal(t, "explore", got.CurrentPhase)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestStore_GetMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	_, err := store.Get(context.Background(), "conv-missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_PutRequiresID(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	err := store.Put(context.Background(), &Context{})
	require.Error(t, err)
}

func TestStore_DeleteIdempotent(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	ctx := context.Background()

	conv := &Context{ID: "conv-abc", ProjectPath: "/p"}
	require.NoError(t, store.Put(ctx, conv))

	require.NoError(t, store.Delete(ctx, "conv-abc"))
	_, err := store.Get(ctx, "conv-abc")
	require.ErrorIs(t, err, ErrNotFound)

	// Second delete of the same record is still success.
	require.NoError(t, store.Delete(ctx, "conv-abc"))
}

func TestStore_Lock(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	release := store.Lock("conv-abc")
	done := make(chan struct{})
	go func() {
		r := store.Lock("conv-abc")
		r()
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	select {
	case <-done:
		t.Fatal("second lock acquired while first still held")
	default:
	}

	release()
	<-done
}
