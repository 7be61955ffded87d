package checkpoint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tangerg-labs/autoscholar/internal/apperr"
	"github.com/tangerg-labs/autoscholar/internal/model"
)

func TestMemoryStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	state := &model.SessionState{ThreadID: "t1", UserQuery: "graph neural networks"}
	require.NoError(t, store.Save(ctx, state))

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "t1", loaded.ThreadID)
	assert.Equal(t, "graph neural networks", loaded.UserQuery)
}

func TestMemoryStoreLoadMissing(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.Load(context.Background(), "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryStoreSaveIsolatesCaller(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	state := &model.SessionState{ThreadID: "t1", Logs: []string{"a"}}
	require.NoError(t, store.Save(ctx, state))

	state.Logs = append(state.Logs, "mutated after save")

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, loaded.Logs)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Save(ctx, &model.SessionState{ThreadID: "t1"}))
	require.NoError(t, store.Delete(ctx, "t1"))

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
