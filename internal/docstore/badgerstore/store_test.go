package badgerstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/storetest"
)

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		s, err := Open("")
		require.NoError(t, err)
		return s
	})
}

func TestStoreOnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, docstore.Doc("tasks", "t1"), docstore.Document{"title": "disk"}))
	require.NoError(t, s.Close())

	reopened, err := Open(dir)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()

	snap, err := reopened.Get(ctx, docstore.Doc("tasks", "t1"))
	require.NoError(t, err)
	assert.Equal(t, "disk", snap.Data["title"])
}

func TestQueryDoesNotLeakAcrossCollectionPrefixes(t *testing.T) {
	ctx := context.Background()
	s, err := Open("")
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set(ctx, docstore.Doc("task", "a"), docstore.Document{}))
	require.NoError(t, s.Set(ctx, docstore.Doc("tasks", "b"), docstore.Document{}))

	snaps, err := s.Query(ctx, "task")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "a", snaps[0].Path.ID)
}
