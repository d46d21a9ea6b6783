package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thenoetrevino/collabflow/internal/docstore"
	"github.com/thenoetrevino/collabflow/internal/docstore/storetest"
)

func newStore(t *testing.T, mr *miniredis.Miniredis, opts ...Option) *Store {
	t.Helper()
	return New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), opts...)
}

func TestStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) docstore.Store {
		mr, err := miniredis.Run()
		require.NoError(t, err)
		t.Cleanup(mr.Close)
		return newStore(t, mr)
	})
}

func TestDial(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s, err := Dial(context.Background(), "redis://"+mr.Addr(), WithPrefix("test"))
	require.NoError(t, err)
	defer func() { _ = s.Close() }()

	require.NoError(t, s.Set(context.Background(), docstore.Doc("boards", "b1"), docstore.Document{"title": "x"}))
	assert.True(t, mr.Exists("test:doc/boards/b1"))
	members, err := mr.SMembers("test:idx/boards")
	require.NoError(t, err)
	assert.Equal(t, []string{"b1"}, members)
}

func TestDialBadURL(t *testing.T) {
	_, err := Dial(context.Background(), "not a url")
	assert.Error(t, err)
}

func TestChangesReachOtherClients(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	writer := newStore(t, mr)
	reader := newStore(t, mr)
	defer func() { _ = writer.Close() }()
	defer func() { _ = reader.Close() }()

	ctx := context.Background()
	p := docstore.Doc("boards", "shared")
	ch := make(chan docstore.Snapshot, 8)
	unsub, err := reader.Subscribe(ctx, p, func(s docstore.Snapshot) { ch <- s })
	require.NoError(t, err)
	defer unsub()

	select {
	case s := <-ch:
		assert.False(t, s.Exists)
	case <-time.After(2 * time.Second):
		t.Fatal("no initial snapshot")
	}

	require.NoError(t, writer.Set(ctx, p, docstore.Document{"title": "from writer"}))
	select {
	case s := <-ch:
		assert.Equal(t, "from writer", s.Data["title"])
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
}

func TestQuerySkipsStaleIndexEntries(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	s := newStore(t, mr)
	defer func() { _ = s.Close() }()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, docstore.Doc("tasks", "t1"), docstore.Document{"title": "a"}))
	_, err = mr.SAdd("collabflow:idx/tasks", "ghost")
	require.NoError(t, err)

	snaps, err := s.Query(ctx, "tasks")
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "t1", snaps[0].Path.ID)
}
