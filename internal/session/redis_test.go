package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, opts ...RedisOption) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestRedisStore(t)

	_, err := store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)

	sess := New(1, KindUpdateProject, "select")
	sess.SetAnswer("project_id", "recXYZ")
	require.NoError(t, store.Put(ctx, 1, sess))

	got, err := store.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, KindUpdateProject, got.Kind)
	require.Equal(t, StateID("select"), got.State)
	v, ok := got.Answer("project_id")
	require.True(t, ok)
	require.Equal(t, "recXYZ", v)

	require.NoError(t, store.Delete(ctx, 1))
	_, err = store.Get(ctx, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreTTL(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, WithTTL(time.Minute))

	require.NoError(t, store.Put(ctx, 5, New(5, KindSearch, "keyword")))

	mr.FastForward(2 * time.Minute)
	_, err := store.Get(ctx, 5)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRedisStoreKeyPrefix(t *testing.T) {
	ctx := context.Background()
	store, mr := newTestRedisStore(t, WithPrefix("custom:"))

	require.NoError(t, store.Put(ctx, 9, New(9, KindNewProject, "name")))
	require.True(t, mr.Exists("custom:9"))
}
