// Package storetest holds behaviour checks shared by every store.Store backend.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-bridge/store"
	"github.com/stretchr/testify/require"
)

// Expirer moves a backend's notion of time forward so TTL expiry can be
// observed without sleeping.
type Expirer func(d time.Duration)

// RunConformance runs the shared checks against stores built by newStore.
func RunConformance(t *testing.T, newStore func(t *testing.T) (store.Store, Expirer)) {
	t.Helper()
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		s, _ := newStore(t)
		_, err := s.Get(ctx, "grant:missing")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("put and get", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Put(ctx, "mapping:user@example.com", []byte("v1"), 0))
		v, err := s.Get(ctx, "mapping:user@example.com")
		require.NoError(t, err)
		require.Equal(t, []byte("v1"), v)

		require.NoError(t, s.Put(ctx, "mapping:user@example.com", []byte("v2"), 0))
		v, err = s.Get(ctx, "mapping:user@example.com")
		require.NoError(t, err)
		require.Equal(t, []byte("v2"), v)
	})

	t.Run("delete", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Put(ctx, "session:abc", []byte("v"), time.Hour))
		require.NoError(t, s.Delete(ctx, "session:abc"))
		_, err := s.Get(ctx, "session:abc")
		require.ErrorIs(t, err, store.ErrNotFound)
		require.NoError(t, s.Delete(ctx, "session:abc"))
	})

	t.Run("ttl expiry", func(t *testing.T) {
		s, expire := newStore(t)
		require.NoError(t, s.Put(ctx, "grant:short", []byte("v"), 200*time.Millisecond))
		require.NoError(t, s.Put(ctx, "mapping:forever", []byte("v"), 0))
		expire(300 * time.Millisecond)
		_, err := s.Get(ctx, "grant:short")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Take(ctx, "grant:short")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Get(ctx, "mapping:forever")
		require.NoError(t, err)
	})

	t.Run("take is single use", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Put(ctx, "grant:once", []byte("v"), time.Minute))
		v, err := s.Take(ctx, "grant:once")
		require.NoError(t, err)
		require.Equal(t, []byte("v"), v)
		_, err = s.Take(ctx, "grant:once")
		require.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.Get(ctx, "grant:once")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("concurrent take has one winner", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Put(ctx, "grant:race", []byte("v"), time.Minute))
		var wins atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := s.Take(ctx, "grant:race"); err == nil {
					wins.Add(1)
				}
			}()
		}
		wg.Wait()
		require.Equal(t, int32(1), wins.Load())
	})

	t.Run("keys by prefix", func(t *testing.T) {
		s, _ := newStore(t)
		lister, ok := s.(store.Lister)
		require.True(t, ok)
		for i := 0; i < 3; i++ {
			require.NoError(t, s.Put(ctx, fmt.Sprintf("mapping:user%d@example.com", i), []byte("v"), 0))
		}
		require.NoError(t, s.Put(ctx, "session:xyz", []byte("v"), time.Hour))
		keys, err := lister.Keys(ctx, "mapping:")
		require.NoError(t, err)
		sort.Strings(keys)
		require.Equal(t, []string{
			"mapping:user0@example.com",
			"mapping:user1@example.com",
			"mapping:user2@example.com",
		}, keys)
	})

	t.Run("ping", func(t *testing.T) {
		s, _ := newStore(t)
		require.NoError(t, s.Ping(ctx))
	})
}
