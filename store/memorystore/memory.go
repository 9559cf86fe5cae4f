// Package memorystore is a process-local store.Store backed by go-cache.
// State is lost on restart and is not shared between replicas.
package memorystore

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/jrsteele09/go-auth-bridge/store"
)

const cleanupInterval = time.Minute

var (
	_ store.Store  = (*Store)(nil)
	_ store.Lister = (*Store)(nil)
)

type Store struct {
	c *gocache.Cache
	// takeLock serialises Take so a key is handed out once.
	takeLock sync.Mutex
}

func New() *Store {
	return &Store{c: gocache.New(gocache.NoExpiration, cleanupInterval)}
}

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	return bytes.Clone(v.([]byte)), nil
}

func (s *Store) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.NoExpiration
	}
	s.c.Set(key, bytes.Clone(value), ttl)
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.c.Delete(key)
	return nil
}

func (s *Store) Take(_ context.Context, key string) ([]byte, error) {
	s.takeLock.Lock()
	defer s.takeLock.Unlock()

	v, ok := s.c.Get(key)
	if !ok {
		return nil, store.ErrNotFound
	}
	s.c.Delete(key)
	return v.([]byte), nil
}

func (s *Store) Keys(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	for k := range s.c.Items() {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) Ping(context.Context) error {
	return nil
}

func (s *Store) Close() error {
	s.c.Flush()
	return nil
}
