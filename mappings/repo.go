package mappings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-bridge/store"
)

// ErrListUnsupported is returned by List when the store cannot enumerate keys.
var ErrListUnsupported = errors.New("store does not support listing")

type Repo interface {
	Get(ctx context.Context, email string) (*Mapping, error)
	Upsert(ctx context.Context, mapping *Mapping) error
	Delete(ctx context.Context, email string) error
	List(ctx context.Context) ([]*Mapping, error)
}

var _ Repo = (*StoreRepo)(nil)

// StoreRepo keeps mappings under the "mapping:" namespace with no expiry.
type StoreRepo struct {
	store   store.Store
	nowTime func() time.Time
}

func NewRepo(s store.Store) *StoreRepo {
	return &StoreRepo{store: s, nowTime: time.Now}
}

func key(email string) string {
	return store.Key(store.NamespaceMapping, NormalizeEmail(email))
}

// Get returns the mapping for email or store.ErrNotFound.
func (r *StoreRepo) Get(ctx context.Context, email string) (*Mapping, error) {
	if NormalizeEmail(email) == "" {
		return nil, store.ErrNotFound
	}
	raw, err := r.store.Get(ctx, key(email))
	if err != nil {
		return nil, err
	}
	var m Mapping
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("[mappings.Get] corrupt mapping for %s: %w", NormalizeEmail(email), err)
	}
	return &m, nil
}

func (r *StoreRepo) Upsert(ctx context.Context, mapping *Mapping) error {
	if mapping == nil {
		return errors.New("[mappings.Upsert] mapping cannot be nil")
	}
	if err := mapping.Validate(); err != nil {
		return fmt.Errorf("[mappings.Upsert] %w", err)
	}
	m := *mapping
	m.Email = NormalizeEmail(m.Email)
	m.Credential = strings.TrimSpace(m.Credential)
	if m.CreatedAt.IsZero() {
		m.CreatedAt = r.nowTime().UTC()
	}
	raw, err := json.Marshal(&m)
	if err != nil {
		return fmt.Errorf("[mappings.Upsert] %w", err)
	}
	return r.store.Put(ctx, key(m.Email), raw, 0)
}

func (r *StoreRepo) Delete(ctx context.Context, email string) error {
	return r.store.Delete(ctx, key(email))
}

// List returns every mapping sorted by email.
func (r *StoreRepo) List(ctx context.Context) ([]*Mapping, error) {
	lister, ok := r.store.(store.Lister)
	if !ok {
		return nil, ErrListUnsupported
	}
	keys, err := lister.Keys(ctx, store.NamespaceMapping+":")
	if err != nil {
		return nil, fmt.Errorf("[mappings.List] %w", err)
	}
	result := make([]*Mapping, 0, len(keys))
	for _, k := range keys {
		m, err := r.Get(ctx, strings.TrimPrefix(k, store.NamespaceMapping+":"))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Email < result[j].Email })
	return result, nil
}
