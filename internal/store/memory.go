package store

import (
	"context"
	"errors"
	"sync"

	"github.com/serroba/link-registry/internal/shortener"
)

var errReadOnly = errors.New("store: write in read-only transaction")

// MemoryStore is an in-memory implementation of shortener.Store.
type MemoryStore struct {
	mu        sync.RWMutex
	links     map[shortener.ShortKey]shortener.LinkRecord
	owners    map[shortener.ShortKey]shortener.Identity
	retention map[shortener.Table]map[shortener.ShortKey]shortener.Retention
}

// NewMemoryStore creates a new in-memory link store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		links:  make(map[shortener.ShortKey]shortener.LinkRecord),
		owners: make(map[shortener.ShortKey]shortener.Identity),
		retention: map[shortener.Table]map[shortener.ShortKey]shortener.Retention{
			shortener.TableLinks:  {},
			shortener.TableOwners: {},
		},
	}
}

func (m *MemoryStore) View(_ context.Context, fn func(tx shortener.Tx) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return fn(&memoryTx{store: m})
}

func (m *MemoryStore) Update(_ context.Context, fn func(tx shortener.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := &memoryTx{
		store:     m,
		writable:  true,
		links:     make(map[shortener.ShortKey]*shortener.LinkRecord),
		owners:    make(map[shortener.ShortKey]*shortener.Identity),
		retention: make(map[retentionKey]shortener.Retention),
	}

	if err := fn(tx); err != nil {
		return err
	}

	tx.commit()

	return nil
}

// Len returns the number of live links and owner entries.
func (m *MemoryStore) Len() (links, owners int) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.links), len(m.owners)
}

// RetentionOf returns the last retention hint applied to an entry.
func (m *MemoryStore) RetentionOf(table shortener.Table, key shortener.ShortKey) (shortener.Retention, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.retention[table][key]

	return r, ok
}

type retentionKey struct {
	table shortener.Table
	key   shortener.ShortKey
}

// memoryTx stages writes and applies them on commit. A nil entry in links
// or owners marks a deletion.
type memoryTx struct {
	store     *MemoryStore
	writable  bool
	links     map[shortener.ShortKey]*shortener.LinkRecord
	owners    map[shortener.ShortKey]*shortener.Identity
	retention map[retentionKey]shortener.Retention
}

func (t *memoryTx) Link(key shortener.ShortKey) (*shortener.LinkRecord, error) {
	if staged, ok := t.links[key]; ok {
		if staged == nil {
			return nil, shortener.ErrNotFound
		}

		record := *staged

		return &record, nil
	}

	record, ok := t.store.links[key]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return &record, nil
}

func (t *memoryTx) Owner(key shortener.ShortKey) (shortener.Identity, error) {
	if staged, ok := t.owners[key]; ok {
		if staged == nil {
			return "", shortener.ErrNotFound
		}

		return *staged, nil
	}

	owner, ok := t.store.owners[key]
	if !ok {
		return "", shortener.ErrNotFound
	}

	return owner, nil
}

func (t *memoryTx) PutLink(key shortener.ShortKey, record *shortener.LinkRecord) error {
	if !t.writable {
		return errReadOnly
	}

	staged := *record
	t.links[key] = &staged

	return nil
}

func (t *memoryTx) PutOwner(key shortener.ShortKey, owner shortener.Identity) error {
	if !t.writable {
		return errReadOnly
	}

	t.owners[key] = &owner

	return nil
}

func (t *memoryTx) DeleteLink(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	t.links[key] = nil

	return nil
}

func (t *memoryTx) DeleteOwner(key shortener.ShortKey) error {
	if !t.writable {
		return errReadOnly
	}

	t.owners[key] = nil

	return nil
}

func (t *memoryTx) ExtendRetention(table shortener.Table, key shortener.ShortKey, r shortener.Retention) error {
	if !t.writable {
		return errReadOnly
	}

	t.retention[retentionKey{table: table, key: key}] = r

	return nil
}

func (t *memoryTx) commit() {
	s := t.store

	for key, record := range t.links {
		if record == nil {
			delete(s.links, key)
			delete(s.retention[shortener.TableLinks], key)

			continue
		}

		s.links[key] = *record
	}

	for key, owner := range t.owners {
		if owner == nil {
			delete(s.owners, key)
			delete(s.retention[shortener.TableOwners], key)

			continue
		}

		s.owners[key] = *owner
	}

	for rk, r := range t.retention {
		if rk.table == shortener.TableLinks {
			if _, ok := s.links[rk.key]; !ok {
				continue
			}
		} else if _, ok := s.owners[rk.key]; !ok {
			continue
		}

		s.retention[rk.table][rk.key] = r
	}
}

// Compile-time check.
var _ shortener.Store = (*MemoryStore)(nil)
