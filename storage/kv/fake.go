package kv

import (
	"bytes"
	"sync"

	"github.com/emirpasic/gods/maps/treemap"
)

var _ Store = (*FakeStore)(nil)

// FakeStore is an in-memory implementation of
// the Store interface
type FakeStore struct {
	mu     sync.RWMutex
	m      *treemap.Map
	closed bool
}

// NewFakeStore creates a new FakeStore
func NewFakeStore() *FakeStore {
	return &FakeStore{m: treemap.NewWith(func(a, b interface{}) int {
		return bytes.Compare(a.([]byte), b.([]byte))
	})}
}

// Get implements Store.Get
func (store *FakeStore) Get(key []byte) ([]byte, bool, error) {
	if err := checkKey(key); err != nil {
		return nil, false, err
	}

	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.closed {
		return nil, false, ErrClosed
	}

	v, ok := store.m.Get(key)

	if !ok {
		return nil, false, nil
	}

	return clone(v.([]byte)), true, nil
}

// ForEach implements Store.ForEach
func (store *FakeStore) ForEach(fn func(key, value []byte) error) error {
	store.mu.RLock()
	defer store.mu.RUnlock()

	if store.closed {
		return ErrClosed
	}

	iter := store.m.Iterator()

	for iter.Next() {
		if err := fn(clone(iter.Key().([]byte)), clone(iter.Value().([]byte))); err != nil {
			return err
		}
	}

	return nil
}

// Put implements Store.Put
func (store *FakeStore) Put(key, value []byte) error {
	if err := CheckPut(key, value); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return ErrClosed
	}

	store.m.Put(clone(key), clone(value))

	return nil
}

// Delete implements Store.Delete
func (store *FakeStore) Delete(key []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return ErrClosed
	}

	store.m.Remove(key)

	return nil
}

// Update implements Store.Update
func (store *FakeStore) Update(key []byte, fn UpdateFunc) error {
	if err := checkKey(key); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if store.closed {
		return ErrClosed
	}

	var current []byte
	v, found := store.m.Get(key)

	if found {
		current = clone(v.([]byte))
	}

	newValue, keep, err := fn(current, found)

	if err != nil {
		return err
	}

	if !keep {
		store.m.Remove(key)

		return nil
	}

	if newValue == nil {
		return ErrNilValue
	}

	store.m.Put(clone(key), clone(newValue))

	return nil
}

// Close implements Store.Close
func (store *FakeStore) Close() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.closed = true

	return nil
}

// Purge implements Store.Purge
func (store *FakeStore) Purge() error {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.closed = true
	store.m.Clear()

	return nil
}

func clone(b []byte) []byte {
	c := make([]byte, len(b))
	copy(c, b)

	return c
}
