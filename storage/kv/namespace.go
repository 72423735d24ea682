package kv

import (
	"bytes"
	"errors"

	"github.com/jrife/mergekv/storage/kv/keys"
)

var errStopIteration = errors.New("stop iteration")

// Namespace returns a view of store that only sees keys prefixed
// with ns. Keys passed to and returned from the view have the prefix
// stripped. Closing the view closes store. Purging the view deletes
// only the keys in the namespace and leaves both the view and store
// open.
func Namespace(store Store, ns []byte) Store {
	return &namespacedStore{store: store, ns: append([]byte(nil), ns...)}
}

type namespacedStore struct {
	store Store
	ns    []byte
}

func (nsStore *namespacedStore) key(key []byte) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}

	return keys.Namespace(nsStore.ns, key), nil
}

func (nsStore *namespacedStore) Get(key []byte) ([]byte, bool, error) {
	k, err := nsStore.key(key)

	if err != nil {
		return nil, false, err
	}

	return nsStore.store.Get(k)
}

func (nsStore *namespacedStore) Put(key, value []byte) error {
	k, err := nsStore.key(key)

	if err != nil {
		return err
	}

	return nsStore.store.Put(k, value)
}

func (nsStore *namespacedStore) Delete(key []byte) error {
	k, err := nsStore.key(key)

	if err != nil {
		return err
	}

	return nsStore.store.Delete(k)
}

func (nsStore *namespacedStore) Update(key []byte, fn UpdateFunc) error {
	k, err := nsStore.key(key)

	if err != nil {
		return err
	}

	return nsStore.store.Update(k, fn)
}

func (nsStore *namespacedStore) ForEach(fn func(key, value []byte) error) error {
	err := nsStore.store.ForEach(func(key, value []byte) error {
		if !bytes.HasPrefix(key, nsStore.ns) {
			// keys are visited in order so nothing after this is in the namespace
			if keys.Compare(key, nsStore.ns) > 0 {
				return errStopIteration
			}

			return nil
		}

		// strip the namespace prefix
		if len(key) == len(nsStore.ns) {
			return nil
		}

		return fn(key[len(nsStore.ns):], value)
	})

	if errors.Is(err, errStopIteration) {
		return nil
	}

	return err
}

func (nsStore *namespacedStore) Close() error {
	return nsStore.store.Close()
}

func (nsStore *namespacedStore) Purge() error {
	var doomed [][]byte

	if err := nsStore.ForEach(func(key, value []byte) error {
		doomed = append(doomed, append([]byte(nil), key...))

		return nil
	}); err != nil {
		return err
	}

	for _, key := range doomed {
		if err := nsStore.Delete(key); err != nil {
			return err
		}
	}

	return nil
}
