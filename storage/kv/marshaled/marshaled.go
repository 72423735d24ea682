// Package marshaled layers typed keys and values
// over a byte-oriented kv store using codecs.
package marshaled

import (
	"fmt"

	"github.com/jrife/mergekv/storage/kv"
)

// Codec converts values of type T to and from bytes.
// Unmarshal(Marshal(v)) must equal v.
type Codec[T any] interface {
	Marshal(v T) ([]byte, error)
	Unmarshal(data []byte) (T, error)
}

// Map is like kv.Map except it marshals keys and values
type Map[K, V any] struct {
	Store  kv.Store
	Keys   Codec[K]
	Values Codec[V]
}

// New creates a Map over store
func New[K, V any](store kv.Store, keys Codec[K], values Codec[V]) *Map[K, V] {
	return &Map[K, V]{Store: store, Keys: keys, Values: values}
}

func (m *Map[K, V]) key(key K) ([]byte, error) {
	marshaledKey, err := m.Keys.Marshal(key)

	if err != nil {
		return nil, fmt.Errorf("could not marshal key %v: %w", key, err)
	}

	return marshaledKey, nil
}

// Get is like kv.Map.Get except it unmarshals the value
func (m *Map[K, V]) Get(key K) (V, bool, error) {
	var value V

	marshaledKey, err := m.key(key)

	if err != nil {
		return value, false, err
	}

	data, found, err := m.Store.Get(marshaledKey)

	if err != nil || !found {
		return value, false, err
	}

	value, err = m.Values.Unmarshal(data)

	if err != nil {
		return value, false, fmt.Errorf("could not unmarshal value of key %v: %w", key, err)
	}

	return value, true, nil
}

// Put is like kv.Map.Put except it marshals the key and value
func (m *Map[K, V]) Put(key K, value V) error {
	marshaledKey, err := m.key(key)

	if err != nil {
		return err
	}

	data, err := m.Values.Marshal(value)

	if err != nil {
		return fmt.Errorf("could not marshal value of key %v: %w", key, err)
	}

	return m.Store.Put(marshaledKey, data)
}

// Delete is like kv.Map.Delete except it marshals the key
func (m *Map[K, V]) Delete(key K) error {
	marshaledKey, err := m.key(key)

	if err != nil {
		return err
	}

	return m.Store.Delete(marshaledKey)
}

// Update is like kv.Store.Update except it marshals and
// unmarshals values
func (m *Map[K, V]) Update(key K, fn func(value V, found bool) (V, bool, error)) error {
	marshaledKey, err := m.key(key)

	if err != nil {
		return err
	}

	return m.Store.Update(marshaledKey, func(data []byte, found bool) ([]byte, bool, error) {
		var value V

		if found {
			var err error

			if value, err = m.Values.Unmarshal(data); err != nil {
				return nil, false, fmt.Errorf("could not unmarshal value of key %v: %w", key, err)
			}
		}

		newValue, keep, err := fn(value, found)

		if err != nil || !keep {
			return nil, false, err
		}

		newData, err := m.Values.Marshal(newValue)

		if err != nil {
			return nil, false, fmt.Errorf("could not marshal value of key %v: %w", key, err)
		}

		return newData, true, nil
	})
}

// ForEach is like kv.Map.ForEach except it unmarshals
// keys and values
func (m *Map[K, V]) ForEach(fn func(key K, value V) error) error {
	return m.Store.ForEach(func(k, v []byte) error {
		key, err := m.Keys.Unmarshal(k)

		if err != nil {
			return fmt.Errorf("could not unmarshal key %x: %w", k, err)
		}

		value, err := m.Values.Unmarshal(v)

		if err != nil {
			return fmt.Errorf("could not unmarshal value of key %v: %w", key, err)
		}

		return fn(key, value)
	})
}
