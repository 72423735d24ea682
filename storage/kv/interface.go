package kv

import (
	"errors"
)

var (
	// ErrClosed indicates that the store was closed
	ErrClosed = errors.New("store was closed")
	// ErrEmptyKey indicates that a key was nil or empty
	ErrEmptyKey = errors.New("key is nil or empty")
	// ErrNilValue indicates that a value was nil
	ErrNilValue = errors.New("value is nil")
)

// PluginOptions are driver-specific options
// such as "path"
type PluginOptions map[string]interface{}

// Plugin represents a kv storage plugin
type Plugin interface {
	// Name returns the name of the storage plugin
	Name() string
	// NewStore returns an instance of the plugin store
	NewStore(options PluginOptions) (Store, error)
	// NewTempStore returns an instance of the plugin store
	// initialized with some sane defaults. It is meant for
	// tests that need an initialized instance of the plugin's
	// store without knowing how to initialize it
	NewTempStore() (Store, error)
}

// MapReader is an interface for reading a
// key-value map
type MapReader interface {
	// Get gets a key. found is false if the key
	// does not exist. Get must return ErrEmptyKey if the
	// key is nil or empty.
	Get(key []byte) (value []byte, found bool, err error)
	// ForEach calls fn for every key-value pair in ascending
	// key order. Iteration stops at the first error returned by
	// fn and ForEach returns that error.
	ForEach(fn func(key, value []byte) error) error
}

// MapUpdater is an interface for updating a
// key-value map
type MapUpdater interface {
	// Put puts a key. Put must return ErrEmptyKey if
	// the key is nil or empty and ErrNilValue if the value
	// is nil.
	Put(key, value []byte) error
	// Delete deletes a key. It must return ErrEmptyKey if the key
	// is nil or empty. If the key doesn't exist it has no effect
	// and returns nil.
	Delete(key []byte) error
}

// Map combines MapReader and MapUpdater
type Map interface {
	MapReader
	MapUpdater
}

// UpdateFunc computes the new value of a key from its
// current value. Returning keep == false deletes the key.
// Returning an error aborts the update and leaves the key
// unchanged.
type UpdateFunc func(value []byte, found bool) (newValue []byte, keep bool, err error)

// Store is a kv store opened by a plugin
type Store interface {
	Map
	// Update atomically reads a key, passes its value to fn,
	// and writes the result. No other write to the key may
	// take effect between the read and the write. fn may be
	// called more than once by drivers that retry on conflict.
	Update(key []byte, fn UpdateFunc) error
	// Close closes the store. Calls to any method after Close
	// returns must return ErrClosed. Close must not return until
	// all concurrent operations have concluded.
	Close() error
	// Purge deletes the store and all its contents. A store
	// that owns its storage closes first. A view over part of
	// another store, such as one returned by Namespace, deletes
	// only the keys it sees and stays open.
	Purge() error
}

func checkKey(key []byte) error {
	if len(key) == 0 {
		return ErrEmptyKey
	}

	return nil
}

// CheckPut validates the arguments of Put.
// Drivers use it to enforce the Map contract.
func CheckPut(key, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}

	if value == nil {
		return ErrNilValue
	}

	return nil
}

// CheckKey validates a key.
// Drivers use it to enforce the Map contract.
func CheckKey(key []byte) error {
	return checkKey(key)
}
