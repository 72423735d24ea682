package leveldb

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"github.com/jrife/mergekv/storage/kv"
	"github.com/syndtr/goleveldb/leveldb"
)

const (
	// DriverName is the name of the leveldb plugin
	DriverName = "leveldb"
)

var _ kv.Plugin = (*Plugin)(nil)

// Plugin is the leveldb kv plugin
type Plugin struct {
}

// Name implements kv.Plugin.Name
func (plugin *Plugin) Name() string {
	return DriverName
}

// NewStore implements kv.Plugin.NewStore
func (plugin *Plugin) NewStore(options kv.PluginOptions) (kv.Store, error) {
	var config Config

	if path, ok := options["path"]; !ok {
		return nil, fmt.Errorf("\"path\" is required")
	} else if pathString, ok := path.(string); !ok {
		return nil, fmt.Errorf("\"path\" must be a string")
	} else {
		config.Path = pathString
	}

	return New(config)
}

// NewTempStore implements kv.Plugin.NewTempStore
func (plugin *Plugin) NewTempStore() (kv.Store, error) {
	return plugin.NewStore(kv.PluginOptions{
		"path": filepath.Join(os.TempDir(), fmt.Sprintf("leveldb-%s", uuid.New())),
	})
}

// Config contains configuration
// for a leveldb store
type Config struct {
	Path string
}

var _ kv.Store = (*Store)(nil)

// Store is a kv store backed by a leveldb database
type Store struct {
	// leveldb allows only one open transaction at a time.
	// Update holds txMu for the lifetime of its transaction.
	txMu sync.Mutex
	db   *leveldb.DB
	path string
}

// New opens the leveldb database at config.Path,
// creating it if necessary
func New(config Config) (*Store, error) {
	db, err := leveldb.OpenFile(config.Path, nil)

	if err != nil {
		return nil, fmt.Errorf("could not open leveldb store at %s: %w", config.Path, err)
	}

	return &Store{db: db, path: config.Path}, nil
}

// Get implements kv.Store.Get
func (store *Store) Get(key []byte) ([]byte, bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, false, err
	}

	value, err := store.db.Get(key, nil)

	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, false, nil
	}

	if err != nil {
		return nil, false, wrapError("could not read key", err)
	}

	if value == nil {
		value = []byte{}
	}

	return value, true, nil
}

// ForEach implements kv.Store.ForEach
func (store *Store) ForEach(fn func(key, value []byte) error) error {
	it := store.db.NewIterator(nil, nil)
	defer it.Release()

	for it.Next() {
		key := make([]byte, len(it.Key()))
		value := make([]byte, len(it.Value()))
		copy(key, it.Key())
		copy(value, it.Value())

		if err := fn(key, value); err != nil {
			return err
		}
	}

	return wrapError("could not iterate", it.Error())
}

// Put implements kv.Store.Put
func (store *Store) Put(key, value []byte) error {
	if err := kv.CheckPut(key, value); err != nil {
		return err
	}

	return wrapError("could not put key", store.db.Put(key, value, nil))
}

// Delete implements kv.Store.Delete
func (store *Store) Delete(key []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}

	return wrapError("could not delete key", store.db.Delete(key, nil))
}

// Update implements kv.Store.Update. Writes made outside of a
// transaction block until the transaction commits or is discarded.
func (store *Store) Update(key []byte, fn kv.UpdateFunc) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}

	store.txMu.Lock()
	defer store.txMu.Unlock()

	txn, err := store.db.OpenTransaction()

	if err != nil {
		return wrapError("could not open transaction", err)
	}

	current, err := txn.Get(key, nil)
	found := true

	if errors.Is(err, leveldb.ErrNotFound) {
		current, found, err = nil, false, nil
	} else if current == nil {
		current = []byte{}
	}

	if err != nil {
		txn.Discard()

		return wrapError("could not read key", err)
	}

	newValue, keep, err := fn(current, found)

	if err != nil {
		txn.Discard()

		return err
	}

	if !keep {
		err = txn.Delete(key, nil)
	} else if newValue == nil {
		err = kv.ErrNilValue
	} else {
		err = txn.Put(key, newValue, nil)
	}

	if err != nil {
		txn.Discard()

		return wrapError("could not write key", err)
	}

	return wrapError("could not commit transaction", txn.Commit())
}

// Close implements kv.Store.Close
func (store *Store) Close() error {
	return wrapError("could not close store", store.db.Close())
}

// Purge implements kv.Store.Purge
func (store *Store) Purge() error {
	if err := store.Close(); err != nil && !errors.Is(err, kv.ErrClosed) {
		return err
	}

	if err := os.RemoveAll(store.path); err != nil {
		return fmt.Errorf("could not remove path %s: %w", store.path, err)
	}

	return nil
}

func wrapError(wrap string, err error) error {
	switch {
	case err == nil, errors.Is(err, kv.ErrNilValue):
		return err
	case errors.Is(err, leveldb.ErrClosed):
		return kv.ErrClosed
	}

	return fmt.Errorf("%s: %w", wrap, err)
}
