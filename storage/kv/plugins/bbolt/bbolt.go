package bbolt

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jrife/mergekv/storage/kv"
	bolt "go.etcd.io/bbolt"
)

const (
	// DriverName is the name of the bbolt plugin
	DriverName = "bbolt"
	// DefaultBucket is the bucket used when
	// Config.Bucket is empty
	DefaultBucket = "mergekv"
)

var _ kv.Plugin = (*Plugin)(nil)

// Plugin is the bbolt kv plugin
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

	if bucket, ok := options["bucket"]; ok {
		if bucketString, ok := bucket.(string); !ok {
			return nil, fmt.Errorf("\"bucket\" must be a string")
		} else {
			config.Bucket = bucketString
		}
	}

	store, err := New(config)

	if err != nil {
		return nil, err
	}

	return store, nil
}

// NewTempStore implements kv.Plugin.NewTempStore
func (plugin *Plugin) NewTempStore() (kv.Store, error) {
	return plugin.NewStore(kv.PluginOptions{
		"path": filepath.Join(os.TempDir(), fmt.Sprintf("bbolt-%s", uuid.New())),
	})
}

// Config contains configuration
// for a bbolt store
type Config struct {
	Path   string
	Bucket string
}

var _ kv.Store = (*Store)(nil)

// Store is a kv store whose keys live
// in a single bbolt bucket
type Store struct {
	db     *bolt.DB
	bucket []byte
}

// New opens the bbolt database at config.Path,
// creating it and its bucket if necessary
func New(config Config) (*Store, error) {
	if config.Bucket == "" {
		config.Bucket = DefaultBucket
	}

	db, err := bolt.Open(config.Path, 0666, nil)

	if err != nil {
		return nil, fmt.Errorf("could not open bbolt store at %s: %w", config.Path, err)
	}

	if err := db.Update(func(txn *bolt.Tx) error {
		_, err := txn.CreateBucketIfNotExists([]byte(config.Bucket))

		return err
	}); err != nil {
		db.Close()

		return nil, fmt.Errorf("could not ensure bucket %s exists: %w", config.Bucket, err)
	}

	return &Store{db: db, bucket: []byte(config.Bucket)}, nil
}

// seek returns the value of key in bucket. bbolt reports
// missing keys and empty values alike as nil so the cursor
// is used to tell them apart.
func seek(bucket *bolt.Bucket, key []byte) ([]byte, bool) {
	k, v := bucket.Cursor().Seek(key)

	if k == nil || !bytes.Equal(k, key) {
		return nil, false
	}

	value := make([]byte, len(v))
	copy(value, v)

	return value, true
}

// Get implements kv.Store.Get
func (store *Store) Get(key []byte) ([]byte, bool, error) {
	if err := kv.CheckKey(key); err != nil {
		return nil, false, err
	}

	var value []byte
	var found bool

	err := store.db.View(func(txn *bolt.Tx) error {
		value, found = seek(txn.Bucket(store.bucket), key)

		return nil
	})

	if err != nil {
		return nil, false, wrapError("could not read key", err)
	}

	return value, found, nil
}

// ForEach implements kv.Store.ForEach
func (store *Store) ForEach(fn func(key, value []byte) error) error {
	err := store.db.View(func(txn *bolt.Tx) error {
		return txn.Bucket(store.bucket).ForEach(func(k, v []byte) error {
			key := make([]byte, len(k))
			value := make([]byte, len(v))
			copy(key, k)
			copy(value, v)

			return fn(key, value)
		})
	})

	return wrapError("could not iterate", err)
}

// Put implements kv.Store.Put
func (store *Store) Put(key, value []byte) error {
	if err := kv.CheckPut(key, value); err != nil {
		return err
	}

	err := store.db.Update(func(txn *bolt.Tx) error {
		return txn.Bucket(store.bucket).Put(key, value)
	})

	return wrapError("could not put key", err)
}

// Delete implements kv.Store.Delete
func (store *Store) Delete(key []byte) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}

	err := store.db.Update(func(txn *bolt.Tx) error {
		return txn.Bucket(store.bucket).Delete(key)
	})

	return wrapError("could not delete key", err)
}

// Update implements kv.Store.Update. bbolt serializes read-write
// transactions so fn runs exactly once.
func (store *Store) Update(key []byte, fn kv.UpdateFunc) error {
	if err := kv.CheckKey(key); err != nil {
		return err
	}

	var fnErr error

	err := store.db.Update(func(txn *bolt.Tx) error {
		bucket := txn.Bucket(store.bucket)
		current, found := seek(bucket, key)
		newValue, keep, err := fn(current, found)

		if err != nil {
			fnErr = err

			return err
		}

		if !keep {
			return bucket.Delete(key)
		}

		if newValue == nil {
			fnErr = kv.ErrNilValue

			return fnErr
		}

		return bucket.Put(key, newValue)
	})

	if fnErr != nil {
		return fnErr
	}

	return wrapError("could not update key", err)
}

// Close implements kv.Store.Close
func (store *Store) Close() error {
	return store.db.Close()
}

// Purge implements kv.Store.Purge
func (store *Store) Purge() error {
	path := store.db.Path()

	if err := store.Close(); err != nil {
		return fmt.Errorf("could not close store: %w", err)
	}

	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("could not remove path %s: %w", path, err)
	}

	return nil
}

func wrapError(wrap string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, bolt.ErrDatabaseNotOpen):
		return kv.ErrClosed
	}

	return fmt.Errorf("%s: %w", wrap, err)
}
