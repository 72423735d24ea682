package kv_test

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jrife/mergekv/storage/kv"
	"github.com/jrife/mergekv/storage/kv/plugins"
)

type storeModel map[string][]byte

func writeStore(store kv.Store, model storeModel) error {
	for key, value := range model {
		if err := store.Put([]byte(key), value); err != nil {
			return err
		}
	}

	return nil
}

func readStore(store kv.Store) (storeModel, error) {
	sm := storeModel{}

	err := store.ForEach(func(key, value []byte) error {
		sm[string(key)] = value

		return nil
	})

	if err != nil {
		return nil, err
	}

	return sm, nil
}

type tempStoreBuilder func(t *testing.T, model storeModel) kv.Store

func builder(plugin kv.Plugin) tempStoreBuilder {
	return func(t *testing.T, model storeModel) kv.Store {
		store, err := plugin.NewTempStore()

		if err != nil {
			t.Fatalf("Could not build a %s store: %s", plugin.Name(), err.Error())
		}

		t.Cleanup(func() { store.Purge() })

		if model != nil {
			if err := writeStore(store, model); err != nil {
				t.Fatalf("Could not populate %s store: %s", plugin.Name(), err.Error())
			}
		}

		return store
	}
}

func TestDrivers(t *testing.T) {
	for _, plugin := range plugins.Plugins() {
		t.Run(plugin.Name(), driverTest(builder(plugin)))
	}
}

func driverTest(builder tempStoreBuilder) func(t *testing.T) {
	return func(t *testing.T) {
		testDriver(builder, t)
	}
}

func testDriver(builder tempStoreBuilder, t *testing.T) {
	t.Run("get-put-delete", func(t *testing.T) { testGetPutDelete(builder, t) })
	t.Run("invalid-arguments", func(t *testing.T) { testInvalidArguments(builder, t) })
	t.Run("for-each", func(t *testing.T) { testForEach(builder, t) })
	t.Run("update", func(t *testing.T) { testUpdate(builder, t) })
	t.Run("concurrent-update", func(t *testing.T) { testConcurrentUpdate(builder, t) })
	t.Run("closed", func(t *testing.T) { testClosed(builder, t) })
	t.Run("namespace", func(t *testing.T) { testNamespace(builder, t) })
}

func testGetPutDelete(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, storeModel{
		"a":     []byte("value1"),
		"empty": []byte{},
	})

	testCases := map[string]struct {
		key   string
		value []byte
		found bool
	}{
		"existing": {
			key:   "a",
			value: []byte("value1"),
			found: true,
		},
		"empty-value": {
			key:   "empty",
			value: []byte{},
			found: true,
		},
		"missing": {
			key:   "b",
			found: false,
		},
	}

	for name, testCase := range testCases {
		t.Run(name, func(t *testing.T) {
			value, found, err := store.Get([]byte(testCase.key))

			if err != nil {
				t.Fatalf("expected err to be nil, got %#v", err)
			}

			if found != testCase.found {
				t.Fatalf("expected found to be %t, got %t", testCase.found, found)
			}

			if found && string(value) != string(testCase.value) {
				t.Fatalf("expected %q, got %q", testCase.value, value)
			}
		})
	}

	if err := store.Delete([]byte("a")); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if err := store.Delete([]byte("does-not-exist")); err != nil {
		t.Fatalf("expected deleting a missing key to be a no-op, got %#v", err)
	}

	if _, found, _ := store.Get([]byte("a")); found {
		t.Fatalf("expected a to be deleted")
	}
}

func testInvalidArguments(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, nil)

	if _, _, err := store.Get(nil); !errors.Is(err, kv.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %#v", err)
	}

	if err := store.Put([]byte{}, []byte("x")); !errors.Is(err, kv.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %#v", err)
	}

	if err := store.Put([]byte("a"), nil); !errors.Is(err, kv.ErrNilValue) {
		t.Fatalf("expected ErrNilValue, got %#v", err)
	}

	if err := store.Delete(nil); !errors.Is(err, kv.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %#v", err)
	}
}

func testForEach(builder tempStoreBuilder, t *testing.T) {
	model := storeModel{
		"c": []byte("3"),
		"a": []byte("1"),
		"b": []byte("2"),
	}
	store := builder(t, model)

	var order []string

	if err := store.ForEach(func(key, value []byte) error {
		order = append(order, string(key))

		return nil
	}); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if diff := cmp.Diff([]string{"a", "b", "c"}, order); diff != "" {
		t.Fatal(diff)
	}

	stop := errors.New("stop")

	if err := store.ForEach(func(key, value []byte) error { return stop }); !errors.Is(err, stop) {
		t.Fatalf("expected ForEach to return the callback's error, got %#v", err)
	}

	state, err := readStore(store)

	if err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if diff := cmp.Diff(model, state); diff != "" {
		t.Fatal(diff)
	}
}

func testUpdate(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, storeModel{"a": []byte("1")})

	if err := store.Update([]byte("a"), func(value []byte, found bool) ([]byte, bool, error) {
		if !found || string(value) != "1" {
			return nil, false, fmt.Errorf("unexpected current value %q (found: %t)", value, found)
		}

		return []byte("2"), true, nil
	}); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	abort := errors.New("abort")

	if err := store.Update([]byte("a"), func(value []byte, found bool) ([]byte, bool, error) {
		return []byte("3"), true, abort
	}); !errors.Is(err, abort) {
		t.Fatalf("expected abort, got %#v", err)
	}

	if value, _, _ := store.Get([]byte("a")); string(value) != "2" {
		t.Fatalf("expected an aborted update to leave the key unchanged, got %q", value)
	}

	if err := store.Update([]byte("a"), func(value []byte, found bool) ([]byte, bool, error) {
		return nil, false, nil
	}); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if _, found, _ := store.Get([]byte("a")); found {
		t.Fatalf("expected update to delete the key")
	}

	if err := store.Update([]byte("b"), func(value []byte, found bool) ([]byte, bool, error) {
		if found {
			return nil, false, fmt.Errorf("expected b to be missing")
		}

		return []byte{}, true, nil
	}); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if _, found, _ := store.Get([]byte("b")); !found {
		t.Fatalf("expected update to create the key")
	}
}

func testConcurrentUpdate(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, nil)

	const workers = 8
	const increments = 25

	var wg sync.WaitGroup

	for i := 0; i < workers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := 0; j < increments; j++ {
				if err := store.Update([]byte("counter"), func(value []byte, found bool) ([]byte, bool, error) {
					var n uint64

					if found {
						n = binary.BigEndian.Uint64(value)
					}

					next := make([]byte, 8)
					binary.BigEndian.PutUint64(next, n+1)

					return next, true, nil
				}); err != nil {
					t.Errorf("expected err to be nil, got %#v", err)
				}
			}
		}()
	}

	wg.Wait()

	value, _, err := store.Get([]byte("counter"))

	if err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if n := binary.BigEndian.Uint64(value); n != workers*increments {
		t.Fatalf("expected %d, got %d: updates were lost", workers*increments, n)
	}
}

func testClosed(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, nil)

	if err := store.Close(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if _, _, err := store.Get([]byte("a")); !errors.Is(err, kv.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %#v", err)
	}

	if err := store.Put([]byte("a"), []byte("b")); !errors.Is(err, kv.ErrClosed) {
		t.Fatalf("expected ErrClosed, got %#v", err)
	}
}

func testNamespace(builder tempStoreBuilder, t *testing.T) {
	store := builder(t, storeModel{
		"a":    []byte("outside"),
		"ns/a": []byte("1"),
		"ns/b": []byte("2"),
		"nt/a": []byte("after"),
	})
	ns := kv.Namespace(store, []byte("ns/"))

	if value, found, err := ns.Get([]byte("a")); err != nil || !found || string(value) != "1" {
		t.Fatalf("expected (1, true, nil), got (%s, %t, %#v)", value, found, err)
	}

	if err := ns.Put([]byte("c"), []byte("3")); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if err := ns.Update([]byte("b"), func(value []byte, found bool) ([]byte, bool, error) {
		return append(value, '0'), true, nil
	}); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if _, _, err := ns.Get(nil); !errors.Is(err, kv.ErrEmptyKey) {
		t.Fatalf("expected ErrEmptyKey, got %#v", err)
	}

	state, err := readStore(ns)

	if err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if diff := cmp.Diff(storeModel{"a": []byte("1"), "b": []byte("20"), "c": []byte("3")}, state); diff != "" {
		t.Fatal(diff)
	}

	if err := ns.Purge(); err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if _, found, err := ns.Get([]byte("a")); err != nil || found {
		t.Fatalf("expected a purged namespace to stay open and empty, got (%t, %#v)", found, err)
	}

	state, err = readStore(store)

	if err != nil {
		t.Fatalf("expected err to be nil, got %#v", err)
	}

	if diff := cmp.Diff(storeModel{"a": []byte("outside"), "nt/a": []byte("after")}, state); diff != "" {
		t.Fatal(diff)
	}
}
