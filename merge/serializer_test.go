package merge

import (
	"testing"

	"github.com/jrife/mergekv/future"
)

func TestKeyQueue(t *testing.T) {
	q := newKeyQueue[string]()
	first := future.New[int]()
	second := future.New[int]()
	other := future.New[int]()
	started := map[string]bool{}

	task := func(name string, f *future.Future[int]) func() *future.Future[int] {
		return func() *future.Future[int] {
			started[name] = true

			return f
		}
	}

	firstResult := serialize(q, "a", task("first", first))
	secondResult := serialize(q, "a", task("second", second))
	otherResult := serialize(q, "b", task("other", other))

	if !started["first"] || started["second"] || !started["other"] {
		t.Fatalf("expected only the head of each key's queue to start, got %v", started)
	}

	if pending := q.pending(); pending != 2 {
		t.Fatalf("expected 2 keys pending, got %d", pending)
	}

	first.Resolve(1)

	if !started["second"] {
		t.Fatalf("expected the second task to start once the first settled")
	}

	if v, ok, err := firstResult.Poll(); !ok || err != nil || v != 1 {
		t.Fatalf("expected (1, true, nil), got (%d, %t, %#v)", v, ok, err)
	}

	other.Resolve(3)

	if pending := q.pending(); pending != 1 {
		t.Fatalf("expected 1 key pending, got %d", pending)
	}

	second.Resolve(2)

	if pending := q.pending(); pending != 0 {
		t.Fatalf("expected the queue to drain, got %d keys pending", pending)
	}

	if !secondResult.IsSettled() || !otherResult.IsSettled() {
		t.Fatalf("expected every result to settle")
	}
}
