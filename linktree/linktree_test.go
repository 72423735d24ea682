package linktree_test

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/linktree"
	"github.com/jrife/mergekv/option"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// concat is associative but not commutative so it
// detects any reordering of leaves
var concat = algebra.SemigroupFunc[string](func(a, b string) string { return a + b })

func letters(n int) []string {
	values := make([]string, n)

	for i := range values {
		values[i] = string(rune('a' + i%26))
	}

	return values
}

func TestRandomTreeReduction(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("root equals the ordered fold of present leaves", prop.ForAll(
		func(n int, seed int64, absentRate int) bool {
			rng := rand.New(rand.NewSource(seed))
			values := letters(n)
			present := make([]bool, n)
			leaves := linktree.NewLeaves[string](n)
			root := linktree.Random[string](rng, concat, linktree.Nodes(leaves))

			var expected strings.Builder
			anyPresent := false

			for i := range values {
				present[i] = rng.Intn(100) >= absentRate

				if present[i] {
					expected.WriteString(values[i])
					anyPresent = true
				}
			}

			var wg sync.WaitGroup

			for _, i := range rng.Perm(n) {
				wg.Add(1)

				go func(i int) {
					defer wg.Done()

					if present[i] {
						leaves[i].Link(option.Some(values[i]))
					} else {
						leaves[i].Link(option.None[string]())
					}
				}(i)
			}

			wg.Wait()

			result, err := root.Value().Wait(context.Background())

			if err != nil {
				return false
			}

			if !anyPresent {
				return result.IsNone()
			}

			return result == option.Some(expected.String())
		},
		gen.IntRange(0, 64),
		gen.Int64(),
		gen.IntRange(0, 100),
	))

	properties.TestingRun(t)
}

func TestBranchCombinesExactlyOnce(t *testing.T) {
	var combines int64

	sum := algebra.SemigroupFunc[int](func(a, b int) int {
		atomic.AddInt64(&combines, 1)

		return a + b
	})

	const n = 128

	for round := 0; round < 20; round++ {
		atomic.StoreInt64(&combines, 0)

		leaves := linktree.NewLeaves[int](n)
		root := linktree.Balanced[int](sum, linktree.Nodes(leaves))

		var wg sync.WaitGroup

		for i := range leaves {
			wg.Add(1)

			go func(i int) {
				defer wg.Done()
				leaves[i].Link(option.Some(i))
			}(i)
		}

		wg.Wait()

		result, err := root.Value().Wait(context.Background())

		if err != nil {
			t.Fatalf("expected err to be nil, got %#v", err)
		}

		if result != option.Some(n*(n-1)/2) {
			t.Fatalf("expected %d, got %v", n*(n-1)/2, result)
		}

		// A tree over n leaves has n-1 branches
		if combines != n-1 {
			t.Fatalf("expected %d combines, got %d", n-1, combines)
		}
	}
}

func TestBranchWaitsForBothChildren(t *testing.T) {
	left, right := linktree.NewLeaf[int](), linktree.NewLeaf[int]()
	branch := linktree.NewBranch[int](algebra.Sum[int]{}, left, right)

	left.Link(option.Some(1))

	if branch.Value().IsSettled() {
		t.Fatalf("expected branch to wait for its right child")
	}

	right.Link(option.None[int]())

	if v, ok, _ := branch.Value().Poll(); !ok || v != option.Some(1) {
		t.Fatalf("expected Some(1), got %v (settled: %t)", v, ok)
	}
}

func TestUnlinkedLeafBlocksRoot(t *testing.T) {
	leaves := linktree.NewLeaves[int](3)
	root := linktree.Balanced[int](algebra.Sum[int]{}, linktree.Nodes(leaves))

	leaves[0].Link(option.Some(1))
	leaves[2].Link(option.Some(2))

	if root.Value().IsSettled() {
		t.Fatalf("expected root to stay unresolved while a leaf is unlinked")
	}
}

func TestDependentLinkSeesFinalValue(t *testing.T) {
	first, second := linktree.NewLeaf[int](), linktree.NewLeaf[int]()
	root := linktree.NewBranch[int](algebra.Sum[int]{}, first, second)

	// second is derived from first's single final value
	first.Value().OnComplete(func(v option.Option[int], err error) {
		second.Link(option.Map(v, func(i int) int { return i * 10 }))
	})

	first.Link(option.Some(4))

	if first.TryLink(option.Some(5)) {
		t.Fatalf("expected the second link attempt to be refused")
	}

	if v, ok, _ := second.Value().Poll(); !ok || v != option.Some(40) {
		t.Fatalf("expected Some(40), got %v", v)
	}

	if v, _, _ := root.Value().Poll(); v != option.Some(44) {
		t.Fatalf("expected Some(44), got %v", v)
	}
}

func TestDoubleLinkPanics(t *testing.T) {
	leaf := linktree.NewLeaf[int]()
	leaf.Link(option.Some(1))

	defer func() {
		r := recover()

		err, ok := r.(*linktree.DoubleLinkError)

		if !ok {
			t.Fatalf("expected a *DoubleLinkError panic, got %#v", r)
		}

		if err.Linked != option.Some(1) {
			t.Fatalf("expected the panic to report the linked value, got %v", err.Linked)
		}
	}()

	leaf.Link(option.Some(2))
}

func TestEmptyAndReduce(t *testing.T) {
	if v, ok, _ := linktree.Balanced[int](algebra.Sum[int]{}, nil).Value().Poll(); !ok || v.IsSome() {
		t.Fatalf("expected an empty tree to be absent, got %v", v)
	}

	errFailed := errors.New("failed")
	values := []*future.Future[option.Option[int]]{
		future.Resolved(option.Some(1)),
		future.Resolved(option.None[int]()),
		future.Resolved(option.Some(2)),
	}

	if v, err := linktree.Reduce[int](algebra.Sum[int]{}, values).Wait(context.Background()); err != nil || v != option.Some(3) {
		t.Fatalf("expected (Some(3), nil), got (%v, %v)", v, err)
	}

	values = append(values, future.Failed[option.Option[int]](errFailed))

	if _, err := linktree.Reduce[int](algebra.Sum[int]{}, values).Wait(context.Background()); !errors.Is(err, errFailed) {
		t.Fatalf("expected errFailed, got %#v", err)
	}
}
