package linktree

import (
	"math/rand"

	"github.com/jrife/mergekv/algebra"
	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
)

// Nodes converts leaves to nodes
func Nodes[V any](leaves []*Leaf[V]) []Node[V] {
	nodes := make([]Node[V], len(leaves))

	for i, leaf := range leaves {
		nodes[i] = leaf
	}

	return nodes
}

// Balanced builds a tree of minimal depth over nodes,
// preserving their order
func Balanced[V any](sg algebra.Semigroup[V], nodes []Node[V]) Node[V] {
	return build(sg, nodes, func(n int) int { return n / 2 })
}

// Random builds a tree over nodes whose shape is chosen by
// splitting every range at a random point. Node order is
// preserved.
func Random[V any](rng *rand.Rand, sg algebra.Semigroup[V], nodes []Node[V]) Node[V] {
	return build(sg, nodes, func(n int) int { return 1 + rng.Intn(n-1) })
}

func build[V any](sg algebra.Semigroup[V], nodes []Node[V], split func(n int) int) Node[V] {
	switch len(nodes) {
	case 0:
		return Empty[V]()
	case 1:
		return nodes[0]
	}

	mid := split(len(nodes))

	return NewBranch(sg, build(sg, nodes[:mid], split), build(sg, nodes[mid:], split))
}

// Reduce combines pending values in order. The result settles once
// every input has settled and is absent if every input is absent.
func Reduce[V any](sg algebra.Semigroup[V], values []*future.Future[option.Option[V]]) *future.Future[option.Option[V]] {
	nodes := make([]Node[V], len(values))

	for i, value := range values {
		nodes[i] = FromFuture(value)
	}

	return Balanced(sg, nodes).Value()
}
