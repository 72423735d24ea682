// Package algebra defines the combine capability used by mergeable
// stores: associative operators (semigroups) and, optionally, an
// identity element (monoids).
package algebra

import (
	"golang.org/x/exp/constraints"
)

// Semigroup combines two values with an associative operator:
// Combine(Combine(a, b), c) must equal Combine(a, Combine(b, c)).
type Semigroup[V any] interface {
	Combine(a, b V) V
}

// Monoid is a Semigroup with an identity element. Zero-collapsing
// stores treat any value for which IsZero returns true as absent.
type Monoid[V any] interface {
	Semigroup[V]
	// Zero returns the identity element
	Zero() V
	// IsZero returns true if v is the identity element
	IsZero(v V) bool
}

// Number is any type supporting +
type Number interface {
	constraints.Integer | constraints.Float
}

// SemigroupFunc adapts a plain function to the Semigroup interface
type SemigroupFunc[V any] func(a, b V) V

// Combine implements Semigroup.Combine
func (fn SemigroupFunc[V]) Combine(a, b V) V {
	return fn(a, b)
}

// Sum is the additive monoid over numbers. It is the
// operator behind distributed counters.
type Sum[N Number] struct{}

// Combine implements Semigroup.Combine
func (Sum[N]) Combine(a, b N) N {
	return a + b
}

// Zero implements Monoid.Zero
func (Sum[N]) Zero() N {
	return 0
}

// IsZero implements Monoid.IsZero
func (Sum[N]) IsZero(v N) bool {
	return v == 0
}

// Max keeps the larger value
type Max[T constraints.Ordered] struct{}

// Combine implements Semigroup.Combine
func (Max[T]) Combine(a, b T) T {
	if b > a {
		return b
	}

	return a
}

// Min keeps the smaller value
type Min[T constraints.Ordered] struct{}

// Combine implements Semigroup.Combine
func (Min[T]) Combine(a, b T) T {
	if b < a {
		return b
	}

	return a
}

// MapMonoid merges maps key-wise using Values. A key whose merged
// value is the identity of Values is dropped, so the empty map is
// the identity of MapMonoid. Combine never mutates its inputs.
type MapMonoid[K comparable, V any] struct {
	Values Monoid[V]
}

// Combine implements Semigroup.Combine
func (m MapMonoid[K, V]) Combine(a, b map[K]V) map[K]V {
	result := make(map[K]V, len(a)+len(b))

	for k, v := range a {
		if !m.Values.IsZero(v) {
			result[k] = v
		}
	}

	for k, v := range b {
		if existing, ok := result[k]; ok {
			v = m.Values.Combine(existing, v)
		}

		if m.Values.IsZero(v) {
			delete(result, k)

			continue
		}

		result[k] = v
	}

	return result
}

// Zero implements Monoid.Zero
func (m MapMonoid[K, V]) Zero() map[K]V {
	return map[K]V{}
}

// IsZero implements Monoid.IsZero
func (m MapMonoid[K, V]) IsZero(v map[K]V) bool {
	for _, value := range v {
		if !m.Values.IsZero(value) {
			return false
		}
	}

	return true
}

// Fold combines values left to right with sg. The second return
// value is false if values is empty.
func Fold[V any](sg Semigroup[V], values ...V) (V, bool) {
	var result V

	if len(values) == 0 {
		return result, false
	}

	result = values[0]

	for _, v := range values[1:] {
		result = sg.Combine(result, v)
	}

	return result, true
}

// AsMonoid returns sg as a Monoid if it is one
func AsMonoid[V any](sg Semigroup[V]) (Monoid[V], bool) {
	m, ok := sg.(Monoid[V])

	return m, ok
}
