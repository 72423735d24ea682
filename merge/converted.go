package merge

import (
	"context"

	"github.com/jrife/mergekv/future"
	"github.com/jrife/mergekv/option"
)

// Conversion maps values between an outer representation V2 and
// the stored representation V1. Backward may fail.
type Conversion[V2, V1 any] interface {
	Forward(v V2) V1
	Backward(v V1) (V2, error)
}

// ConversionFuncs adapts a pair of functions to Conversion
type ConversionFuncs[V2, V1 any] struct {
	ForwardFunc  func(V2) V1
	BackwardFunc func(V1) (V2, error)
}

// Forward implements Conversion.Forward
func (funcs ConversionFuncs[V2, V1]) Forward(v V2) V1 {
	return funcs.ForwardFunc(v)
}

// Backward implements Conversion.Backward
func (funcs ConversionFuncs[V2, V1]) Backward(v V1) (V2, error) {
	return funcs.BackwardFunc(v)
}

var _ Merger[string, int] = (*Converted[string, int, string])(nil)

// Converted exposes a Merger of V1 values as a Merger of V2 values.
// Deltas are converted forward before merging and outcomes are
// converted backward. A failed backward conversion fails only the
// outcome of its key, with ErrConversion.
type Converted[K comparable, V2, V1 any] struct {
	inner      Merger[K, V1]
	conversion Conversion[V2, V1]
}

// NewConverted composes inner with conversion
func NewConverted[K comparable, V2, V1 any](inner Merger[K, V1], conversion Conversion[V2, V1]) *Converted[K, V2, V1] {
	return &Converted[K, V2, V1]{inner: inner, conversion: conversion}
}

// Merge implements Merger.Merge
func (c *Converted[K, V2, V1]) Merge(ctx context.Context, key K, delta V2) *future.Future[option.Option[V2]] {
	return c.backward(key, c.inner.Merge(ctx, key, c.conversion.Forward(delta)))
}

// MultiMerge implements Merger.MultiMerge
func (c *Converted[K, V2, V1]) MultiMerge(ctx context.Context, batch map[K]V2) map[K]*future.Future[option.Option[V2]] {
	converted := make(map[K]V1, len(batch))

	for key, delta := range batch {
		converted[key] = c.conversion.Forward(delta)
	}

	outcomes := make(map[K]*future.Future[option.Option[V2]], len(batch))

	for key, outcome := range c.inner.MultiMerge(ctx, converted) {
		outcomes[key] = c.backward(key, outcome)
	}

	return outcomes
}

// Get implements Merger.Get
func (c *Converted[K, V2, V1]) Get(ctx context.Context, key K) *future.Future[option.Option[V2]] {
	return c.backward(key, c.inner.Get(ctx, key))
}

func (c *Converted[K, V2, V1]) backward(key K, f *future.Future[option.Option[V1]]) *future.Future[option.Option[V2]] {
	return future.Map(f, func(v option.Option[V1]) (option.Option[V2], error) {
		inner, ok := v.Get()

		if !ok {
			return option.None[V2](), nil
		}

		outer, err := c.conversion.Backward(inner)

		if err != nil {
			return option.None[V2](), wrapError(OpConvert, key, err)
		}

		return option.Some(outer), nil
	})
}
