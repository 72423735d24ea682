// Package kv provides an interface for implementing
// kv drivers that mergeable stores can be layered on.
//
// A kv plugin is a factory for stores. A store is a flat map
// from byte keys to byte values with single-key reads and writes
// plus one atomic read-modify-write primitive, Update. Drivers
// must allow every method to be called concurrently. Get, Put, and
// Delete on the same key from different goroutines may interleave
// arbitrarily; Update must behave as if it were the only operation
// touching its key for its whole duration.
//
// Keys must be non-empty. Values may be empty but not nil. Absence is
// reported separately from the value so that an empty value and a
// missing key are never confused.
package kv
