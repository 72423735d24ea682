package keys

import (
	"bytes"
	"encoding/binary"
)

// Int64ToKey constructs a key from an
// int64
func Int64ToKey(i int64) [8]byte {
	var k [8]byte

	binary.BigEndian.PutUint64(k[:], uint64(i))

	return k
}

// KeyToInt64 constructs an int64 from a
// byte array
func KeyToInt64(k [8]byte) int64 {
	return int64(binary.BigEndian.Uint64(k[:]))
}

// Uint64ToKey constructs a key from a
// uint64
func Uint64ToKey(i uint64) [8]byte {
	var k [8]byte

	binary.BigEndian.PutUint64(k[:], i)

	return k
}

// KeyToUint64 constructs a uint64 from a
// byte array
func KeyToUint64(k [8]byte) uint64 {
	return binary.BigEndian.Uint64(k[:])
}

// Key is a single key
type Key []byte

// Compare compares two keys
// -1 means a < b
// 1 means a > b
// 0 means a = b
func Compare(a, b Key) int {
	return bytes.Compare(a, b)
}

// Namespace returns key prefixed with ns
func Namespace(ns []byte, key []byte) Key {
	k := make([]byte, 0, len(ns)+len(key))
	k = append(k, ns...)

	return append(k, key...)
}
