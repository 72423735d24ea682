package marshaled

import (
	"encoding/json"
	"fmt"

	"github.com/gogo/protobuf/proto"
	"github.com/jrife/mergekv/storage/kv/keys"
)

var (
	_ Codec[string] = String{}
	_ Codec[[]byte] = Bytes{}
	_ Codec[int64]  = Int64{}
	_ Codec[uint64] = Uint64{}
)

// String stores strings as their bytes
type String struct{}

// Marshal implements Codec.Marshal
func (String) Marshal(v string) ([]byte, error) {
	return []byte(v), nil
}

// Unmarshal implements Codec.Unmarshal
func (String) Unmarshal(data []byte) (string, error) {
	return string(data), nil
}

// Bytes stores byte slices unchanged
type Bytes struct{}

// Marshal implements Codec.Marshal
func (Bytes) Marshal(v []byte) ([]byte, error) {
	if v == nil {
		return []byte{}, nil
	}

	return v, nil
}

// Unmarshal implements Codec.Unmarshal
func (Bytes) Unmarshal(data []byte) ([]byte, error) {
	return data, nil
}

// Int64 stores int64s as 8 big-endian bytes
type Int64 struct{}

// Marshal implements Codec.Marshal
func (Int64) Marshal(v int64) ([]byte, error) {
	k := keys.Int64ToKey(v)

	return k[:], nil
}

// Unmarshal implements Codec.Unmarshal
func (Int64) Unmarshal(data []byte) (int64, error) {
	var k [8]byte

	if len(data) != len(k) {
		return 0, fmt.Errorf("expected %d bytes, got %d", len(k), len(data))
	}

	copy(k[:], data)

	return keys.KeyToInt64(k), nil
}

// Uint64 stores uint64s as 8 big-endian bytes
type Uint64 struct{}

// Marshal implements Codec.Marshal
func (Uint64) Marshal(v uint64) ([]byte, error) {
	k := keys.Uint64ToKey(v)

	return k[:], nil
}

// Unmarshal implements Codec.Unmarshal
func (Uint64) Unmarshal(data []byte) (uint64, error) {
	var k [8]byte

	if len(data) != len(k) {
		return 0, fmt.Errorf("expected %d bytes, got %d", len(k), len(data))
	}

	copy(k[:], data)

	return keys.KeyToUint64(k), nil
}

// JSON stores values as JSON documents
type JSON[T any] struct{}

// Marshal implements Codec.Marshal
func (JSON[T]) Marshal(v T) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements Codec.Unmarshal
func (JSON[T]) Unmarshal(data []byte) (T, error) {
	var v T

	err := json.Unmarshal(data, &v)

	return v, err
}

// Proto stores protobuf messages in their wire encoding.
// New must return an empty message to unmarshal into.
type Proto[M proto.Message] struct {
	New func() M
}

// Marshal implements Codec.Marshal
func (codec Proto[M]) Marshal(v M) ([]byte, error) {
	data, err := proto.Marshal(v)

	if err != nil {
		return nil, err
	}

	if data == nil {
		data = []byte{}
	}

	return data, nil
}

// Unmarshal implements Codec.Unmarshal
func (codec Proto[M]) Unmarshal(data []byte) (M, error) {
	m := codec.New()

	if err := proto.Unmarshal(data, m); err != nil {
		var zero M

		return zero, err
	}

	return m, nil
}
