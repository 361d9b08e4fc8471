package types

import (
	"bytes"
	"encoding/json"
)

// Nullable tracks whether a JSON field was present and whether it was null.
// Set=false means the field was omitted; Set=true with a nil Value means an
// explicit null.
type Nullable[T any] struct {
	Set   bool
	Value *T
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Nullable[T]) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	if bytes.Equal(trimmed, []byte("null")) {
		n.Set = true
		n.Value = nil
		return nil
	}

	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Set = true
	n.Value = &parsed
	return nil
}

// Some builds a present, non-null value.
func Some[T any](v T) Nullable[T] {
	return Nullable[T]{Set: true, Value: &v}
}

// Null builds an explicit null.
func Null[T any]() Nullable[T] {
	return Nullable[T]{Set: true}
}
