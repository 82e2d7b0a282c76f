package types

import (
	"bytes"
	"encoding/json"
)

// Nullable tracks whether a JSON field was present, so PATCH-style updates can
// tell "leave unchanged" (Set false) apart from "clear" (Set true, Value nil).
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

	n.Set = true
	if bytes.Equal(trimmed, []byte("null")) {
		n.Value = nil
		return nil
	}

	var parsed T
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return err
	}
	n.Value = &parsed
	return nil
}

// Apply returns the new value when the field was present, otherwise current.
func (n Nullable[T]) Apply(current *T) *T {
	if !n.Set {
		return current
	}
	if n.Value == nil {
		return nil
	}
	v := *n.Value
	return &v
}
