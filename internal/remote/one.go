package remote

import (
	"bytes"
	"encoding/json"
)

// One holds a to-one embedded relation. Stores return such an embed as
// null, as an object, or as an array; One accepts all three and always
// exposes zero or one value, so callers never branch on the wire shape.
type One[T any] struct {
	items []T
}

// Some returns a One holding v.
func Some[T any](v T) One[T] {
	return One[T]{items: []T{v}}
}

// Get returns the embedded value and whether one was present.
func (o One[T]) Get() (T, bool) {
	if len(o.items) == 0 {
		var zero T
		return zero, false
	}
	return o.items[0], true
}

// List returns the embed as a list of zero or one element.
func (o One[T]) List() []T {
	return o.items
}

func (o *One[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	o.items = nil
	switch {
	case len(b) == 0, bytes.Equal(b, []byte("null")):
		return nil
	case b[0] == '[':
		var list []T
		if err := json.Unmarshal(b, &list); err != nil {
			return err
		}
		if len(list) > 0 {
			o.items = list[:1]
		}
		return nil
	default:
		var v T
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		o.items = []T{v}
		return nil
	}
}

func (o One[T]) MarshalJSON() ([]byte, error) {
	if v, ok := o.Get(); ok {
		return json.Marshal(v)
	}
	return []byte("null"), nil
}
