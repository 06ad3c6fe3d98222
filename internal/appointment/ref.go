package appointment

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref is a reference the backend may send either as a bare id string or as
// the populated object.
type Ref[T any] struct {
	id  string
	obj *T
}

func RefTo[T any](id string) Ref[T] {
	return Ref[T]{id: id}
}

func Populated[T any](id string, obj T) Ref[T] {
	return Ref[T]{id: id, obj: &obj}
}

// ID returns the referenced id whichever form was received.
func (r Ref[T]) ID() string { return r.id }

// Resolved returns the populated object, if the backend sent one.
func (r Ref[T]) Resolved() (*T, bool) {
	return r.obj, r.obj != nil
}

func (r Ref[T]) IsZero() bool { return r.id == "" && r.obj == nil }

// MarshalJSON writes the form that was received. A populated object always
// carries the reference id under _id, even when it arrived keyed by id.
func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.obj != nil {
		return r.marshalObject()
	}
	if r.id == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.id)
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = Ref[T]{}
		return nil
	case data[0] == '"':
		var id string
		if err := json.Unmarshal(data, &id); err != nil {
			return err
		}
		*r = Ref[T]{id: id}
		return nil
	case data[0] == '{':
		var obj T
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		var keys struct {
			MongoID string `json:"_id"`
			ID      string `json:"id"`
		}
		if err := json.Unmarshal(data, &keys); err != nil {
			return err
		}
		id := keys.MongoID
		if id == "" {
			id = keys.ID
		}
		*r = Ref[T]{id: id, obj: &obj}
		return nil
	default:
		return fmt.Errorf("reference must be an id string or an object, got %s", data)
	}
}

func (r Ref[T]) marshalObject() ([]byte, error) {
	data, err := json.Marshal(r.obj)
	if err != nil || r.id == "" {
		return data, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, fmt.Errorf("marshal reference: %w", err)
	}
	if raw, ok := fields["_id"]; ok && string(raw) != `""` {
		return data, nil
	}
	id, err := json.Marshal(r.id)
	if err != nil {
		return nil, err
	}
	fields["_id"] = id
	return json.Marshal(fields)
}
