package core

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Ref points at another record. Clients send the id; the server answers with
// the populated record when it can resolve it and with the bare id otherwise.
type Ref[T any] struct {
	ID  string
	Doc *T
}

// RefTo builds an unpopulated reference.
func RefTo[T any](id string) Ref[T] {
	return Ref[T]{ID: id}
}

// Populated returns a reference carrying doc.
func Populated[T any](id string, doc T) Ref[T] {
	return Ref[T]{ID: id, Doc: &doc}
}

func (r Ref[T]) IsZero() bool { return r.ID == "" }

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.Doc != nil {
		return json.Marshal(r.Doc)
	}
	if r.ID == "" {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID)
}

func (r *Ref[T]) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	*r = Ref[T]{}
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	switch b[0] {
	case '"':
		return json.Unmarshal(b, &r.ID)
	case '{':
		var idOnly struct {
			ID string `json:"_id"`
		}
		if err := json.Unmarshal(b, &idOnly); err != nil {
			return err
		}
		var doc T
		if err := json.Unmarshal(b, &doc); err != nil {
			return err
		}
		r.ID = idOnly.ID
		r.Doc = &doc
		return nil
	}
	return fmt.Errorf("reference must be an id string or an object, got %s", string(b))
}
