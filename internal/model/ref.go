package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Ref apunta a otro documento. Puede estar sin resolver (solo se conoce el id)
// o resuelto (el documento se cargó junto con él).
// En BD siempre se guarda el ObjectID pelado.
type Ref[T any] struct {
	ID  primitive.ObjectID
	doc *T
}

// Unresolved devuelve una referencia que solo conoce el id.
func Unresolved[T any](id primitive.ObjectID) Ref[T] {
	return Ref[T]{ID: id}
}

// Resolved devuelve una referencia con el documento cargado.
func Resolved[T any](id primitive.ObjectID, doc T) Ref[T] {
	return Ref[T]{ID: id, doc: &doc}
}

// Resolved devuelve el documento cargado, si lo hay.
func (r Ref[T]) Resolved() (T, bool) {
	if r.doc == nil {
		var zero T
		return zero, false
	}
	return *r.doc, true
}

// IsZero indica si la referencia no apunta a nada.
func (r Ref[T]) IsZero() bool {
	return r.ID.IsZero()
}

// Resolve reemplaza el documento cargado y conserva el id.
func (r Ref[T]) Resolve(doc T) Ref[T] {
	return Resolved(r.ID, doc)
}

func (r Ref[T]) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if r.ID.IsZero() {
		return bson.TypeNull, nil, nil
	}
	return bson.MarshalValue(r.ID)
}

func (r *Ref[T]) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bson.TypeNull, bson.TypeUndefined:
		*r = Ref[T]{}
		return nil
	case bson.TypeObjectID:
		id, ok := raw.ObjectIDOK()
		if !ok {
			return fmt.Errorf("ref: malformed object id")
		}
		*r = Unresolved[T](id)
		return nil
	case bson.TypeEmbeddedDocument:
		var head struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := raw.Unmarshal(&head); err != nil {
			return err
		}
		var doc T
		if err := raw.Unmarshal(&doc); err != nil {
			return err
		}
		*r = Resolved(head.ID, doc)
		return nil
	default:
		return fmt.Errorf("ref: unsupported bson type %s", t)
	}
}

func (r Ref[T]) MarshalJSON() ([]byte, error) {
	if r.doc != nil {
		return json.Marshal(r.doc)
	}
	if r.ID.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(r.ID.Hex())
}

func (r *Ref[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*r = Ref[T]{}
		return nil
	case len(data) > 0 && data[0] == '"':
		var hex string
		if err := json.Unmarshal(data, &hex); err != nil {
			return err
		}
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return fmt.Errorf("ref: %w", err)
		}
		*r = Unresolved[T](id)
		return nil
	default:
		var head struct {
			ID primitive.ObjectID `json:"_id"`
		}
		if err := json.Unmarshal(data, &head); err != nil {
			return err
		}
		var doc T
		if err := json.Unmarshal(data, &doc); err != nil {
			return err
		}
		*r = Resolved(head.ID, doc)
		return nil
	}
}
