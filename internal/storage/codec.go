package storage

import (
	"encoding/json"
	"fmt"
)

// Codec maps a domain entity to its stored representation and back.
// Pure transform: no I/O, shared by the redis and postgres backends.
type Codec[T any] struct {
	Kind string
}

// NewCodec creates the codec of one entity kind
func NewCodec[T any](kind string) Codec[T] {
	return Codec[T]{Kind: kind}
}

// Encode serializes entity as JSON
func (c Codec[T]) Encode(entity T) ([]byte, error) {
	data, err := json.Marshal(entity)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", c.Kind, err)
	}
	return data, nil
}

// Decode parses a stored JSON document
func (c Codec[T]) Decode(data []byte) (T, error) {
	var entity T
	if err := json.Unmarshal(data, &entity); err != nil {
		return entity, fmt.Errorf("decode %s: %w", c.Kind, err)
	}
	return entity, nil
}
