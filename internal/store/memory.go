package store

import (
	"context"

	"github.com/alphadose/haxmap"
)

type memoryStore[T any] struct {
	items *haxmap.Map[string, T]
}

// Memory keeps records in process.
func Memory[T any]() Store[T] {
	return &memoryStore[T]{items: haxmap.New[string, T]()}
}

func (m *memoryStore[T]) Get(ctx context.Context, key string) (T, bool, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, false, err
	}
	v, ok := m.items.Get(key)
	return v, ok, nil
}

func (m *memoryStore[T]) Put(ctx context.Context, key string, value T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.Set(key, value)
	return nil
}

func (m *memoryStore[T]) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.items.Del(key)
	return nil
}
