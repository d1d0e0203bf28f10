package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned by MustGet style helpers when a key is absent.
var ErrNotFound = errors.New("not found")

// Store is a keyed record store. Get reports absence with false rather than an error.
type Store[T any] interface {
	Get(ctx context.Context, key string) (T, bool, error)
	Put(ctx context.Context, key string, value T) error
	Delete(ctx context.Context, key string) error
}

// MustGet returns ErrNotFound for absent keys.
func MustGet[T any](ctx context.Context, s Store[T], key string) (T, error) {
	v, ok, err := s.Get(ctx, key)
	if err != nil {
		return v, err
	}
	if !ok {
		return v, ErrNotFound
	}
	return v, nil
}
