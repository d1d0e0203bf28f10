package uuidx

import (
	"fmt"

	"github.com/google/uuid"
)

// New generates a new UUID using the version 7 format and returns it.
// Version 7 ids sort by creation time, which keeps conversation and turn ids
// in the order they were created when listed from a store.
// It panics if the UUID generation fails.
func New() uuid.UUID {
	return uuid.Must(uuid.NewV7())
}

// NewString generates a new UUID using the version 7 format and returns it as a string.
func NewString() string {
	return New().String()
}

// Parse parses an id received from a client (path parameter, workflow id suffix, ...).
// The nil UUID is rejected because it is never issued by New.
func Parse(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: nil uuid", s)
	}
	return id, nil
}
