// Package store keeps small JSON-serializable records by key: conversation snapshots for the
// in-process executor and chat sessions for the shell. Memory is the default; Redis lets
// several processes share state and survive restarts.
package store
