// Package kv provides the key/value storage backends the forum store is built on.
//
// A Backend treats values as opaque byte blobs. Durable backends (Redis, SQL, MongoDB)
// survive process restarts; the in-memory backend is the fallback used when no durable
// backend is configured or reachable, and in tests.
package kv

import (
	"context"
	"errors"
)

// Kind reports whether a backend survives process restarts.
type Kind string

const (
	// KindDurable is a backend whose data outlives the process.
	KindDurable Kind = "durable"
	// KindFallback is the process-local backend. Data is lost on restart.
	KindFallback Kind = "fallback"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kv: key not found")

	// ErrUnavailable wraps every I/O failure of a backend.
	ErrUnavailable = errors.New("kv: backend unavailable")
)

// Backend is the minimal storage contract shared by every implementation.
type Backend interface {
	// Get returns the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every key that starts with prefix, sorted.
	Keys(ctx context.Context, prefix string) ([]string, error)

	// Kind reports whether the backend is durable.
	Kind() Kind

	// Name identifies the implementation ("redis", "postgres", "memory", ...).
	Name() string
}
