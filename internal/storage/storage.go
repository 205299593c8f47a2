// Package storage provides the durable key-value backends the session is
// persisted to. Every backend is addressed by plain string keys and scopes
// them under a namespace so several environments can share one backend.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the key has never been set or was removed.
var ErrNotFound = errors.New("storage: key not found")

// Storage is synchronous get/set/remove-by-key persistence that survives a
// process restart. Remove on a missing key is not an error.
type Storage interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends holding connections or file handles.
type Closer interface {
	Close() error
}

// Close releases s when the backend holds resources.
func Close(s Storage) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}

func namespaced(namespace, key string) string {
	if namespace == "" {
		return key
	}
	return namespace + "/" + key
}
