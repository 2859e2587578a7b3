package storage

import (
	"errors"
	"fmt"
)

var ErrUnsupportedStore = errors.New("unsupported run store")

// NewStore opens the run store of the given kind. An empty kind is the memory
// store; sqlitePath is only read by the sqlite store.
func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return newSQLiteStore(sqlitePath)
	default:
		return nil, fmt.Errorf("%w %q: want memory or sqlite", ErrUnsupportedStore, kind)
	}
}

// CloseIfSupported releases stores that hold resources, such as the sqlite
// connection. The memory store has nothing to close.
func CloseIfSupported(store Store) error {
	if closer, ok := store.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}
