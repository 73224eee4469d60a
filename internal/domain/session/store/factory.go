// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package store

import (
	"errors"
	"fmt"
)

// ErrUnknownBackend is returned by OpenStore for backends it does not embed.
var ErrUnknownBackend = errors.New("unknown store backend")

// OpenStore opens one of the embedded backends: "sqlite" (the default when
// backend is empty) or "memory". Postgres is opened through gormstore.
func OpenStore(backend, path string) (Store, error) {
	switch backend {
	case "memory":
		return NewMemoryStore(), nil
	case "", "sqlite":
		if path == "" {
			return nil, errors.New("sqlite backend requires a path")
		}
		return NewSqliteStore(path)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, backend)
}
