// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package health

import (
	"context"
	"errors"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
)

const probeUserID = "__health_probe__"

// UserReader is the single store read the probe needs.
type UserReader interface {
	GetUser(ctx context.Context, id string) (*model.User, error)
}

// StoreProbe reads a user that never exists; ErrNotFound proves the store answered.
func StoreProbe(st UserReader) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := st.GetUser(ctx, probeUserID)
		if err == nil || errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
}
