// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package manager

import (
	"context"

	"github.com/ManuGH/thesisgrey/internal/domain/session/model"
)

// Origin is the request fingerprint attached to audit rows.
type Origin struct {
	IPAddress string
	UserAgent string
}

type originKey struct{}

// ContextWithOrigin stores o for later saves made with ctx.
func ContextWithOrigin(ctx context.Context, o Origin) context.Context {
	return context.WithValue(ctx, originKey{}, o)
}

// OriginFromContext returns the stored origin, if any.
func OriginFromContext(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}

// withOrigin fills empty fingerprint fields of cc from ctx.
func withOrigin(ctx context.Context, cc model.ChangeContext) model.ChangeContext {
	o, ok := OriginFromContext(ctx)
	if !ok {
		return cc
	}
	if cc.IPAddress == "" {
		cc.IPAddress = o.IPAddress
	}
	if cc.UserAgent == "" {
		cc.UserAgent = o.UserAgent
	}
	return cc
}
