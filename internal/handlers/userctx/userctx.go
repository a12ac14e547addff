package userctx

import (
	"context"

	"github.com/nkiryanov/greenpoints/internal/models"
)

type ctxKey string

const (
	principalKey ctxKey = "principal"
	trackKey     ctxKey = "track"
)

type tracked struct {
	p  models.Principal
	ok bool
}

// Track returns a context that remembers the caller authenticated further down the handler chain.
// The returned func reports it and must be called after the chain returns
func Track(ctx context.Context) (context.Context, func() (models.Principal, bool)) {
	t := &tracked{}
	return context.WithValue(ctx, trackKey, t), func() (models.Principal, bool) {
		return t.p, t.ok
	}
}

// Create a new context with the authenticated caller
func New(ctx context.Context, p models.Principal) context.Context {
	if t, ok := ctx.Value(trackKey).(*tracked); ok {
		t.p, t.ok = p, true
	}
	return context.WithValue(ctx, principalKey, p)
}

// Extract the caller from the context
func FromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}
