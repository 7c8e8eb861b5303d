package services

import (
	"context"

	"agency-portal/internal/domain/user"
)

type identityCtxKey struct{}

// WithIdentity stamps the authenticated identity onto the request context.
func WithIdentity(ctx context.Context, identity user.Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, identity)
}

// IdentityFromContext returns the authenticated identity, if any.
func IdentityFromContext(ctx context.Context) (user.Identity, bool) {
	identity, ok := ctx.Value(identityCtxKey{}).(user.Identity)
	return identity, ok
}
