package httpx

import (
	"context"

	"github.com/aussiebroadwan/marsweb/pkg/marsapi"
)

type ctxKey string

const (
	ctxKeyUser   ctxKey = "user"
	ctxKeyClient ctxKey = "session_client"
)

// WithSession stores the verified user and the request's session client.
func WithSession(ctx context.Context, user *marsapi.User, client *marsapi.Client) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return context.WithValue(ctx, ctxKeyClient, client)
}

// UserFromContext returns the user stored by the gatekeeper.
func UserFromContext(ctx context.Context) (*marsapi.User, bool) {
	u, ok := ctx.Value(ctxKeyUser).(*marsapi.User)
	return u, ok && u != nil
}

// ClientFromContext returns the session client stored by the gatekeeper.
func ClientFromContext(ctx context.Context) (*marsapi.Client, bool) {
	c, ok := ctx.Value(ctxKeyClient).(*marsapi.Client)
	return c, ok && c != nil
}
