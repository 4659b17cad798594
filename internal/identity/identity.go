package identity

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// Identity is the caller's resolved identity. It is passed explicitly into
// every operation that needs it; nothing reads it from ambient state.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// Zero reports whether the identity is unset.
func (id Identity) Zero() bool {
	return id.UserID == uuid.Nil
}

// ErrUnauthenticated indicates no identity could be resolved for a request.
var ErrUnauthenticated = errors.New("identity: unauthenticated")

type contextKey struct{}

// NewContext returns a context carrying the resolved identity. This is only
// a transport convenience for HTTP middleware; service layers still receive
// the identity as an argument.
func NewContext(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext extracts the identity resolved by the HTTP middleware.
func FromContext(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	if !ok || id.Zero() {
		return Identity{}, ErrUnauthenticated
	}
	return id, nil
}
