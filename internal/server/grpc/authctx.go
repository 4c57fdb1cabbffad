package grpcserver

import (
	"context"

	"github.com/gofrs/uuid/v5"
)

// callerKey is the context key of the authenticated caller. Only AuthUnary
// and tests set it.
type callerKey struct{}

// WithUserID returns ctx carrying the authenticated user id.
func WithUserID(ctx context.Context, id uuid.UUID) context.Context {
	return context.WithValue(ctx, callerKey{}, id)
}

// UserIDFromCtx reports the authenticated user id. The nil UUID never
// counts as authenticated.
func UserIDFromCtx(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(callerKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}
