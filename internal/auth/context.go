package auth

import "context"

type ctxKey struct{}

// WithUserID stores the authenticated user id in ctx.
func WithUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// UserIDFrom returns the authenticated user id, if any.
func UserIDFrom(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)
	return id, ok && id > 0
}
