package auth

import "context"

type contextKey struct{}

// WithAdminEmail attaches the authenticated admin's email to the context.
func WithAdminEmail(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, contextKey{}, email)
}

// AdminEmailFromContext returns the authenticated admin's email, or "" when
// the request did not pass the admin session check.
func AdminEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(contextKey{}).(string)
	return email
}
