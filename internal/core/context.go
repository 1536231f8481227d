package core

import "context"

type checkIDKey struct{}

func WithCheckID(ctx context.Context, checkID string) context.Context {
	if ctx == nil || checkID == "" {
		return ctx
	}
	return context.WithValue(ctx, checkIDKey{}, checkID)
}

func CheckIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(checkIDKey{}).(string); ok {
		return v
	}
	return ""
}
