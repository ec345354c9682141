package middleware

import "context"

type contextKey string

const (
	ContextKeyUserID    contextKey = "user_id"
	ContextKeySuperuser contextKey = "superuser"
)

func UserIDFromContext(ctx context.Context) (int64, bool) {
	v, ok := ctx.Value(ContextKeyUserID).(int64)
	return v, ok
}

func SuperuserFromContext(ctx context.Context) bool {
	v, ok := ctx.Value(ContextKeySuperuser).(bool)
	return ok && v
}
