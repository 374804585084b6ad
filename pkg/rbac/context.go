package rbac

import "context"

type userIDCtxKey struct{}

// SetUserIDToContext stores the id of the user an authorization check runs for.
func SetUserIDToContext(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDCtxKey{}, userID)
}

// GetUserIDFromContext retrieves the user id stored by SetUserIDToContext.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDCtxKey{}).(string)
	return id, ok && id != ""
}
