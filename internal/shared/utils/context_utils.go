package utils

import (
	"context"
	"errors"

	"talkwire/internal/shared/contextkeys"
)

var (
	// ErrUserIDNotFound is returned when no user id is present in the context.
	ErrUserIDNotFound = errors.New("user ID not found in context")
	// ErrUserHandleNotFound is returned when no user handle is present in the context.
	ErrUserHandleNotFound = errors.New("user handle not found in context")
)

// WithUserID returns a copy of ctx carrying the authenticated user's id.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, contextkeys.UserIDKey, userID)
}

// WithUserHandle returns a copy of ctx carrying the authenticated user's handle.
func WithUserHandle(ctx context.Context, handle string) context.Context {
	return context.WithValue(ctx, contextkeys.UserHandleKey, handle)
}

// GetUserIDFromContext extracts the authenticated user's id from the context.
func GetUserIDFromContext(ctx context.Context) (string, error) {
	userID, ok := ctx.Value(contextkeys.UserIDKey).(string)
	if !ok || userID == "" {
		return "", ErrUserIDNotFound
	}
	return userID, nil
}

// GetUserHandleFromContext extracts the authenticated user's handle from the context.
func GetUserHandleFromContext(ctx context.Context) (string, error) {
	handle, ok := ctx.Value(contextkeys.UserHandleKey).(string)
	if !ok || handle == "" {
		return "", ErrUserHandleNotFound
	}
	return handle, nil
}

// GetRequestIDFromContext extracts the request id from the context, if any.
func GetRequestIDFromContext(ctx context.Context) string {
	requestID, _ := ctx.Value(contextkeys.RequestIDKey).(string)
	return requestID
}
