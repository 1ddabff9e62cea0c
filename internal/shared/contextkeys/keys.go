package contextkeys

// contextKey is an unexported type to prevent collisions with context keys defined in
// other packages.
type contextKey string

// String makes contextKey satisfy the Stringer interface to assist with debugging.
func (c contextKey) String() string {
	return "talkwire context key " + string(c)
}

// UserIDKey is the key for the authenticated user's id in context.Context.
const UserIDKey = contextKey("userID")

// UserHandleKey is the key for the authenticated user's handle in context.Context.
const UserHandleKey = contextKey("userHandle")

// RequestIDKey is the key for the per-request correlation id in context.Context.
const RequestIDKey = contextKey("requestID")
