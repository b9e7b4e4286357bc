package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type contextKey string

const (
	apiKeyIDKey  contextKey = "api_key_id"
	keyPrefixKey contextKey = "key_prefix"
	requestIDKey contextKey = "request_id"
)

// WithAPIKey records the authenticated key on ctx.
func WithAPIKey(ctx context.Context, id uuid.UUID, prefix string) context.Context {
	ctx = context.WithValue(ctx, apiKeyIDKey, id)
	return context.WithValue(ctx, keyPrefixKey, prefix)
}

// APIKeyID returns the ID of the key that authenticated r.
func APIKeyID(r *http.Request) (uuid.UUID, bool) {
	id, ok := r.Context().Value(apiKeyIDKey).(uuid.UUID)
	return id, ok
}

// KeyPrefix returns the public prefix of the key that authenticated r.
func KeyPrefix(r *http.Request) (string, bool) {
	prefix, ok := r.Context().Value(keyPrefixKey).(string)
	return prefix, ok
}

// RequestID returns the ID assigned by Logger.
func RequestID(r *http.Request) string {
	id, _ := r.Context().Value(requestIDKey).(string)
	return id
}
