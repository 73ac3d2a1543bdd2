// Package identity assigns each browser tab a client id for the event stream.
package identity

import (
	"context"
	"net/http"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

const (
	// ClientHeaderName carries the client id on API requests.
	ClientHeaderName = "X-Studio-Client-ID"
	// ClientQueryParam carries the client id on WebSocket upgrades, where
	// browsers cannot set headers.
	ClientQueryParam = "client"
)

type contextKey int

const clientIDKey contextKey = iota

var clientIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// ClientIDFromContext extracts the client id from the request context.
func ClientIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(clientIDKey).(string); ok {
		return v
	}
	return ""
}

// WithClientID returns a copy of ctx carrying id.
func WithClientID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, clientIDKey, id)
}

func sanitizeClientID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !clientIDPattern.MatchString(id) {
		return ""
	}
	return id
}

func clientIDFromRequest(r *http.Request) string {
	id := r.Header.Get(ClientHeaderName)
	if id == "" {
		id = r.URL.Query().Get(ClientQueryParam)
	}
	return sanitizeClientID(id)
}

// Middleware injects the caller's client id, generating one when the
// request carries none or an invalid one.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := clientIDFromRequest(r)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(ClientHeaderName, id)
		next.ServeHTTP(w, r.WithContext(WithClientID(r.Context(), id)))
	})
}
