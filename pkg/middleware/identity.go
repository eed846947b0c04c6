package middleware

import (
	"context"
	"net/http"
	"strings"
)

// UserIDHeader carries the acting user. Authentication happens upstream.
const UserIDHeader = "X-User-ID"

type userIDKey struct{}

// UserID returns the acting user of r, or "" for anonymous requests.
func UserID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(UserIDHeader))
}

// Identity stores the acting user in the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := UserID(r); id != "" {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey{}, id))
		}
		next.ServeHTTP(w, r)
	})
}

func UserIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey{}).(string)
	return id
}

// requestKey identifies the caller for rate limiting: the user when known,
// otherwise the client address.
func requestKey(r *http.Request) string {
	if id := UserID(r); id != "" {
		return "user:" + id
	}
	host := r.RemoteAddr
	if i := strings.LastIndex(host, ":"); i > 0 {
		host = host[:i]
	}
	return "ip:" + host
}
