package identity

import (
	"net/http"
)

// UserIDHeader carries the authenticated user id set by the fronting
// auth proxy. The engine itself does not authenticate; it consumes an
// opaque authenticated identity.
const UserIDHeader = "X-Lopan-User"

// Middleware resolves the request's user via a Directory and attaches
// it to the request context. Requests without the header pass through
// unauthenticated; the engine fails closed on evaluation.
type Middleware struct {
	directory Directory
}

// NewMiddleware creates identity middleware over a directory.
func NewMiddleware(directory Directory) *Middleware {
	return &Middleware{directory: directory}
}

// Handler wraps next with identity resolution.
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(UserIDHeader)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		user, err := m.directory.Lookup(r.Context(), id)
		if err != nil {
			// Unknown id is treated the same as no identity.
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}
