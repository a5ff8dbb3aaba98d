package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/cfiguera/authd"
)

// principalKey is the context key for the authenticated principal. The
// principal is request-scoped: it lives in the request context only and
// never in process-wide state.
type principalKey struct{}

// WithPrincipal returns a new context carrying the principal.
func WithPrincipal(ctx context.Context, p *authd.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext retrieves the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (*authd.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*authd.Principal)
	return p, ok && p != nil
}

// BearerToken extracts the bearer credential from the Authorization header.
// Returns "" when the header is absent or not a bearer scheme.
func BearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	const prefix = "bearer "
	if len(auth) <= len(prefix) || !strings.EqualFold(auth[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(auth[len(prefix):])
}

// Gate returns the request-gate middleware. It classifies each request
// against the route table; public requests pass through untouched, protected
// ones get their bearer token validated and, on success, a Principal
// attached to the request context. A failed or absent token forwards the
// request without a principal — the gate never emits a 401; rejection is
// deferred to route-level guards.
func Gate(table *authd.RouteTable, validator *authd.TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if table.Classify(r.Method, r.URL.Path) == authd.AccessPublic {
				next.ServeHTTP(w, r)
				return
			}

			if p := validator.Validate(BearerToken(r)); p != nil {
				r = r.WithContext(WithPrincipal(r.Context(), p))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects requests that reached a protected handler without an
// authenticated principal.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePermission rejects authenticated requests whose principal lacks the
// given permission. It implies RequireAuth.
func RequirePermission(perm string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				WriteError(w, http.StatusUnauthorized, "unauthorized", "Authentication required")
				return
			}
			if !p.HasPermission(perm) {
				WriteError(w, http.StatusForbidden, "forbidden", "Missing permission: "+perm)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
