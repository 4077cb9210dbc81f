package chi

import (
	"context"
	"net/http"
	"strings"
)

// exemptPaths are routes that bypass authentication (health, metrics).
var exemptPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// ownerHeader carries the caller's identity, resolved by the fronting auth
// proxy. Authentication of end users happens upstream; this service only
// scopes data access by the supplied owner.
const ownerHeader = "X-Owner-ID"

type ownerKey struct{}

// OwnerFromContext returns the request's owner identity, or "".
func OwnerFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey{}).(string); ok {
		return v
	}
	return ""
}

// BearerAuthMiddleware returns a middleware that validates Bearer tokens and
// resolves the owner identity from the X-Owner-ID header.
// If apiKeys is empty, token validation is disabled (pass-through); the
// owner header is still resolved when present.
func BearerAuthMiddleware(apiKeys []string) func(http.Handler) http.Handler {
	validKeys := make(map[string]struct{}, len(apiKeys))
	for _, k := range apiKeys {
		if k != "" {
			validKeys[k] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Exempt paths
			if _, ok := exemptPaths[r.URL.Path]; ok {
				next.ServeHTTP(w, r)
				return
			}

			if len(validKeys) > 0 {
				auth := r.Header.Get("Authorization")
				if auth == "" {
					writeError(w, http.StatusUnauthorized, codeUnauthorized, "missing authorization header")
					return
				}

				const bearerPrefix = "Bearer "
				if !strings.HasPrefix(auth, bearerPrefix) {
					writeError(w, http.StatusUnauthorized,
						codeUnauthorized, "authorization header must use Bearer scheme")
					return
				}

				token := auth[len(bearerPrefix):]
				if _, ok := validKeys[token]; !ok {
					writeError(w, http.StatusUnauthorized, codeUnauthorized, "invalid api key")
					return
				}
			}

			if owner := r.Header.Get(ownerHeader); owner != "" {
				r = r.WithContext(context.WithValue(r.Context(), ownerKey{}, owner))
			}

			next.ServeHTTP(w, r)
		})
	}
}
