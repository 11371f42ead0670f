package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/sellorahq/sellora-be/internal/auth"
	"github.com/sellorahq/sellora-be/internal/http/respond"
)

type contextKey struct{}

var identityKey contextKey

// Auth rejects requests without a valid bearer access token and stores the
// verified identity in the request context.
func Auth(tokens *auth.TokenManager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r.Header.Get("Authorization"))
		if !ok {
			respond.Error(w, http.StatusUnauthorized, "missing or malformed authorization header")
			return
		}
		identity, err := tokens.VerifyAccess(token)
		if err != nil {
			respond.Error(w, http.StatusUnauthorized, "invalid or expired access token")
			return
		}
		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFrom extracts the authenticated identity placed by Auth.
func IdentityFrom(ctx context.Context) (auth.Identity, bool) {
	identity, ok := ctx.Value(identityKey).(auth.Identity)
	return identity, ok
}

func bearerToken(header string) (string, bool) {
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
