package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gosuda/kanvas/internal/auth"
)

// TokenVerifier resolves a bearer token to an authenticated identity.
// *auth.Service satisfies this interface.
type TokenVerifier interface {
	VerifyToken(token string) (auth.Identity, error)
}

// Auth authenticates requests by Bearer token and stores the resolved
// identity in the request context.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tok := extractBearer(r); tok != "" {
				ident, err := verifier.VerifyToken(tok)
				if err == nil {
					ctx := WithIdentity(r.Context(), ident)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}

			http.Error(w, `{"title":"Unauthorized","status":401,"detail":"missing or invalid credentials"}`, http.StatusUnauthorized)
		})
	}
}

// WithIdentity stores an authenticated identity in the context.
func WithIdentity(ctx context.Context, ident auth.Identity) context.Context {
	ctx = context.WithValue(ctx, ContextKeyUserID, ident.UserID)
	ctx = context.WithValue(ctx, ContextKeySuperuser, ident.Superuser)
	return ctx
}

func extractBearer(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return header[7:]
	}
	return ""
}
