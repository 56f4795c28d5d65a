package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/caseras1/ai-childbook/internal/domain"
)

type accountKey struct{}

// AccountResolver maps a bearer token to an account.
type AccountResolver interface {
	AccountByToken(ctx context.Context, token string) (*domain.Account, error)
}

// BearerToken extracts the token from an "Authorization: Bearer ..." header.
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(r.Header.Get("Authorization"), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// OptionalAccount attaches the caller's account when a valid bearer token is
// present. Anonymous requests pass through; a token that does not resolve is
// rejected with 401.
func OptionalAccount(resolver AccountResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			acc, err := resolver.AccountByToken(r.Context(), token)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"invalid token"}`))
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithAccount(r.Context(), acc)))
		})
	}
}

func ContextWithAccount(ctx context.Context, acc *domain.Account) context.Context {
	if acc == nil {
		return ctx
	}
	return context.WithValue(ctx, accountKey{}, acc)
}

// AccountFromContext returns the authenticated account or nil.
func AccountFromContext(ctx context.Context) *domain.Account {
	if v, ok := ctx.Value(accountKey{}).(*domain.Account); ok {
		return v
	}
	return nil
}
