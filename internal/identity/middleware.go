package identity

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

// Resolver turns a bearer token into an identity. In production this is
// backed by the hosted identity provider's introspection endpoint; tests
// supply a fake.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Identity, error)
}

// Middleware resolves the Authorization header and stores the identity on
// the request context. Requests without a valid token get 401.
func Middleware(resolver Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			id, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				log.Warn().Err(err).Msg("failed to resolve identity")
				http.Error(w, "invalid token", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(NewContext(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}
