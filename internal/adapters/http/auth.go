package httpadapter

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/KoTeHok22/locus/internal/core/domain"
	"github.com/KoTeHok22/locus/internal/core/ports"
)

type identityContextKey struct{}

func identityFromContext(ctx context.Context) (domain.Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(domain.Identity)
	return id, ok
}

// authMiddleware resolves the Bearer token to a directory identity and puts
// it on the request context. Every route behind it sees an authenticated
// caller; role checks stay in the core.
func authMiddleware(users ports.UserDirectory, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			writeError(w, domain.WrapError(domain.ErrUnauthorized, "authenticate",
				errors.New("missing bearer token")))
			return
		}

		id, err := users.IdentityByToken(r.Context(), token)
		if err != nil {
			writeError(w, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey{}, *id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(headerValue string) string {
	headerValue = strings.TrimSpace(headerValue)
	const bearerPrefix = "Bearer "
	if !strings.HasPrefix(headerValue, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(headerValue, bearerPrefix))
}
