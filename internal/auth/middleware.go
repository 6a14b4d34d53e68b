package auth

import (
	"context"
	"net/http"
	"strings"

	"MiniTienda/pkg/kit"
)

type ctxKey string

const userKey ctxKey = "user"

const challenge = `Basic realm="tienda", charset="UTF-8"`

func UserFromContext(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(userKey).(string)
	return u, ok
}

func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, userKey, username)
}

// Authenticate resolves the caller from HTTP Basic credentials or, when
// tokens is not nil, from a Bearer token it issued.
func Authenticate(r *http.Request, v Verifier, tokens *TokenMaker) (string, error) {
	authz := r.Header.Get("Authorization")

	if tokens != nil && strings.HasPrefix(authz, "Bearer ") {
		claims, err := tokens.Parse(strings.TrimPrefix(authz, "Bearer "))
		if err != nil {
			return "", err
		}
		return claims.Username, nil
	}

	username, secret, ok := r.BasicAuth()
	if !ok {
		return "", &AuthenticationError{Reason: "Credenciales requeridas"}
	}
	if err := v.Verify(r.Context(), username, secret); err != nil {
		return "", err
	}
	return username, nil
}

func RequireUser(v Verifier, tokens *TokenMaker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, err := Authenticate(r, v, tokens)
			if err != nil {
				Unauthorized(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
		})
	}
}

func Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	w.Header().Set("WWW-Authenticate", challenge)
	kit.WriteError(w, r, http.StatusUnauthorized, err.Error(), nil)
}
