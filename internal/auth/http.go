package auth

import (
	"net/http"

	"go.uber.org/zap"

	"MiniTienda/pkg/kit"
)

type tokenResp struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

func TokenHandler(v Verifier, tokens *TokenMaker, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username, secret, ok := r.BasicAuth()
		if !ok {
			Unauthorized(w, r, &AuthenticationError{Reason: "Credenciales requeridas"})
			return
		}
		if err := v.Verify(r.Context(), username, secret); err != nil {
			Unauthorized(w, r, err)
			return
		}

		tok, err := tokens.New(username)
		if err != nil {
			log.Error("token issue", zap.Error(err))
			kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
			return
		}

		kit.WriteJSON(w, http.StatusOK, tokenResp{
			AccessToken: tok,
			TokenType:   "Bearer",
			ExpiresIn:   int(tokens.TTL().Seconds()),
		})
	}
}
