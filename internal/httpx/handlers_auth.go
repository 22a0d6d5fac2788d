package httpx

import (
	"errors"
	"net/http"
	"strings"

	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/models"
)

// GET /auth/session：回傳目前 token 對應的 session
func HandleSession(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := authenticate(app, w, r)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// POST /auth/refresh：用 refresh token 換新的 id token
func HandleRefresh(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if app.Refresher == nil {
			writeJSON(w, http.StatusNotImplemented, errorBody{Code: "NOT_CONFIGURED", Message: "トークン更新は設定されていません。"})
			return
		}
		var req struct {
			RefreshToken string `json:"refreshToken"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		token := strings.TrimSpace(req.RefreshToken)
		if token == "" {
			writeError(app, w, r, models.NewValidationError("refreshToken", "必須です"))
			return
		}
		pair, err := app.Refresher.Refresh(r.Context(), token)
		if errors.Is(err, auth.ErrInvalidToken) {
			writeError(app, w, r, models.NewUnauthorizedError("リフレッシュトークンが無効です"))
			return
		}
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, pair)
	}
}
