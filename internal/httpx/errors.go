package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/models"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusOf(kind models.ErrorKind) int {
	switch kind {
	case models.KindUnauthorized:
		return http.StatusUnauthorized
	case models.KindForbidden:
		return http.StatusForbidden
	case models.KindValidation:
		return http.StatusBadRequest
	case models.KindNotFound:
		return http.StatusNotFound
	case models.KindConflict:
		return http.StatusConflict
	case models.KindRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// writeError 把 error 轉成 {code, message}。500 的細節只寫進 log。
func writeError(app *AppCtx, w http.ResponseWriter, r *http.Request, err error) {
	apiErr := models.AsAPIError(err)
	status := statusOf(apiErr.Kind)
	if status == http.StatusInternalServerError {
		app.Log.Error("request failed",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.String("request_id", middleware.GetReqID(r.Context())),
			logger.Error(err),
		)
	}
	if status == http.StatusTooManyRequests {
		w.Header().Set("Retry-After", "60")
	}
	writeJSON(w, status, errorBody{Code: apiErr.Code, Message: apiErr.Message})
}
