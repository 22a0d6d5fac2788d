package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"local.dev/portfolio-backend/internal/inquiry"
)

// ---- /inquiries：POST 公開送信、GET 管理者列表 ----
func HandleInquiries(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var in inquiry.SubmitInput
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(app, w, r, err)
				return
			}
			q, err := app.Inquiries.Submit(r.Context(), clientIP(r), in)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, map[string]string{"id": q.ID, "status": q.Status})

		case http.MethodGet:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				list, err := app.Inquiries.List(r.Context(), inquiry.ListQuery{
					Statuses: queryList(r, "status"),
					Category: trimmed(r, "category"),
					Q:        trimmed(r, "q"),
					Sort:     trimmed(r, "sort"),
				})
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]any{"inquiries": list})
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// ---- /inquiries/{id}：GET、PATCH（status） ----
func HandleInquiry(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodGet:
			q, err := app.Inquiries.Get(r.Context(), id)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, q)

		case http.MethodPatch:
			var req struct {
				Status string `json:"status"`
			}
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(app, w, r, err)
				return
			}
			q, err := app.Inquiries.SetStatus(r.Context(), currentSession(r), id, req.Status)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, q)

		default:
			methodNotAllowed(w)
		}
	})
}

// POST /inquiries/{id}/reply
func HandleInquiryReply(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		q, err := app.Inquiries.Reply(r.Context(), currentSession(r), chi.URLParam(r, "id"), req.Message)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	})
}
