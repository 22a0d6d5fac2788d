package httpx

import (
	"net/http"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/models"
)

// ---- /admin-logs：GET（?cursor=&limit=）、POST 追加 ----
func HandleAdminLogs(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit, err := queryInt(r, "limit")
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			page, err := app.Audit.List(r.Context(), trimmed(r, "cursor"), limit)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, page)

		case http.MethodPost:
			var req struct {
				Action   string         `json:"action"`
				Entity   string         `json:"entity"`
				EntityID string         `json:"entityId"`
				Details  map[string]any `json:"details"`
				Level    string         `json:"level"`
			}
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(app, w, r, err)
				return
			}
			switch req.Level {
			case "", audit.LevelInfo, audit.LevelWarn, audit.LevelError:
			default:
				writeError(app, w, r, models.NewValidationError("level", "info / warn / error のいずれかを指定してください"))
				return
			}
			entry, err := app.Audit.Create(r.Context(), currentSession(r), audit.Entry{
				Action:   req.Action,
				Entity:   req.Entity,
				EntityID: req.EntityID,
				Details:  req.Details,
				Level:    req.Level,
			})
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusCreated, entry)

		default:
			methodNotAllowed(w)
		}
	})
}
