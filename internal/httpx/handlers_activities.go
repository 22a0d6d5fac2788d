package httpx

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"local.dev/portfolio-backend/internal/catalog"
)

// ---- /activities：GET（?category=&page=）、POST ----
func HandleActivities(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			page, err := queryInt(r, "page")
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			q := catalog.ActivityQuery{Category: trimmed(r, "category"), Page: page}
			res, err := app.Catalog.ListActivities(r.Context(), q, tryAdmin(app, r))
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, res)

		case http.MethodPost:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.ActivityInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				a, err := app.Catalog.CreateActivity(r.Context(), currentSession(r), in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusCreated, a)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// ---- /activities/{id}：GET、PUT、PATCH、DELETE ----
func HandleActivity(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodGet:
			a, err := app.Catalog.GetActivity(r.Context(), id)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, a)

		case http.MethodPut:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.ActivityInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				a, err := app.Catalog.UpdateActivity(r.Context(), currentSession(r), id, in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, a)
			})(w, r)

		case http.MethodPatch:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var p catalog.ActivityPatch
				if err := decodeJSON(w, r, &p); err != nil {
					writeError(app, w, r, err)
					return
				}
				a, err := app.Catalog.PatchActivity(r.Context(), currentSession(r), id, p)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, a)
			})(w, r)

		case http.MethodDelete:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				if err := app.Catalog.DeleteActivity(r.Context(), currentSession(r), id); err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// POST /activities/reorder
func HandleActivityReorder(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		if err := app.Catalog.ReorderActivities(r.Context(), currentSession(r), req.A, req.B); err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}

// ---- /activity-categories：GET、POST ----
func HandleCategories(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			cats, err := app.Catalog.ListCategories(r.Context())
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"categories": cats})

		case http.MethodPost:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.CategoryInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				c, err := app.Catalog.CreateCategory(r.Context(), currentSession(r), in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusCreated, c)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// ---- /activity-categories/{id}：PATCH、DELETE ----
func HandleCategory(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodPatch:
			var p catalog.CategoryPatch
			if err := decodeJSON(w, r, &p); err != nil {
				writeError(app, w, r, err)
				return
			}
			c, err := app.Catalog.PatchCategory(r.Context(), currentSession(r), id, p)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, c)

		case http.MethodDelete:
			if err := app.Catalog.DeleteCategory(r.Context(), currentSession(r), id); err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

		default:
			methodNotAllowed(w)
		}
	})
}

// POST /activity-categories/reorder
func HandleCategoryReorder(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		if err := app.Catalog.ReorderCategories(r.Context(), currentSession(r), req.A, req.B); err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}
