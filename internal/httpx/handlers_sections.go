package httpx

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/section"
)

// reorderRequest 交換兩筆的 order（sections / activities / activity-categories 共用）
type reorderRequest struct {
	A string `json:"a"`
	B string `json:"b"`
}

// ---- /sections：GET 列表（公開）、POST 建立 ----
func HandleSections(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			secs, err := app.Sections.List(r.Context())
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"sections": secs})

		case http.MethodPost:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in section.CreateInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				sec, err := app.Sections.Create(r.Context(), currentSession(r), in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusCreated, sec)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// ---- /sections/{id}：GET 單筆、PUT 整個覆蓋 data ----
func HandleSection(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodGet:
			sec, err := app.Sections.Get(r.Context(), id)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, sec)

		case http.MethodPut:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
				if err != nil {
					writeError(app, w, r, models.NewValidationError("body", "読み込めません"))
					return
				}
				sec, err := app.Sections.Update(r.Context(), currentSession(r), id, body)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, sec)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// PATCH /sections/{id}/meta
func HandleSectionMeta(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var p section.MetaPatch
		if err := decodeJSON(w, r, &p); err != nil {
			writeError(app, w, r, err)
			return
		}
		meta, err := app.Sections.PatchMeta(r.Context(), currentSession(r), chi.URLParam(r, "id"), p)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, meta)
	})
}

// DELETE /sections/{id}/delete：section 與 meta 一起刪
func HandleSectionDelete(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		if err := app.Sections.Delete(r.Context(), currentSession(r), chi.URLParam(r, "id")); err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
}

// GET /sections/{id}/html
func HandleSectionHTML(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		html, err := app.Sections.RenderHTML(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, html)
	}
}

// POST /sections/{id}/edit
func HandleSectionEdit(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Ops []section.EditOp `json:"ops"`
		}
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		sec, err := app.Sections.Edit(r.Context(), currentSession(r), chi.URLParam(r, "id"), req.Ops)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	})
}

// POST /sections/{id}/sort：body 可省略，省略時用 meta.sortOrder
func HandleSectionSort(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Order string `json:"order"`
		}
		if r.ContentLength != 0 {
			if err := decodeJSON(w, r, &req); err != nil {
				writeError(app, w, r, err)
				return
			}
		}
		sec, err := app.Sections.Sort(r.Context(), currentSession(r), chi.URLParam(r, "id"), req.Order)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, sec)
	})
}

// POST /sections/reorder
func HandleSectionReorder(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(app, w, r, err)
			return
		}
		metas, err := app.Sections.Reorder(r.Context(), currentSession(r), req.A, req.B)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"metas": metas})
	})
}
