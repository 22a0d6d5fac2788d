package httpx

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"local.dev/portfolio-backend/internal/catalog"
	"local.dev/portfolio-backend/internal/models"
)

// queryInt 沒帶參數時回傳 0
func queryInt(r *http.Request, key string) (int, error) {
	v := trimmed(r, key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, models.NewValidationError(key, "数値を指定してください")
	}
	return n, nil
}

// queryList 支援 ?k=a,b 與 ?k=a&k=b
func queryList(r *http.Request, key string) []string {
	var out []string
	for _, v := range r.URL.Query()[key] {
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func productQuery(r *http.Request) (catalog.ProductQuery, error) {
	q := catalog.ProductQuery{
		Category:     trimmed(r, "category"),
		Status:       trimmed(r, "status"),
		DeployStatus: trimmed(r, "deployStatus"),
		Technologies: queryList(r, "technologies"),
		Sort:         trimmed(r, "sort"),
	}
	var err error
	if q.Year, err = queryInt(r, "year"); err != nil {
		return q, err
	}
	if q.Month, err = queryInt(r, "month"); err != nil {
		return q, err
	}
	if q.Page, err = queryInt(r, "page"); err != nil {
		return q, err
	}
	return q, nil
}

// ---- /products：GET 列表（訪客看不到非公開）、POST 建立 ----
func HandleProducts(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			q, err := productQuery(r)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			page, err := app.Catalog.ListProducts(r.Context(), q, tryAdmin(app, r))
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, page)

		case http.MethodPost:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.ProductInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				p, err := app.Catalog.CreateProduct(r.Context(), currentSession(r), in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusCreated, p)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// GET /products/years
func HandleProductYears(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		years, err := app.Catalog.ProductYears(r.Context(), tryAdmin(app, r))
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"years": years})
	}
}

// ---- /products/{id}：GET、PUT、DELETE ----
func HandleProduct(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodGet:
			p, err := app.Catalog.GetProduct(r.Context(), id, tryAdmin(app, r))
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, p)

		case http.MethodPut:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.ProductInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				p, err := app.Catalog.UpdateProduct(r.Context(), currentSession(r), id, in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusOK, p)
			})(w, r)

		case http.MethodDelete:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				if err := app.Catalog.DeleteProduct(r.Context(), currentSession(r), id); err != nil {
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

// ---- /technologies ----
func HandleTechnologies(app *AppCtx) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			list, err := app.Catalog.ListTechnologies(r.Context(), trimmed(r, "category"))
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"technologies": list})

		case http.MethodPost:
			WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
				var in catalog.TechnologyInput
				if err := decodeJSON(w, r, &in); err != nil {
					writeError(app, w, r, err)
					return
				}
				t, err := app.Catalog.CreateTechnology(r.Context(), currentSession(r), in)
				if err != nil {
					writeError(app, w, r, err)
					return
				}
				writeJSON(w, http.StatusCreated, t)
			})(w, r)

		default:
			methodNotAllowed(w)
		}
	}
}

// ---- /technologies/{id}：PUT、DELETE ----
func HandleTechnology(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		switch r.Method {
		case http.MethodPut:
			var in catalog.TechnologyInput
			if err := decodeJSON(w, r, &in); err != nil {
				writeError(app, w, r, err)
				return
			}
			t, err := app.Catalog.UpdateTechnology(r.Context(), currentSession(r), id, in)
			if err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, t)

		case http.MethodDelete:
			if err := app.Catalog.DeleteTechnology(r.Context(), currentSession(r), id); err != nil {
				writeError(app, w, r, err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]bool{"ok": true})

		default:
			methodNotAllowed(w)
		}
	})
}
