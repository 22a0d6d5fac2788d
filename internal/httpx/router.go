package httpx

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type RouterOptions struct {
	CORSOrigin string
	UploadsDir string       // 空字串 = 不提供 /uploads/
	Metrics    http.Handler // 空 = 不提供 /metrics
}

// NewRouter 組出整個 API
func NewRouter(app *AppCtx, opts RouterOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(AccessLog(app.Log, app.Metrics))
	r.Use(CORS(opts.CORSOrigin))

	// 健康檢查
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC()})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}
	// ---- 靜態檔案：/uploads/*
	if opts.UploadsDir != "" {
		r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(opts.UploadsDir))))
	}

	r.HandleFunc("/sections", HandleSections(app))
	r.Post("/sections/reorder", HandleSectionReorder(app))
	r.HandleFunc("/sections/{id}", HandleSection(app))
	r.Patch("/sections/{id}/meta", HandleSectionMeta(app))
	r.Delete("/sections/{id}/delete", HandleSectionDelete(app))
	r.Get("/sections/{id}/html", HandleSectionHTML(app))
	r.Post("/sections/{id}/edit", HandleSectionEdit(app))
	r.Post("/sections/{id}/sort", HandleSectionSort(app))

	r.HandleFunc("/products", HandleProducts(app))
	r.Get("/products/years", HandleProductYears(app))
	r.HandleFunc("/products/{id}", HandleProduct(app))

	r.HandleFunc("/technologies", HandleTechnologies(app))
	r.HandleFunc("/technologies/{id}", HandleTechnology(app))

	r.HandleFunc("/activities", HandleActivities(app))
	r.Post("/activities/reorder", HandleActivityReorder(app))
	r.HandleFunc("/activities/{id}", HandleActivity(app))

	r.HandleFunc("/activity-categories", HandleCategories(app))
	r.Post("/activity-categories/reorder", HandleCategoryReorder(app))
	r.HandleFunc("/activity-categories/{id}", HandleCategory(app))

	r.HandleFunc("/inquiries", HandleInquiries(app))
	r.HandleFunc("/inquiries/{id}", HandleInquiry(app))
	r.Post("/inquiries/{id}/reply", HandleInquiryReply(app))

	r.HandleFunc("/admin-logs", HandleAdminLogs(app))
	r.Post("/images/upload", HandleUpload(app))

	r.Get("/auth/session", HandleSession(app))
	r.Post("/auth/refresh", HandleRefresh(app))

	return r
}
