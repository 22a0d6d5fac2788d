package httpx

import (
	"net/http"

	"local.dev/portfolio-backend/internal/media"
	"local.dev/portfolio-backend/internal/models"
)

// ---- POST /images/upload：multipart（file, path）----
func HandleUpload(app *AppCtx) http.HandlerFunc {
	return WithAuth(app, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, media.MaxBytes+(1<<20))
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeError(app, w, r, models.NewValidationError("file", "フォームを読み込めません（上限 20MB）"))
			return
		}
		defer r.MultipartForm.RemoveAll()
		file, hdr, err := r.FormFile("file")
		if err != nil {
			writeError(app, w, r, models.NewValidationError("file", "必須です"))
			return
		}
		defer file.Close()

		res, err := app.Media.Upload(r.Context(), currentSession(r), r.FormValue("path"), hdr.Filename, file)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	})
}
