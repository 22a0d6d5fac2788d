package httpx

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/catalog"
	"local.dev/portfolio-backend/internal/inquiry"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/media"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/models"
	"local.dev/portfolio-backend/internal/section"
)

// AppCtx 是所有 handler 共用的依賴
type AppCtx struct {
	Sections  *section.Service
	Catalog   *catalog.Service
	Inquiries *inquiry.Service
	Media     *media.Service
	Audit     *audit.Logger
	Verifier  auth.Verifier
	Refresher *auth.Refresher // 沒設定 API key 時為 nil
	Log       logger.Logger
	Metrics   metrics.Recorder
	NoAuth    bool
}

// ---- NO_AUTH：Cookie 做為最後保底（每個瀏覽器固定 dev_...）----
const devUIDCookie = "DEV_UID"

func genDevUID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return "dev_" + hex.EncodeToString(b[:])
}

func devUIDFromCookie(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(devUIDCookie); err == nil && c.Value != "" {
		return c.Value
	}
	id := genDevUID()
	http.SetCookie(w, &http.Cookie{
		Name:     devUIDCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
	})
	return id
}

type devSessioner interface {
	NewDevSession(uid string) auth.Session
}

// authenticate 驗證 Authorization header。
// 免驗證模式：Debug > Bearer(只解 payload) > Cookie
func authenticate(app *AppCtx, w http.ResponseWriter, r *http.Request) (auth.Session, error) {
	sess, err := app.Verifier.Verify(r.Context(), r.Header.Get("Authorization"))
	if err == nil {
		return sess, nil
	}
	if app.NoAuth && errors.Is(err, auth.ErrNoToken) {
		if dev, ok := app.Verifier.(devSessioner); ok {
			return dev.NewDevSession(devUIDFromCookie(w, r)), nil
		}
	}
	if errors.Is(err, auth.ErrNoToken) {
		return auth.Session{}, models.NewUnauthorizedError("トークンがありません")
	}
	return auth.Session{}, models.NewUnauthorizedError("トークンが無効です")
}

// WithAuth 只讓管理者通過；驗證失敗時不會碰到 store
func WithAuth(app *AppCtx, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := authenticate(app, w, r)
		if err != nil {
			writeError(app, w, r, err)
			return
		}
		if !sess.Admin {
			writeError(app, w, r, models.NewForbiddenError())
			return
		}
		next(w, r.WithContext(auth.WithSession(r.Context(), sess)))
	}
}

// tryAdmin 非強制驗證：公開 API 用來判斷是否顯示非公開資料
func tryAdmin(app *AppCtx, r *http.Request) bool {
	authz := r.Header.Get("Authorization")
	if authz == "" {
		return false
	}
	sess, err := app.Verifier.Verify(r.Context(), authz)
	return err == nil && sess.Admin
}

func currentSession(r *http.Request) auth.Session {
	s, _ := auth.FromContext(r.Context())
	return s
}

// clientIP 給公開送信的限流用（RealIP 之後 RemoteAddr 已換成實際來源）
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func CORS(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if origin != "*" {
				w.Header().Add("Vary", "Origin")
			}
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// statusWriter 記下狀態碼與寫出的 bytes
type statusWriter struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// AccessLog 每個 request 一行 log，並計入 metrics
func AccessLog(log logger.Logger, rec metrics.Recorder) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w}

			next.ServeHTTP(ww, r)

			if ww.status == 0 {
				ww.status = http.StatusOK
			}
			d := time.Since(start)
			rec.RecordRequest(r.Method, ww.status, d)
			log.Info("http_request",
				logger.String("method", r.Method),
				logger.String("path", r.URL.Path),
				logger.Int("status", ww.status),
				logger.Int("bytes", ww.bytes),
				logger.Duration("duration", d),
				logger.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// 單一 JSON body 的上限
const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return models.NewValidationError("body", "JSON の形式が正しくありません")
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Code: "METHOD_NOT_ALLOWED", Message: "許可されていないメソッドです。"})
}

func trimmed(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
