// Package app 負責把各個元件組起來並管理 HTTP server 的生命週期。
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	firebase "firebase.google.com/go/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/catalog"
	"local.dev/portfolio-backend/internal/config"
	"local.dev/portfolio-backend/internal/httpx"
	"local.dev/portfolio-backend/internal/inquiry"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/media"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/section"
	"local.dev/portfolio-backend/internal/store"
)

// limiter 的閒置 entry 多久清一次
const limiterTTL = 10 * time.Minute

type App struct {
	cfg     *config.Config
	log     logger.Logger
	st      store.Store
	limiter *inquiry.Limiter
	server  *http.Server
}

// Backends 是 server 與 migrate 共用的基礎元件
type Backends struct {
	Firebase *firebase.App // 不需要 Firebase 時為 nil
	Store    store.Store
}

// OpenBackends 依設定建立 Firebase app 與 document store
func OpenBackends(ctx context.Context, cfg *config.Config, log logger.Logger) (*Backends, error) {
	b := &Backends{}
	if cfg.NeedsFirebase() {
		fb, err := config.NewFirebaseApp(ctx, cfg)
		if err != nil {
			return nil, err
		}
		b.Firebase = fb
	}

	switch cfg.StoreBackend {
	case config.BackendFirestore:
		client, err := b.Firebase.Firestore(ctx)
		if err != nil {
			return nil, fmt.Errorf("firestore: %w", err)
		}
		b.Store = store.NewFirestore(client)
		log.Info("store ready", logger.String("backend", "firestore"), logger.String("project", cfg.Firebase.ProjectID))
	case config.BackendMemory:
		dir := filepath.Join(cfg.DataDir, "store")
		if err := config.EnsureDir(dir); err != nil {
			return nil, fmt.Errorf("data dir: %w", err)
		}
		mem, err := store.NewMemory(dir)
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		b.Store = mem
		log.Info("store ready", logger.String("backend", "memory"), logger.String("dir", dir))
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
	return b, nil
}

func newVerifier(ctx context.Context, cfg *config.Config, fb *firebase.App, log logger.Logger) (auth.Verifier, error) {
	if cfg.NoAuth {
		log.Warn("NO_AUTH enabled: tokens are NOT verified and every caller is treated as admin")
		return auth.NewDevVerifier(), nil
	}
	client, err := fb.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return auth.NewFirebaseVerifier(client, auth.NewAdmins(cfg.AdminEmails, cfg.AdminUIDs)), nil
}

// newUploader：有設定 bucket 就上傳到 Cloud Storage，否則寫到本機並由 /uploads/ 提供
func newUploader(ctx context.Context, cfg *config.Config, fb *firebase.App) (media.Uploader, string, error) {
	if name := cfg.Firebase.StorageBucket; name != "" {
		client, err := fb.Storage(ctx)
		if err != nil {
			return nil, "", fmt.Errorf("firebase storage: %w", err)
		}
		bucket, err := client.Bucket(name)
		if err != nil {
			return nil, "", fmt.Errorf("bucket %s: %w", name, err)
		}
		return media.NewBucketUploader(bucket, name), "", nil
	}
	if err := config.EnsureDir(cfg.UploadsDir); err != nil {
		return nil, "", fmt.Errorf("uploads dir: %w", err)
	}
	return media.NewLocalUploader(cfg.UploadsDir, "/uploads"), cfg.UploadsDir, nil
}

// 測試時換掉
var openBackends = OpenBackends

func New(ctx context.Context, cfg *config.Config) (_ *App, err error) {
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)

	b, err := openBackends(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	// 後面任何一步失敗都要關掉 store（Firestore client）
	defer func() {
		if err != nil {
			if cerr := b.Store.Close(); cerr != nil {
				log.Warn("store close failed", logger.Error(cerr))
			}
		}
	}()
	verifier, err := newVerifier(ctx, cfg, b.Firebase, log)
	if err != nil {
		return nil, err
	}
	uploader, uploadsDir, err := newUploader(ctx, cfg, b.Firebase)
	if err != nil {
		return nil, err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.NewCollector(reg)

	al := audit.New(b.Store, log, rec, cfg.AuditRetention)
	sections, err := section.NewService(b.Store, al)
	if err != nil {
		return nil, err
	}
	limiter := inquiry.NewLimiter(rate.Limit(cfg.InquiryRate), cfg.InquiryBurst, limiterTTL)

	appCtx := &httpx.AppCtx{
		Sections:  sections,
		Catalog:   catalog.NewService(b.Store, al),
		Inquiries: inquiry.NewService(b.Store, al, limiter, rec, cfg.OwnerName),
		Media:     media.NewService(uploader, al),
		Audit:     al,
		Verifier:  verifier,
		Log:       log,
		Metrics:   rec,
		NoAuth:    cfg.NoAuth,
	}
	if cfg.Firebase.APIKey != "" {
		appCtx.Refresher = auth.NewRefresher(cfg.Firebase.TokenEndpoint, cfg.Firebase.APIKey, &http.Client{Timeout: 10 * time.Second})
	}

	handler := httpx.NewRouter(appCtx, httpx.RouterOptions{
		CORSOrigin: cfg.CORSOrigin,
		UploadsDir: uploadsDir,
		Metrics:    metrics.Handler(reg),
	})

	return &App{
		cfg:     cfg,
		log:     log,
		st:      b.Store,
		limiter: limiter,
		server: &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    1 << 20,
		},
	}, nil
}

// Run 一直執行到收到 SIGINT / SIGTERM，之後優雅關閉
func (a *App) Run() error {
	defer a.log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.log.Info("http server listening",
			logger.String("addr", a.server.Addr),
			logger.String("store", a.cfg.StoreBackend),
			logger.Bool("no_auth", a.cfg.NoAuth),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info("shutting down gracefully")
	case err := <-errCh:
		a.limiter.Stop()
		_ = a.st.Close()
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	err := a.server.Shutdown(shutdownCtx)
	a.limiter.Stop()
	if cerr := a.st.Close(); cerr != nil {
		a.log.Warn("store close failed", logger.Error(cerr))
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	a.log.Info("server stopped")
	return nil
}
