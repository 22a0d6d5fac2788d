// portfolio-migrate 把舊格式的 section data 轉成目前的格式。
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"local.dev/portfolio-backend/internal/app"
	"local.dev/portfolio-backend/internal/audit"
	"local.dev/portfolio-backend/internal/auth"
	"local.dev/portfolio-backend/internal/config"
	"local.dev/portfolio-backend/internal/logger"
	"local.dev/portfolio-backend/internal/metrics"
	"local.dev/portfolio-backend/internal/section"
)

func main() {
	configPath := flag.String("config", os.Getenv("PORTFOLIO_CONFIG"), "YAML 設定檔")
	dryRun := flag.Bool("dry-run", false, "只列出會轉換的區塊，不寫入")
	flag.Parse()

	if err := run(*configPath, *dryRun); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func run(configPath string, dryRun bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log := logger.New(cfg.LogLevel, cfg.PrettyLog)
	defer log.Sync()

	ctx := context.Background()
	b, err := app.OpenBackends(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer b.Store.Close()

	al := audit.New(b.Store, log, metrics.Nop(), cfg.AuditRetention)
	svc, err := section.NewService(b.Store, al)
	if err != nil {
		return err
	}
	// audit 上記錄為 migrate 工具
	sess := auth.Session{UID: "portfolio-migrate", Admin: true}
	report, err := svc.Migrate(ctx, sess, dryRun)
	if err != nil {
		return err
	}
	log.Info("migration finished",
		logger.Int("scanned", report.Scanned),
		logger.Int("migrated", len(report.Migrated)),
		logger.Int("failed", len(report.Failed)),
		logger.Bool("dry_run", report.DryRun),
	)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
