package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"local.dev/portfolio-backend/internal/app"
	"local.dev/portfolio-backend/internal/config"
)

func main() {
	configPath := flag.String("config", os.Getenv("PORTFOLIO_CONFIG"), "YAML 設定檔（省略時只讀環境變數）")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	a, err := app.New(context.Background(), cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "startup:", err)
		os.Exit(1)
	}
	if err := a.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
