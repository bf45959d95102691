package main

import (
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/config"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/logger"
	"github.com/gtsurkav-sudo/JOJIAI/internal/report"
)

func main() {
	out := flag.String("out", "docs/joji_report.html", "path of the generated HTML report")
	flag.Parse()

	cfg := config.LoadMonitorConfig()

	isDevelopment := os.Getenv("APP_ENV") != "production"
	l, err := logger.NewLogger(isDevelopment, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	log := l.Named("report")

	if err := report.Generate(cfg.StatusPath, cfg.Repo, *out); err != nil {
		log.Fatal("Report generation failed", zap.Error(err))
	}

	log.Info("Report generated", zap.String("path", *out))
}
