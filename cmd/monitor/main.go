package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/gtsurkav-sudo/JOJIAI/internal/monitor"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/config"
	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/logger"
)

func main() {
	schedule := flag.String("schedule", "", "cron expression for repeated runs (empty = run once)")
	flag.Parse()

	cfg := config.LoadMonitorConfig()

	isDevelopment := os.Getenv("APP_ENV") != "production"
	l, err := logger.NewLogger(isDevelopment, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer l.Sync()

	log := l.Named("monitor")

	source := monitor.NewStatusSource(cfg.PipelineAPIURL, log.Named("source"))
	github := monitor.NewGitHubClient(cfg.GitHubAPIURL, cfg.Repo, cfg.GitHubToken, log.Named("github"))
	m := monitor.New(cfg, source, github, log)

	if *schedule == "" {
		runOnce(m, log)
		return
	}

	c := cron.New()
	if _, err := c.AddFunc(*schedule, func() {
		runOnce(m, log)
	}); err != nil {
		log.Fatal("Invalid schedule", zap.String("schedule", *schedule), zap.Error(err))
	}

	c.Start()
	log.Info("Monitor scheduled", zap.String("schedule", *schedule))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx := c.Stop()
	<-ctx.Done()
	log.Info("Monitor stopped")
}

func runOnce(m *monitor.Monitor, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	status, err := m.Run(ctx)
	if err != nil {
		log.Error("Monitor pass failed", zap.Error(err))
		return
	}

	log.Info("Status recorded",
		zap.String("state", status.State),
		zap.String("pipeline_id", status.PipelineID))
}
