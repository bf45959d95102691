package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gtsurkav-sudo/JOJIAI/internal/pkg/config"

	"go.uber.org/zap"
)

// Monitor polls the pipeline API for the last run, escalates bad states
// to GitHub and persists the status for the report generator. Escalation
// failures are logged, never fatal: a broken GitHub token must not take
// the monitor down.
type Monitor struct {
	cfg    *config.MonitorConfig
	source StatusSource
	github *GitHubClient
	logger *zap.Logger
}

// New creates a monitor with its collaborators bound once up front.
// source may be nil, in which case every run reports unknown.
func New(cfg *config.MonitorConfig, source StatusSource, github *GitHubClient, logger *zap.Logger) *Monitor {
	return &Monitor{
		cfg:    cfg,
		source: source,
		github: github,
		logger: logger,
	}
}

// Run performs one monitor pass and returns the status it recorded.
func (m *Monitor) Run(ctx context.Context) (*PipelineStatus, error) {
	status := &PipelineStatus{
		TimestampUTC:    time.Now().UTC().Format(time.RFC3339),
		Repo:            m.cfg.Repo,
		PipelineID:      m.cfg.PipelineID,
		PipelineVersion: m.cfg.PipelineVersion,
		Source:          "light-monitor",
		State:           StateUnknown,
		Details:         map[string]string{},
	}

	if m.cfg.PipelineID != "" && m.source != nil {
		run, err := m.source.LatestRun(ctx, m.cfg.PipelineID)
		if err != nil {
			// Fall back to unknown; the error rides along in the details
			m.logger.Warn("Pipeline status fetch failed", zap.Error(err))
			status.Details["api_error"] = err.Error()
		} else {
			status.State = run.State
			if run.RunID != "" {
				status.Details["pipeline_run_id"] = run.RunID
			}
		}
	}

	if status.NeedsAttention() {
		m.escalate(ctx, status)
	}

	if m.cfg.PRNumber > 0 {
		m.commentPR(ctx, status)
	}

	if err := m.writeStatus(status); err != nil {
		return status, fmt.Errorf("write status file: %w", err)
	}

	m.logger.Info("Monitor pass completed",
		zap.String("state", status.State),
		zap.String("pipeline_id", status.PipelineID))

	return status, nil
}

// escalate files a GitHub issue for a failed or unknown pipeline state.
func (m *Monitor) escalate(ctx context.Context, status *PipelineStatus) {
	pipeline := status.PipelineID
	if pipeline == "" {
		pipeline = "N/A"
	}

	details, _ := json.Marshal(status.Details)

	title := fmt.Sprintf("[JOJI Light Monitor] Pipeline %s state: %s", pipeline, strings.ToUpper(status.State))
	body := fmt.Sprintf(
		"**Time (UTC):** %s\n"+
			"**Repo:** %s\n"+
			"**Pipeline:** %s @ %s\n"+
			"**State:** `%s`\n"+
			"**Details:** `%s`\n"+
			"\n_Auto-created by JOJI Light Monitor._",
		status.TimestampUTC,
		status.Repo,
		status.PipelineID,
		status.PipelineVersion,
		status.State,
		string(details),
	)

	issue, err := m.github.CreateIssue(ctx, title, body, []string{"joji", "monitor", "needs-triage"})
	if err != nil {
		m.logger.Warn("Issue creation failed", zap.Error(err))
		return
	}

	m.logger.Info("Issue created",
		zap.Int("number", issue.Number),
		zap.String("url", issue.HTMLURL))
}

func (m *Monitor) commentPR(ctx context.Context, status *PipelineStatus) {
	body := fmt.Sprintf("JOJI Light Monitor — pipeline state: **%s** (UTC %s)",
		status.State, status.TimestampUTC)

	if err := m.github.CommentPR(ctx, m.cfg.PRNumber, body); err != nil {
		m.logger.Warn("PR comment failed",
			zap.Int("pr_number", m.cfg.PRNumber),
			zap.Error(err))
	}
}

// writeStatus persists the status for the report generator.
func (m *Monitor) writeStatus(status *PipelineStatus) error {
	if err := os.MkdirAll(filepath.Dir(m.cfg.StatusPath), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(m.cfg.StatusPath, data, 0o644)
}
