package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PipelineStatus is the monitor's view of the last pipeline run. It is
// written to the status file and feeds the HTML report.
type PipelineStatus struct {
	TimestampUTC    string            `json:"ts_utc"`
	Repo            string            `json:"repo"`
	PipelineID      string            `json:"pipeline_id"`
	PipelineVersion string            `json:"pipeline_version"`
	Source          string            `json:"source"`
	State           string            `json:"state"`
	Details         map[string]string `json:"details"`
}

// Pipeline run states the monitor distinguishes. Anything it cannot
// classify collapses to StateUnknown.
const (
	StateUnknown = "unknown"
	StateFailed  = "failed"
	StateError   = "error"
)

// NeedsAttention reports whether the state should be escalated to an
// issue.
func (s *PipelineStatus) NeedsAttention() bool {
	switch s.State {
	case StateFailed, StateUnknown, StateError:
		return true
	}
	return false
}

// PipelineRun is the normalized shape of one run fetched from the
// pipeline API.
type PipelineRun struct {
	RunID string `json:"pipeline_run_id"`
	State string `json:"state"`
}

// StatusSource fetches the latest run of a pipeline. The binding is
// resolved once at startup; callers never probe for capabilities at
// call time.
type StatusSource interface {
	LatestRun(ctx context.Context, pipelineID string) (*PipelineRun, error)
}

// NewStatusSource picks the source implementation for the given API
// endpoint. An empty endpoint means no source is available and every
// run will be reported as unknown.
func NewStatusSource(apiURL string, logger *zap.Logger) StatusSource {
	if apiURL == "" {
		return nil
	}
	return &httpStatusSource{
		baseURL: strings.TrimRight(apiURL, "/"),
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// httpStatusSource reads run status from a REST pipeline API.
type httpStatusSource struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// runPayload tolerates both "status" and "state" field names; pipeline
// APIs are not consistent about which one they use.
type runPayload struct {
	PipelineRunID string `json:"pipeline_run_id"`
	Status        string `json:"status"`
	State         string `json:"state"`
}

func (s *httpStatusSource) LatestRun(ctx context.Context, pipelineID string) (*PipelineRun, error) {
	url := fmt.Sprintf("%s/pipelines/%s/runs/latest", s.baseURL, pipelineID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch latest run: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("pipeline API returned %d", resp.StatusCode)
	}

	var payload runPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode run payload: %w", err)
	}

	state := payload.Status
	if state == "" {
		state = payload.State
	}
	if state == "" {
		state = StateUnknown
	}

	return &PipelineRun{
		RunID: payload.PipelineRunID,
		State: strings.ToLower(state),
	}, nil
}
