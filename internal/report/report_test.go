package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gtsurkav-sudo/JOJIAI/internal/monitor"
)

func TestBadgeClass(t *testing.T) {
	tests := []struct {
		state string
		want  string
	}{
		{"success", BadgeOK},
		{"succeeded", BadgeOK},
		{"completed", BadgeOK},
		{"failed", BadgeBad},
		{"error", BadgeBad},
		{"unknown", BadgeWarn},
		{"running", BadgeWarn},
		{"", BadgeWarn},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, BadgeClass(tt.state), tt.state)
	}
}

func TestRender(t *testing.T) {
	status := &monitor.PipelineStatus{
		Repo:            "owner/repo",
		PipelineID:      "pl-1",
		PipelineVersion: "v3",
		State:           "failed",
		Details:         map[string]string{"pipeline_run_id": "run-9"},
	}

	html, err := Render(status)
	require.NoError(t, err)

	out := string(html)
	assert.Contains(t, out, "owner/repo")
	assert.Contains(t, out, "pl-1 @ v3")
	assert.Contains(t, out, `<span class="bad">failed</span>`)
	assert.Contains(t, out, "run-9")
}

func TestRenderEscapesHostileState(t *testing.T) {
	status := &monitor.PipelineStatus{
		Repo:    "owner/repo",
		State:   "<script>alert(1)</script>",
		Details: map[string]string{},
	}

	html, err := Render(status)
	require.NoError(t, err)

	assert.NotContains(t, string(html), "<script>alert(1)</script>")
}

func TestLoadStatusMissingFileYieldsPlaceholder(t *testing.T) {
	status, err := LoadStatus(filepath.Join(t.TempDir(), "nope.json"), "owner/repo")
	require.NoError(t, err)

	assert.Equal(t, "owner/repo", status.Repo)
	assert.Equal(t, monitor.StateUnknown, status.State)
	assert.Equal(t, "N/A", status.PipelineID)
}

func TestGenerateWritesReport(t *testing.T) {
	dir := t.TempDir()
	statusPath := filepath.Join(dir, "status.json")
	outPath := filepath.Join(dir, "report", "joji_report.html")

	status := &monitor.PipelineStatus{
		Repo:       "owner/repo",
		PipelineID: "pl-1",
		State:      "success",
		Details:    map[string]string{},
	}
	data, err := json.Marshal(status)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(statusPath, data, 0o644))

	require.NoError(t, Generate(statusPath, "owner/repo", outPath))

	html, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Contains(t, string(html), `<span class="ok">success</span>`)
}
