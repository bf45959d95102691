package report

import (
	"bytes"
	"encoding/json"
	"html/template"
	"os"
	"path/filepath"
	"time"

	"github.com/gtsurkav-sudo/JOJIAI/internal/monitor"
)

// Badge classes used by the report stylesheet.
const (
	BadgeOK   = "ok"
	BadgeWarn = "warn"
	BadgeBad  = "bad"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!doctype html>
<html>
<head>
  <meta charset="utf-8">
  <title>JOJI Oi — Light Integration Report</title>
  <style>
    body { font-family: system-ui, -apple-system, Segoe UI, Roboto, Arial, sans-serif; margin: 24px; }
    .card { border: 1px solid #e5e7eb; border-radius: 12px; padding: 16px; margin-bottom: 16px; box-shadow: 0 1px 2px rgba(0,0,0,0.04); }
    .ok    { color: #166534; background: #ecfdf5; padding: 2px 8px; border-radius: 999px; }
    .warn  { color: #92400e; background: #fffbeb; padding: 2px 8px; border-radius: 999px; }
    .bad   { color: #991b1b; background: #fef2f2; padding: 2px 8px; border-radius: 999px; }
    pre { background: #f9fafb; padding: 12px; border-radius: 8px; overflow-x: auto; }
    h1 { margin-top: 0; }
  </style>
</head>
<body>
  <h1>JOJI Oi — Light Integration Report</h1>
  <div class="card">
    <b>Generated:</b> {{.Generated}} (UTC)
  </div>
  <div class="card">
    <h2>Pipeline Status</h2>
    <p><b>Repo:</b> {{.Repo}}</p>
    <p><b>Pipeline:</b> {{.PipelineID}} @ {{.PipelineVersion}}</p>
    <p><b>Status:</b> <span class="{{.BadgeClass}}">{{.State}}</span></p>
    <details>
      <summary>Details</summary>
      <pre>{{.Details}}</pre>
    </details>
  </div>
  <div class="card">
    <h2>What's Included (Light)</h2>
    <ul>
      <li>Issue creation on failures/unknown states</li>
      <li>Optional PR comment update</li>
      <li>Static HTML report (this file)</li>
      <li>Simple hourly schedule</li>
    </ul>
  </div>
</body>
</html>
`))

// templateData is the rendering context for the report template.
type templateData struct {
	Generated       string
	Repo            string
	PipelineID      string
	PipelineVersion string
	State           string
	BadgeClass      string
	Details         string
}

// BadgeClass maps a pipeline state to the report badge style.
func BadgeClass(state string) string {
	switch state {
	case "success", "succeeded", "completed":
		return BadgeOK
	case "failed", "error":
		return BadgeBad
	default:
		return BadgeWarn
	}
}

// Render produces the HTML report for one status.
func Render(status *monitor.PipelineStatus) ([]byte, error) {
	details, err := json.MarshalIndent(status.Details, "", "  ")
	if err != nil {
		return nil, err
	}

	data := templateData{
		Generated:       time.Now().UTC().Format("2006-01-02 15:04:05"),
		Repo:            status.Repo,
		PipelineID:      status.PipelineID,
		PipelineVersion: status.PipelineVersion,
		State:           status.State,
		BadgeClass:      BadgeClass(status.State),
		Details:         string(details),
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// LoadStatus reads the persisted monitor status. A missing file yields a
// neutral placeholder so the report can always be generated.
func LoadStatus(statusPath, repo string) (*monitor.PipelineStatus, error) {
	data, err := os.ReadFile(statusPath)
	if err != nil {
		if os.IsNotExist(err) {
			return &monitor.PipelineStatus{
				TimestampUTC:    time.Now().UTC().Format(time.RFC3339),
				Repo:            repo,
				PipelineID:      "N/A",
				PipelineVersion: "N/A",
				State:           monitor.StateUnknown,
				Details:         map[string]string{},
			}, nil
		}
		return nil, err
	}

	var status monitor.PipelineStatus
	if err := json.Unmarshal(data, &status); err != nil {
		return nil, err
	}

	return &status, nil
}

// Generate renders the report from the status file and writes it out.
func Generate(statusPath, repo, outPath string) error {
	status, err := LoadStatus(statusPath, repo)
	if err != nil {
		return err
	}

	html, err := Render(status)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}

	return os.WriteFile(outPath, html, 0o644)
}
