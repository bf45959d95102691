package monitor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// GitHubClient files issues and PR comments through the REST v3 API.
type GitHubClient struct {
	baseURL string
	repo    string
	token   string
	client  *http.Client
	logger  *zap.Logger
}

// NewGitHubClient creates the client. An empty token downgrades to
// unauthenticated requests, which can still read public data.
func NewGitHubClient(baseURL, repo, token string, logger *zap.Logger) *GitHubClient {
	return &GitHubClient{
		baseURL: baseURL,
		repo:    repo,
		token:   token,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

// Issue is the subset of the GitHub issue payload the monitor uses.
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	HTMLURL string `json:"html_url"`
	State   string `json:"state"`
}

// CreateIssue opens an issue on the configured repository.
func (g *GitHubClient) CreateIssue(ctx context.Context, title, body string, labels []string) (*Issue, error) {
	if len(labels) == 0 {
		labels = []string{"joji", "automation"}
	}

	payload := map[string]interface{}{
		"title":  title,
		"body":   body,
		"labels": labels,
	}

	var issue Issue
	url := fmt.Sprintf("%s/repos/%s/issues", g.baseURL, g.repo)
	if err := g.post(ctx, url, payload, &issue); err != nil {
		return nil, err
	}

	return &issue, nil
}

// CommentPR posts a comment on a pull request. PRs share the issues
// comment endpoint.
func (g *GitHubClient) CommentPR(ctx context.Context, prNumber int, body string) error {
	url := fmt.Sprintf("%s/repos/%s/issues/%d/comments", g.baseURL, g.repo, prNumber)
	return g.post(ctx, url, map[string]string{"body": body}, nil)
}

// ListRecentIssues returns up to limit issues of any state.
func (g *GitHubClient) ListRecentIssues(ctx context.Context, limit int) ([]Issue, error) {
	url := fmt.Sprintf("%s/repos/%s/issues?per_page=%s&state=all", g.baseURL, g.repo, strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, g.apiError(resp)
	}

	var issues []Issue
	if err := json.NewDecoder(resp.Body).Decode(&issues); err != nil {
		return nil, fmt.Errorf("decode issues: %w", err)
	}

	return issues, nil
}

func (g *GitHubClient) post(ctx context.Context, url string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	g.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return g.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

func (g *GitHubClient) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
}

// apiError reads a truncated response body into the error so failures
// are diagnosable without being logged in full.
func (g *GitHubClient) apiError(resp *http.Response) error {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
	return fmt.Errorf("github API returned %d: %s", resp.StatusCode, string(snippet))
}
