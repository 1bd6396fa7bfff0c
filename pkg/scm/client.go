package scm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sleuthops/sleuth/pkg/models"
)

// Client provides read-only HTTP access to the GitHub REST API. Transport
// failures are translated into compact github_error:<kind> strings by the
// tool runtime and collectors; the client itself returns plain errors.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a GitHub client. tokens may be nil (public repos only,
// lower rate limits).
func NewClient(tokens TokenSource, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.Default(),
	}
}

// ClassifyError maps a client error to the compact github_error taxonomy.
func ClassifyError(err error) string {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "HTTP 404"):
		return "github_error:not_found"
	case strings.Contains(msg, "HTTP 401"), strings.Contains(msg, "HTTP 403"):
		return "github_error:auth"
	case strings.Contains(msg, "HTTP 429"):
		return "github_error:rate_limited"
	case strings.Contains(msg, "context deadline exceeded"),
		strings.Contains(msg, "Client.Timeout"):
		return "github_error:timeout"
	default:
		return "github_error:transport"
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return fmt.Errorf("github token: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("github request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("GitHub API returned HTTP %d for %s: %s",
			resp.StatusCode, path, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode github response: %w", err)
	}
	return nil
}

// RepoExists verifies a repository with a metadata fetch. Used to validate
// naming-convention guesses before trusting them.
func (c *Client) RepoExists(ctx context.Context, repo string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/repos/"+repo, nil, nil)
	if err == nil {
		return true, nil
	}
	if strings.Contains(err.Error(), "HTTP 404") {
		return false, nil
	}
	return false, err
}

// RecentCommits lists the newest commits on the default branch.
func (c *Client) RecentCommits(ctx context.Context, repo string, limit int) ([]models.Commit, error) {
	if limit <= 0 {
		limit = 10
	}
	var raw []struct {
		SHA    string `json:"sha"`
		Commit struct {
			Message string `json:"message"`
			Author  struct {
				Name string    `json:"name"`
				Date time.Time `json:"date"`
			} `json:"author"`
		} `json:"commit"`
		HTMLURL string `json:"html_url"`
	}
	q := url.Values{"per_page": {fmt.Sprint(limit)}}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/commits", q, &raw); err != nil {
		return nil, err
	}
	commits := make([]models.Commit, 0, len(raw))
	for _, r := range raw {
		msg := r.Commit.Message
		if idx := strings.IndexByte(msg, '\n'); idx > 0 {
			msg = msg[:idx]
		}
		commits = append(commits, models.Commit{
			SHA:       r.SHA,
			Message:   msg,
			Author:    r.Commit.Author.Name,
			Timestamp: r.Commit.Author.Date,
			URL:       r.HTMLURL,
		})
	}
	return commits, nil
}

// WorkflowRuns lists the newest CI runs.
func (c *Client) WorkflowRuns(ctx context.Context, repo string, limit int) ([]models.WorkflowRun, error) {
	if limit <= 0 {
		limit = 10
	}
	var raw struct {
		WorkflowRuns []struct {
			ID         int64     `json:"id"`
			Name       string    `json:"name"`
			Status     string    `json:"status"`
			Conclusion string    `json:"conclusion"`
			HeadBranch string    `json:"head_branch"`
			HeadSHA    string    `json:"head_sha"`
			CreatedAt  time.Time `json:"created_at"`
			HTMLURL    string    `json:"html_url"`
		} `json:"workflow_runs"`
	}
	q := url.Values{"per_page": {fmt.Sprint(limit)}}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/actions/runs", q, &raw); err != nil {
		return nil, err
	}
	runs := make([]models.WorkflowRun, 0, len(raw.WorkflowRuns))
	for _, r := range raw.WorkflowRuns {
		runs = append(runs, models.WorkflowRun{
			ID:         r.ID,
			Name:       r.Name,
			Status:     r.Status,
			Conclusion: r.Conclusion,
			Branch:     r.HeadBranch,
			HeadSHA:    r.HeadSHA,
			CreatedAt:  r.CreatedAt,
			URL:        r.HTMLURL,
		})
	}
	return runs, nil
}

// FailedJobSummaries returns compact failure descriptions for one workflow
// run: job name, the failed steps, and their conclusions.
func (c *Client) FailedJobSummaries(ctx context.Context, repo string, runID int64) ([]string, error) {
	var raw struct {
		Jobs []struct {
			Name       string `json:"name"`
			Conclusion string `json:"conclusion"`
			Steps      []struct {
				Name       string `json:"name"`
				Conclusion string `json:"conclusion"`
			} `json:"steps"`
		} `json:"jobs"`
	}
	path := fmt.Sprintf("/repos/%s/actions/runs/%d/jobs", repo, runID)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var summaries []string
	for _, job := range raw.Jobs {
		if job.Conclusion != "failure" {
			continue
		}
		var failedSteps []string
		for _, step := range job.Steps {
			if step.Conclusion == "failure" {
				failedSteps = append(failedSteps, step.Name)
			}
		}
		summaries = append(summaries, fmt.Sprintf("job %q failed (steps: %s)",
			job.Name, strings.Join(failedSteps, ", ")))
	}
	return summaries, nil
}

// GetFile fetches one file's decoded content via the contents API.
func (c *Client) GetFile(ctx context.Context, repo, path string) (string, error) {
	var raw struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/contents/"+path, nil, &raw); err != nil {
		return "", err
	}
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode file content: %w", err)
		}
		return string(decoded), nil
	}
	return raw.Content, nil
}

// GetReadme fetches the repository README.
func (c *Client) GetReadme(ctx context.Context, repo string) (string, error) {
	var raw struct {
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/readme", nil, &raw); err != nil {
		return "", err
	}
	if raw.Encoding == "base64" {
		decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(raw.Content, "\n", ""))
		if err != nil {
			return "", fmt.Errorf("decode readme: %w", err)
		}
		return string(decoded), nil
	}
	return raw.Content, nil
}

// ListDocs lists markdown files under docs/ (one level, bounded).
func (c *Client) ListDocs(ctx context.Context, repo string, limit int) ([]models.RepoFile, error) {
	if limit <= 0 {
		limit = 5
	}
	var raw []struct {
		Name string `json:"name"`
		Path string `json:"path"`
		Type string `json:"type"`
	}
	if err := c.do(ctx, http.MethodGet, "/repos/"+repo+"/contents/docs", nil, &raw); err != nil {
		return nil, err
	}
	var docs []models.RepoFile
	for _, item := range raw {
		if item.Type != "file" || !strings.HasSuffix(item.Name, ".md") {
			continue
		}
		docs = append(docs, models.RepoFile{Path: item.Path})
		if len(docs) >= limit {
			break
		}
	}
	return docs, nil
}

// CompareDiff returns the file-level summary of a commit range.
func (c *Client) CompareDiff(ctx context.Context, repo, base, head string) ([]string, error) {
	var raw struct {
		Files []struct {
			Filename  string `json:"filename"`
			Status    string `json:"status"`
			Additions int    `json:"additions"`
			Deletions int    `json:"deletions"`
		} `json:"files"`
	}
	path := fmt.Sprintf("/repos/%s/compare/%s...%s", repo, base, head)
	if err := c.do(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return nil, err
	}
	var out []string
	for _, f := range raw.Files {
		out = append(out, fmt.Sprintf("%s %s (+%d/-%d)", f.Status, f.Filename, f.Additions, f.Deletions))
	}
	return out, nil
}
