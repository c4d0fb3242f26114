package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"blog-agent/pkg/models"

	"go.uber.org/zap"
)

type GitHubRepo struct {
	Owner  string
	Name   string
	Branch string
}

// BlobURL is the browser URL of path on the repository's branch.
func (r GitHubRepo) BlobURL(path string) string {
	return fmt.Sprintf("https://github.com/%s/%s/blob/%s/%s", r.Owner, r.Name, r.Branch, path)
}

// GitHubClient implements ContentStore on the GitHub contents API. The
// http.Client is expected to add credentials (see config.GitHubHTTPClient).
type GitHubClient struct {
	apiURL     string
	repo       GitHubRepo
	token      string // only used to redact error messages
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGitHubClient(apiURL string, repo GitHubRepo, token string, httpClient *http.Client, logger *zap.Logger) *GitHubClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &GitHubClient{
		apiURL:     strings.TrimRight(apiURL, "/"),
		repo:       repo,
		token:      token,
		httpClient: httpClient,
		logger:     logger,
	}
}

type contentsResponse struct {
	Type     string `json:"type"`
	Encoding string `json:"encoding"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	HTMLURL  string `json:"html_url"`
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

type putContentsResponse struct {
	Content struct {
		Path    string `json:"path"`
		SHA     string `json:"sha"`
		HTMLURL string `json:"html_url"`
	} `json:"content"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type githubErrorBody struct {
	Message string `json:"message"`
}

func (c *GitHubClient) contentsURL(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.apiURL, url.PathEscape(c.repo.Owner), url.PathEscape(c.repo.Name), strings.Join(segments, "/"))
}

func (c *GitHubClient) newRequest(ctx context.Context, method, target string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *GitHubClient) GetFile(ctx context.Context, path string) (*RemoteFile, error) {
	target := c.contentsURL(path)
	if c.repo.Branch != "" {
		target += "?ref=" + url.QueryEscape(c.repo.Branch)
	}

	req, err := c.newRequest(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %s", path, c.redact(err.Error()))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrFileNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get %s: status %d - %s", path, resp.StatusCode, c.errorMessage(body))
	}

	var out contentsResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if out.Type != "" && out.Type != "file" {
		return nil, fmt.Errorf("get %s: not a file (%s)", path, out.Type)
	}
	if out.Encoding != "base64" {
		return nil, fmt.Errorf("get %s: unsupported content encoding %q", path, out.Encoding)
	}

	// GitHub wraps base64 content at 60 columns.
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(out.Content, "\n", ""))
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", path, err)
	}

	return &RemoteFile{Path: out.Path, Content: content, SHA: out.SHA}, nil
}

func (c *GitHubClient) PutFile(ctx context.Context, w FileWrite) WriteResult {
	payload, err := json.Marshal(putContentsRequest{
		Message: w.Message,
		Content: base64.StdEncoding.EncodeToString(w.Content),
		Branch:  c.repo.Branch,
		SHA:     w.SHA,
	})
	if err != nil {
		return WriteResult{Status: WriteTransportError, Err: err}
	}

	req, err := c.newRequest(ctx, http.MethodPut, c.contentsURL(w.Path), bytes.NewReader(payload))
	if err != nil {
		return WriteResult{Status: WriteTransportError, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return WriteResult{Status: WriteTransportError, Err: fmt.Errorf("put %s: %s", w.Path, c.redact(err.Error()))}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return WriteResult{Status: WriteTransportError, StatusCode: resp.StatusCode, Err: err}
	}

	result := WriteResult{StatusCode: resp.StatusCode}
	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var out putContentsResponse
		if err := json.Unmarshal(body, &out); err != nil {
			result.Status = WriteTransportError
			result.Err = fmt.Errorf("decode put response: %w", err)
			return result
		}
		result.Status = WriteCreated
		if resp.StatusCode == http.StatusOK {
			result.Status = WriteUpdated
		}
		result.Ref = models.RemoteFileRef{
			Path:      w.Path,
			SHA:       out.Content.SHA,
			HTMLURL:   out.Content.HTMLURL,
			CommitSHA: out.Commit.SHA,
		}
		if result.Ref.HTMLURL == "" {
			result.Ref.HTMLURL = c.repo.BlobURL(w.Path)
		}
	case http.StatusConflict:
		result.Status = WriteConflict
		result.Message = c.errorMessage(body)
	case http.StatusUnprocessableEntity:
		// Creating over an existing file fails with 422 "sha wasn't supplied".
		result.Status = WriteRejected
		if w.SHA == "" {
			result.Status = WriteConflict
		}
		result.Message = c.errorMessage(body)
	default:
		result.Status = WriteRejected
		result.Message = c.errorMessage(body)
	}

	c.logger.Debug("github put",
		zap.String("path", w.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.Stringer("result", result.Status))
	return result
}

func (c *GitHubClient) errorMessage(body []byte) string {
	var e githubErrorBody
	if json.Unmarshal(body, &e) == nil && e.Message != "" {
		return c.redact(e.Message)
	}
	return c.redact(strings.TrimSpace(string(body)))
}

func (c *GitHubClient) redact(s string) string {
	if c.token == "" {
		return s
	}
	return strings.ReplaceAll(s, c.token, "***")
}
