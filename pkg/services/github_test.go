package services

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeGitHub serves the subset of the contents API the client uses.
type fakeGitHub struct {
	mu    sync.Mutex
	files map[string][]byte
	puts  []putContentsRequest
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *httptest.Server) {
	t.Helper()
	f := &fakeGitHub{files: map[string][]byte{}}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeGitHub) serve(w http.ResponseWriter, r *http.Request) {
	const prefix = "/repos/octo/site/contents/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	p := strings.TrimPrefix(r.URL.Path, prefix)

	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch r.Method {
	case http.MethodGet:
		content, ok := f.files[p]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"Not Found"}`))
			return
		}
		// wrap like GitHub does
		enc := base64.StdEncoding.EncodeToString(content)
		var wrapped strings.Builder
		for len(enc) > 60 {
			wrapped.WriteString(enc[:60] + "\n")
			enc = enc[60:]
		}
		wrapped.WriteString(enc)
		json.NewEncoder(w).Encode(map[string]string{
			"type": "file", "encoding": "base64", "path": p,
			"sha": BlobSHA(content), "content": wrapped.String(),
		})
	case http.MethodPut:
		var req putContentsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.puts = append(f.puts, req)
		existing, exists := f.files[p]
		switch {
		case exists && req.SHA == "":
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message":"Invalid request.\n\n\"sha\" wasn't supplied."}`))
			return
		case exists && req.SHA != BlobSHA(existing):
			w.WriteHeader(http.StatusConflict)
			w.Write([]byte(`{"message":"` + p + ` does not match ` + req.SHA + `"}`))
			return
		}
		content, _ := base64.StdEncoding.DecodeString(req.Content)
		f.files[p] = content
		if exists {
			w.WriteHeader(http.StatusOK)
		} else {
			w.WriteHeader(http.StatusCreated)
		}
		json.NewEncoder(w).Encode(map[string]interface{}{
			"content": map[string]string{"path": p, "sha": BlobSHA(content), "html_url": "https://github.com/octo/site/blob/main/" + p},
			"commit":  map[string]string{"sha": "c0ffee"},
		})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func newTestGitHubClient(srv *httptest.Server) *GitHubClient {
	return NewGitHubClient(srv.URL, GitHubRepo{Owner: "octo", Name: "site", Branch: "main"}, "ghp_secret", srv.Client(), zap.NewNop())
}

func TestGitHubClient_GetFile_NotFound(t *testing.T) {
	_, srv := newFakeGitHub(t)
	client := newTestGitHubClient(srv)

	_, err := client.GetFile(context.Background(), "outstatic/content/metadata.json")
	assert.ErrorIs(t, err, ErrFileNotFound)
}

func TestGitHubClient_CreateThenConflict(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	client := newTestGitHubClient(srv)
	ctx := context.Background()

	res := client.PutFile(ctx, FileWrite{Path: "outstatic/content/blogs/a.md", Content: []byte("hello"), Message: "Add a.md"})
	require.Equal(t, WriteCreated, res.Status)
	assert.Equal(t, BlobSHA([]byte("hello")), res.Ref.SHA)
	assert.Equal(t, "c0ffee", res.Ref.CommitSHA)
	assert.Equal(t, "https://github.com/octo/site/blob/main/outstatic/content/blogs/a.md", res.Ref.HTMLURL)

	require.Len(t, fake.puts, 1)
	assert.Equal(t, "main", fake.puts[0].Branch)
	assert.Equal(t, "Add a.md", fake.puts[0].Message)
	assert.Empty(t, fake.puts[0].SHA)

	res = client.PutFile(ctx, FileWrite{Path: "outstatic/content/blogs/a.md", Content: []byte("again"), Message: "Add a.md"})
	assert.Equal(t, WriteConflict, res.Status)
	assert.Equal(t, http.StatusUnprocessableEntity, res.StatusCode)
	assert.Contains(t, res.Message, "sha")
	assert.Equal(t, []byte("hello"), fake.files["outstatic/content/blogs/a.md"])
}

func TestGitHubClient_ReadAndUpdate(t *testing.T) {
	fake, srv := newFakeGitHub(t)
	client := newTestGitHubClient(srv)
	ctx := context.Background()

	long := strings.Repeat(`{"metadata":[]}`, 20)
	fake.files["outstatic/content/metadata.json"] = []byte(long)

	file, err := client.GetFile(ctx, "outstatic/content/metadata.json")
	require.NoError(t, err)
	assert.Equal(t, long, string(file.Content))
	assert.Equal(t, BlobSHA([]byte(long)), file.SHA)

	res := client.PutFile(ctx, FileWrite{Path: file.Path, Content: []byte("v2"), SHA: file.SHA, Message: "update"})
	assert.Equal(t, WriteUpdated, res.Status)

	// the token from the first read is now stale
	res = client.PutFile(ctx, FileWrite{Path: file.Path, Content: []byte("v3"), SHA: file.SHA, Message: "update"})
	assert.Equal(t, WriteConflict, res.Status)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.Equal(t, []byte("v2"), fake.files["outstatic/content/metadata.json"])
}

func TestGitHubClient_RejectedAndRedacted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"message":"token ghp_secret lacks contents:write"}`))
	}))
	defer srv.Close()
	client := newTestGitHubClient(srv)

	res := client.PutFile(context.Background(), FileWrite{Path: "a.md", Content: []byte("x")})
	assert.Equal(t, WriteRejected, res.Status)
	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	assert.NotContains(t, res.Message, "ghp_secret")
	assert.Contains(t, res.Message, "***")
}

func TestGitHubClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client := newTestGitHubClient(srv)
	srv.Close()

	res := client.PutFile(context.Background(), FileWrite{Path: "a.md", Content: []byte("x")})
	assert.Equal(t, WriteTransportError, res.Status)
	assert.Error(t, res.Err)

	_, err := client.GetFile(context.Background(), "a.md")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrFileNotFound)
}
