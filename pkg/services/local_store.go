package services

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"blog-agent/pkg/models"
)

// LocalStore is a ContentStore backed by a directory. It keeps the same
// create-only and version-token rules as the hosted repository, with git
// blob hashes as tokens.
type LocalStore struct {
	root string
	mu   sync.Mutex
}

func NewLocalStore(root string) (*LocalStore, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

// SafeJoin resolves target under root and rejects paths that escape it.
func SafeJoin(root, target string) (string, error) {
	cleanTarget := path.Clean("/" + filepath.ToSlash(target))
	if strings.Contains(target, "..") || cleanTarget == "/" {
		return "", fmt.Errorf("invalid path %q", target)
	}
	return filepath.Join(root, filepath.FromSlash(cleanTarget)), nil
}

// BlobSHA is the git object id of content.
func BlobSHA(content []byte) string {
	h := sha1.New()
	fmt.Fprintf(h, "blob %d\x00", len(content))
	h.Write(content)
	return hex.EncodeToString(h.Sum(nil))
}

func (s *LocalStore) GetFile(_ context.Context, p string) (*RemoteFile, error) {
	full, err := SafeJoin(s.root, p)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	content, err := os.ReadFile(full)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrFileNotFound
	}
	if err != nil {
		return nil, err
	}
	return &RemoteFile{Path: p, Content: content, SHA: BlobSHA(content)}, nil
}

func (s *LocalStore) PutFile(_ context.Context, w FileWrite) WriteResult {
	full, err := SafeJoin(s.root, w.Path)
	if err != nil {
		return WriteResult{Status: WriteRejected, Message: err.Error()}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := os.ReadFile(full)
	exists := err == nil
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return WriteResult{Status: WriteTransportError, Err: err}
	}

	status := WriteCreated
	switch {
	case w.SHA == "" && exists:
		return WriteResult{Status: WriteConflict, Message: fmt.Sprintf("%s already exists", w.Path)}
	case w.SHA != "" && !exists:
		return WriteResult{Status: WriteConflict, Message: fmt.Sprintf("%s does not exist", w.Path)}
	case w.SHA != "":
		if current := BlobSHA(existing); current != w.SHA {
			return WriteResult{Status: WriteConflict, Message: fmt.Sprintf("%s is at %s but expected %s", w.Path, current, w.SHA)}
		}
		status = WriteUpdated
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return WriteResult{Status: WriteTransportError, Err: err}
	}
	if err := os.WriteFile(full, w.Content, 0644); err != nil {
		return WriteResult{Status: WriteTransportError, Err: err}
	}

	return WriteResult{
		Status: status,
		Ref: models.RemoteFileRef{
			Path:    w.Path,
			SHA:     BlobSHA(w.Content),
			HTMLURL: "file://" + filepath.ToSlash(full),
		},
	}
}
