package services

import (
	"context"

	"blog-agent/pkg/models"
)

// RemoteFile is a file read from the content repository. SHA is the version
// token to pass back when updating it.
type RemoteFile struct {
	Path    string
	Content []byte
	SHA     string
}

// FileWrite describes a create (SHA empty) or a conditional update.
type FileWrite struct {
	Path    string
	Content []byte
	Message string
	SHA     string
}

type WriteStatus int

const (
	WriteCreated WriteStatus = iota + 1
	WriteUpdated
	// WriteConflict: the file exists on create, or SHA is stale on update.
	WriteConflict
	// WriteRejected: the service answered with some other error status.
	WriteRejected
	// WriteTransportError: no usable answer from the service.
	WriteTransportError
)

func (s WriteStatus) String() string {
	switch s {
	case WriteCreated:
		return "created"
	case WriteUpdated:
		return "updated"
	case WriteConflict:
		return "conflict"
	case WriteRejected:
		return "rejected"
	case WriteTransportError:
		return "transport_error"
	}
	return "unknown"
}

// WriteResult is the outcome of PutFile. Ref is set for WriteCreated and
// WriteUpdated; StatusCode and Message describe the service's answer
// otherwise, and Err holds the transport failure if there was one.
type WriteResult struct {
	Status     WriteStatus
	Ref        models.RemoteFileRef
	StatusCode int
	Message    string
	Err        error
}

func (r WriteResult) OK() bool {
	return r.Status == WriteCreated || r.Status == WriteUpdated
}

// ContentStore is the remote repository holding articles and the manifest.
type ContentStore interface {
	GetFile(ctx context.Context, path string) (*RemoteFile, error)
	PutFile(ctx context.Context, w FileWrite) WriteResult
}
