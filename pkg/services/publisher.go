package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sync"

	"blog-agent/pkg/models"

	"go.uber.org/zap"
)

// ContentLayout says where articles and the manifest live in the repository.
type ContentLayout struct {
	Root       string // e.g. outstatic/content
	Collection string // e.g. blogs
}

func (l ContentLayout) ArticlePath(slug string) string {
	return path.Join(l.Root, l.Collection, slug+".md")
}

func (l ContentLayout) ManifestPath() string {
	return path.Join(l.Root, "metadata.json")
}

// Publisher writes articles and maintains the manifest in a ContentStore.
type Publisher struct {
	store  ContentStore
	layout ContentLayout
	logger *zap.Logger

	// serialises manifest read-modify-write within this process
	manifestMu sync.Mutex
}

func NewPublisher(store ContentStore, layout ContentLayout, logger *zap.Logger) *Publisher {
	return &Publisher{store: store, layout: layout, logger: logger}
}

// Publish creates a new file. It never overwrites: an existing file at
// path yields a *PublishError wrapping ErrFileExists.
func (p *Publisher) Publish(ctx context.Context, filePath, content, message string) (models.RemoteFileRef, error) {
	res := p.store.PutFile(ctx, FileWrite{
		Path:    filePath,
		Content: []byte(content),
		Message: message,
	})

	switch res.Status {
	case WriteCreated:
		p.logger.Info("article published", zap.String("path", filePath), zap.String("sha", res.Ref.SHA))
		return res.Ref, nil
	case WriteConflict:
		return models.RemoteFileRef{}, &PublishError{Path: filePath, StatusCode: res.StatusCode, Message: res.Message, Err: ErrFileExists}
	case WriteTransportError:
		return models.RemoteFileRef{}, &PublishError{Path: filePath, StatusCode: res.StatusCode, Err: res.Err}
	default:
		return models.RemoteFileRef{}, &PublishError{Path: filePath, StatusCode: res.StatusCode, Message: res.Message, Err: res.Err}
	}
}

// AppendManifestEntry adds entry to the manifest, creating the manifest
// when it is absent. An update is conditional on the version read; if the
// manifest moved in between the call fails with ErrStaleManifest and the
// remote file is left untouched. Nothing is retried.
func (p *Publisher) AppendManifestEntry(ctx context.Context, entry models.ManifestEntry) error {
	p.manifestMu.Lock()
	defer p.manifestMu.Unlock()

	manifestPath := p.layout.ManifestPath()
	log := p.logger.With(zap.String("manifest", manifestPath), zap.String("slug", entry.Slug))

	doc := &models.ManifestDocument{}
	var sha string

	file, err := p.store.GetFile(ctx, manifestPath)
	switch {
	case errors.Is(err, ErrFileNotFound):
		log.Info("manifest not found, creating new one")
	case err != nil:
		return &ManifestError{Path: manifestPath, Err: err}
	default:
		sha = file.SHA
		parsed, perr := models.ParseManifest(file.Content)
		if perr != nil {
			log.Warn("manifest is not valid JSON, starting from an empty one", zap.Error(perr))
		} else {
			doc = parsed
		}
	}

	if doc.HasSlug(entry.Slug) {
		log.Warn("manifest already has an entry with this slug, appending another")
	}
	if err := doc.Append(entry); err != nil {
		return &ManifestError{Path: manifestPath, Err: err}
	}

	data, err := doc.Encode()
	if err != nil {
		return &ManifestError{Path: manifestPath, Err: err}
	}

	message := fmt.Sprintf("Create metadata.json with %s", entry.Slug)
	if sha != "" {
		message = fmt.Sprintf("Update metadata.json with %s", entry.Slug)
	}

	res := p.store.PutFile(ctx, FileWrite{
		Path:    manifestPath,
		Content: data,
		Message: message,
		SHA:     sha,
	})
	switch res.Status {
	case WriteCreated, WriteUpdated:
		log.Info("manifest updated", zap.Stringer("result", res.Status), zap.Int("entries", len(doc.Metadata)))
		return nil
	case WriteConflict:
		return &ManifestError{Path: manifestPath, StatusCode: res.StatusCode, Message: res.Message, Err: ErrStaleManifest}
	default:
		return &ManifestError{Path: manifestPath, StatusCode: res.StatusCode, Message: res.Message, Err: res.Err}
	}
}
