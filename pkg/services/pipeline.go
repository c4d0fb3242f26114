package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"reflect"
	"strings"
	"time"

	"blog-agent/pkg/models"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type Stage string

const (
	StageValidating Stage = "validating"
	StageGenerating Stage = "generating"
	StageParsing    Stage = "parsing"
	StagePublishing Stage = "publishing"
	StageDone       Stage = "done"
	StageFailed     Stage = "failed"
)

// PublishedAtLayout is the timestamp format written into frontmatter.
const PublishedAtLayout = "2006-01-02T15:04:05.000Z"

const SuccessMessage = "Successfully pushed blog post to GitHub repository"

type ContentGenerator interface {
	Research(ctx context.Context, topic string, year int) (string, error)
	WriteArticle(ctx context.Context, brief ArticleBrief) (string, error)
}

type ArticlePublisher interface {
	Publish(ctx context.Context, path, content, message string) (models.RemoteFileRef, error)
	AppendManifestEntry(ctx context.Context, entry models.ManifestEntry) error
}

// Result describes a pipeline run. On failure it is still returned, with
// Stage set to StageFailed and FailedAt naming where the run stopped.
// ArticlePublished without ManifestUpdated means the article exists in the
// repository but is missing from the index.
type Result struct {
	Stage            Stage                   `json:"stage"`
	FailedAt         Stage                   `json:"failed_at,omitempty"`
	Slug             string                  `json:"slug,omitempty"`
	Path             string                  `json:"path,omitempty"`
	Ref              models.RemoteFileRef    `json:"ref"`
	BlogURL          string                  `json:"blog_url,omitempty"`
	Article          *models.ArticleDocument `json:"-"`
	ArticlePublished bool                    `json:"article_published"`
	ManifestUpdated  bool                    `json:"manifest_updated"`
	Elapsed          time.Duration           `json:"elapsed_ns"`
}

type Pipeline struct {
	generator ContentGenerator
	publisher ArticlePublisher
	layout    ContentLayout
	logger    *zap.Logger
	validate  *validator.Validate
	now       func() time.Time
}

func NewPipeline(gen ContentGenerator, pub ArticlePublisher, layout ContentLayout, logger *zap.Logger) *Pipeline {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Pipeline{
		generator: gen,
		publisher: pub,
		layout:    layout,
		logger:    logger,
		validate:  v,
		now:       time.Now,
	}
}

// WithClock replaces the time source used for publishedAt and the research
// year.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

func (p *Pipeline) Run(ctx context.Context, req models.GenerationRequest) (*Result, error) {
	start := p.now()
	res := &Result{Stage: StageValidating}

	fail := func(err error) (*Result, error) {
		res.FailedAt = res.Stage
		res.Stage = StageFailed
		res.Elapsed = p.now().Sub(start)
		p.logger.Error("pipeline failed",
			zap.String("stage", string(res.FailedAt)),
			zap.Bool("article_published", res.ArticlePublished),
			zap.Error(err))
		return res, &StageError{Stage: res.FailedAt, Err: err}
	}

	req, err := p.validateRequest(req)
	if err != nil {
		return fail(err)
	}
	if req.PublishedAt.IsZero() {
		req.PublishedAt = start
	}
	publishedAt := req.PublishedAt.UTC().Format(PublishedAtLayout)
	log := p.logger.With(zap.String("topic", req.Topic))

	res.Stage = StageGenerating
	research, err := p.generator.Research(ctx, req.Topic, req.PublishedAt.Year())
	if err != nil {
		return fail(err)
	}
	raw, err := p.generator.WriteArticle(ctx, ArticleBrief{
		Topic:            req.Topic,
		Research:         research,
		AuthorName:       req.AuthorName,
		AuthorPictureURL: req.AuthorPictureURL,
		CoverImageURL:    req.CoverImageURL,
		PublishedAt:      publishedAt,
	})
	if err != nil {
		return fail(err)
	}

	res.Stage = StageParsing
	doc, err := ParseDocument(raw)
	if err != nil {
		log.Warn("frontmatter could not be parsed, using defaults", zap.Error(err))
	}
	res.Article = &doc
	res.Slug = doc.FrontMatter.Slug
	res.Path = p.layout.ArticlePath(res.Slug)

	res.Stage = StagePublishing
	ref, err := p.publisher.Publish(ctx, res.Path, doc.Body, fmt.Sprintf("Add %s.md to %s", res.Slug, path.Join(p.layout.Root, p.layout.Collection)))
	if err != nil {
		return fail(err)
	}
	res.Ref = ref
	res.BlogURL = ref.HTMLURL
	res.ArticlePublished = true

	if err := p.publisher.AppendManifestEntry(ctx, models.NewManifestEntry(doc.FrontMatter, res.Path)); err != nil {
		return fail(err)
	}
	res.ManifestUpdated = true

	res.Stage = StageDone
	res.Elapsed = p.now().Sub(start)
	log.Info("pipeline finished",
		zap.String("slug", res.Slug),
		zap.String("path", res.Path),
		zap.Duration("elapsed", res.Elapsed))
	return res, nil
}

func (p *Pipeline) validateRequest(req models.GenerationRequest) (models.GenerationRequest, error) {
	req.Topic = strings.TrimSpace(req.Topic)
	req.AuthorName = strings.TrimSpace(req.AuthorName)
	req.AuthorPictureURL = strings.TrimSpace(req.AuthorPictureURL)
	req.CoverImageURL = strings.TrimSpace(req.CoverImageURL)

	if err := p.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return req, &ValidationError{Field: verrs[0].Field()}
		}
		return req, err
	}
	return req, nil
}
