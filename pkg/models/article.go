package models

import "time"

// Documented frontmatter defaults, applied when a key is absent.
const (
	DefaultSlug     = "default-slug"
	DefaultTitle    = "Untitled"
	DefaultStatus   = "draft"
	DefaultCategory = "Uncategorized"
)

// GenerationRequest is the input of a single pipeline run.
type GenerationRequest struct {
	Topic            string    `json:"topic" validate:"required"`
	AuthorName       string    `json:"author_name" validate:"required"`
	AuthorPictureURL string    `json:"author_picture_url" validate:"required"`
	CoverImageURL    string    `json:"cover_image_url" validate:"required"`
	PublishedAt      time.Time `json:"-"`
}

type Author struct {
	Name    string `json:"name" yaml:"name" toml:"name"`
	Picture string `json:"picture" yaml:"picture" toml:"picture"`
}

// FrontMatter is the typed view of an article's metadata block. Raw holds
// the decoded mapping as-is, including keys not listed here.
type FrontMatter struct {
	Title       string
	Status      string
	Author      Author
	Slug        string
	Description string
	CoverImage  string
	Category    string
	PublishedAt string
	Raw         map[string]interface{}
}

// ArticleDocument is a generated post after parsing. Body is the cleaned
// Markdown with the frontmatter block still at the top.
type ArticleDocument struct {
	FrontMatter FrontMatter
	Body        string
	Format      string // yaml, toml or "" when no block was found
}

// RemoteFileRef identifies a file written to the content repository.
type RemoteFileRef struct {
	Path      string `json:"path"`
	SHA       string `json:"sha"`
	HTMLURL   string `json:"html_url,omitempty"`
	CommitSHA string `json:"commit_sha,omitempty"`
}
