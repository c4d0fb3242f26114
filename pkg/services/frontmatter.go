package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"blog-agent/pkg/models"

	"github.com/goliatone/go-slug"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

const (
	codeFence     = "```"
	yamlDelimiter = "---"
	tomlDelimiter = "+++"
)

// StripCodeFence removes a fenced-code wrapper around the whole text: the
// opening line and everything from the last fence onward. Text with an
// opening fence but no closing one is returned unchanged (trimmed).
func StripCodeFence(content string) string {
	cleaned := strings.TrimSpace(content)
	if !strings.HasPrefix(cleaned, codeFence) {
		return cleaned
	}
	nl := strings.Index(cleaned, "\n")
	end := strings.LastIndex(cleaned, codeFence)
	if nl == -1 || end < nl {
		return cleaned
	}
	return strings.TrimSpace(cleaned[nl+1 : end])
}

// ParseDocument cleans generated text and decodes its leading frontmatter.
// The returned document is always usable. A non-nil *ParseError means the
// block was present but undecodable and defaults were applied.
//
// The frontmatter block stays in Body; the file is published with it. When
// the slug had to be normalised the block is re-rendered so that Body and
// the publish path agree.
func ParseDocument(raw string) (models.ArticleDocument, error) {
	cleaned := StripCodeFence(raw)

	block, rest, format := splitFrontMatter(cleaned)
	doc := models.ArticleDocument{
		Body:   cleaned,
		Format: format,
	}
	if format == "" {
		doc.FrontMatter = buildFrontMatter(nil)
		return doc, nil
	}

	fm, err := decodeFrontMatter(block, format)
	if err != nil {
		doc.FrontMatter = buildFrontMatter(nil)
		return doc, &ParseError{Format: format, Err: err}
	}
	doc.FrontMatter = buildFrontMatter(fm)

	if original, ok := fm["slug"].(string); ok && original != doc.FrontMatter.Slug {
		fm["slug"] = doc.FrontMatter.Slug
		if out, err := RenderDocument(fm, strings.TrimLeft(rest, "\r\n"), format); err == nil {
			doc.Body = string(out)
		} else {
			// keep the generated text; only the path carries the new slug
			fm["slug"] = original
		}
	}
	return doc, nil
}

// splitFrontMatter returns the text between the opening and closing
// delimiters, the text after the closing one and the block format. format
// is empty when there is no complete block.
func splitFrontMatter(content string) (block, rest, format string) {
	var delim string
	switch {
	case strings.HasPrefix(content, yamlDelimiter):
		delim, format = yamlDelimiter, "yaml"
	case strings.HasPrefix(content, tomlDelimiter):
		delim, format = tomlDelimiter, "toml"
	default:
		return "", content, ""
	}

	end := strings.Index(content[len(delim):], delim)
	if end == -1 {
		return "", content, ""
	}
	block = strings.TrimSpace(content[len(delim) : len(delim)+end])
	rest = content[2*len(delim)+end:]
	return block, rest, format
}

func decodeFrontMatter(block, format string) (map[string]interface{}, error) {
	var fm map[string]interface{}
	var err error
	switch format {
	case "yaml":
		err = yaml.Unmarshal([]byte(block), &fm)
	case "toml":
		err = toml.Unmarshal([]byte(block), &fm)
	default:
		err = fmt.Errorf("unsupported format: %s", format)
	}
	if err != nil {
		return nil, err
	}
	if fm == nil {
		fm = map[string]interface{}{}
	}
	return sanitizeFrontMatter(fm), nil
}

func buildFrontMatter(raw map[string]interface{}) models.FrontMatter {
	if raw == nil {
		raw = map[string]interface{}{}
	}
	fm := models.FrontMatter{
		Title:       stringValue(raw, "title", models.DefaultTitle),
		Status:      stringValue(raw, "status", models.DefaultStatus),
		Slug:        normalizeSlug(stringValue(raw, "slug", "")),
		Description: stringValue(raw, "description", ""),
		CoverImage:  stringValue(raw, "coverImage", ""),
		Category:    stringValue(raw, "category", models.DefaultCategory),
		PublishedAt: stringValue(raw, "publishedAt", ""),
		Raw:         raw,
	}

	switch author := raw["author"].(type) {
	case map[string]interface{}:
		fm.Author.Name = stringValue(author, "name", "")
		fm.Author.Picture = stringValue(author, "picture", "")
	case string:
		fm.Author.Name = author
	}
	return fm
}

// stringValue returns m[key] as a string, or fallback when it is absent or
// blank.
func stringValue(m map[string]interface{}, key, fallback string) string {
	var s string
	switch v := m[key].(type) {
	case nil:
		return fallback
	case string:
		s = v
	case time.Time:
		s = v.UTC().Format(time.RFC3339Nano)
	case map[string]interface{}, []interface{}:
		return fallback
	default:
		s = fmt.Sprint(v)
	}
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// normalizeSlug makes value URL-safe. Accented letters are transliterated
// first ("Über Café" becomes "uber-cafe") so they are not simply dropped.
func normalizeSlug(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.DefaultSlug
	}
	if slug.IsValid(value) {
		return value
	}
	if transliterated, err := slug.HashNormalize(value); err == nil && transliterated != "" {
		value = transliterated
	}
	normalized, err := slug.Normalize(value)
	if err != nil || normalized == "" {
		return models.DefaultSlug
	}
	return normalized
}

// RenderDocument writes fm and body back out as a frontmatter document with
// a blank line between the closing delimiter and body.
func RenderDocument(fm map[string]interface{}, body string, format string) ([]byte, error) {
	var block bytes.Buffer
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(&block)
		enc.SetIndent(2)
		if err := enc.Encode(sanitizeFrontMatter(fm)); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
	case "toml":
		if err := toml.NewEncoder(&block).Encode(sanitizeFrontMatter(fm)); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format: %s", format)
	}

	delim := yamlDelimiter
	if format == "toml" {
		delim = tomlDelimiter
	}

	var out bytes.Buffer
	out.WriteString(delim + "\n")
	out.Write(bytes.TrimRight(block.Bytes(), "\n"))
	out.WriteString("\n" + delim + "\n")
	if body = strings.TrimRight(body, "\n"); body != "" {
		out.WriteString("\n" + body + "\n")
	}
	return out.Bytes(), nil
}

func sanitizeFrontMatter(fm map[string]interface{}) map[string]interface{} {
	if fm == nil {
		return map[string]interface{}{}
	}
	sanitized := make(map[string]interface{}, len(fm))
	for k, v := range fm {
		sanitized[k] = sanitizeFrontMatterValue(v)
	}
	return sanitized
}

func sanitizeFrontMatterValue(value interface{}) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		return sanitizeFrontMatter(v)
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(v))
		for key, inner := range v {
			normalized[fmt.Sprint(key)] = sanitizeFrontMatterValue(inner)
		}
		return normalized
	case []interface{}:
		slice := make([]interface{}, len(v))
		for i := range v {
			slice[i] = sanitizeFrontMatterValue(v[i])
		}
		return slice
	default:
		return v
	}
}
