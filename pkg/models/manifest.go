package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

const ManifestCollection = "blogs"

// ManifestEntry is one record of the Outstatic metadata.json index.
type ManifestEntry struct {
	Category    string        `json:"category"`
	Collection  string        `json:"collection"`
	CoverImage  string        `json:"coverImage"`
	Description string        `json:"description"`
	PublishedAt string        `json:"publishedAt"`
	Slug        string        `json:"slug"`
	Status      string        `json:"status"`
	Title       string        `json:"title"`
	Path        string        `json:"path"`
	Author      Author        `json:"author"`
	Outstatic   OutstaticMeta `json:"__outstatic"`
}

type OutstaticMeta struct {
	Path string `json:"path"`
}

// NewManifestEntry summarises an article stored at path.
func NewManifestEntry(fm FrontMatter, path string) ManifestEntry {
	return ManifestEntry{
		Category:    fm.Category,
		Collection:  ManifestCollection,
		CoverImage:  fm.CoverImage,
		Description: fm.Description,
		PublishedAt: fm.PublishedAt,
		Slug:        fm.Slug,
		Status:      fm.Status,
		Title:       fm.Title,
		Path:        path,
		Author:      fm.Author,
		Outstatic:   OutstaticMeta{Path: path},
	}
}

// ManifestDocument is the metadata.json object. Entries already present
// are kept as raw JSON so fields written by other tools survive a rewrite,
// and so are unknown top-level keys.
type ManifestDocument struct {
	Metadata []json.RawMessage
	extra    map[string]json.RawMessage
}

func ParseManifest(data []byte) (*ManifestDocument, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}

	doc := &ManifestDocument{extra: map[string]json.RawMessage{}}
	for k, v := range top {
		if k == "metadata" {
			continue
		}
		doc.extra[k] = v
	}
	if raw, ok := top["metadata"]; ok && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("decode manifest entries: %w", err)
		}
	}
	return doc, nil
}

// Append adds entry to the end of the sequence.
func (d *ManifestDocument) Append(entry ManifestEntry) error {
	raw, err := encodeJSON(entry, "")
	if err != nil {
		return err
	}
	d.Metadata = append(d.Metadata, raw)
	return nil
}

// Entries decodes every entry. Fields unknown to ManifestEntry are dropped.
func (d *ManifestDocument) Entries() ([]ManifestEntry, error) {
	entries := make([]ManifestEntry, 0, len(d.Metadata))
	for i, raw := range d.Metadata {
		var e ManifestEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode manifest entry %d: %w", i, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (d *ManifestDocument) HasSlug(slug string) bool {
	for _, raw := range d.Metadata {
		var e struct {
			Slug string `json:"slug"`
		}
		if json.Unmarshal(raw, &e) == nil && e.Slug == slug {
			return true
		}
	}
	return false
}

// Encode renders the document with two-space indentation.
func (d *ManifestDocument) Encode() ([]byte, error) {
	top := make(map[string]interface{}, len(d.extra)+1)
	for k, v := range d.extra {
		top[k] = v
	}
	entries := d.Metadata
	if entries == nil {
		entries = []json.RawMessage{}
	}
	top["metadata"] = entries
	return encodeJSON(top, "  ")
}

// encodeJSON marshals v without escaping &, < and > so URLs with query
// strings are written as-is.
func encodeJSON(v interface{}, indent string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent != "" {
		enc.SetIndent("", indent)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
