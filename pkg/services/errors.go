package services

import (
	"errors"
	"fmt"
)

var (
	ErrFileNotFound    = errors.New("file not found")
	ErrFileExists      = errors.New("file already exists")
	ErrStaleManifest   = errors.New("manifest changed since it was read")
	ErrEmptyCompletion = errors.New("empty response from text generation service")
)

// ValidationError names the first request field that failed validation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required field: %s", e.Field)
}

// GenerationError wraps a failed call to the text generation service.
type GenerationError struct {
	Step string // research or write
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s generation failed: %v", e.Step, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ParseError reports a frontmatter block that could not be decoded. It is
// never fatal: the document falls back to default metadata.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s frontmatter: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type PublishError struct {
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *PublishError) Error() string {
	msg := fmt.Sprintf("publish %s failed", e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PublishError) Unwrap() error { return e.Err }

type ManifestError struct {
	Path       string
	StatusCode int
	Message    string
	Err        error
}

func (e *ManifestError) Error() string {
	msg := fmt.Sprintf("update manifest %s failed", e.Path)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Message != "" {
		msg += " - " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ManifestError) Unwrap() error { return e.Err }

// StageError is returned by Pipeline.Run and records where the run stopped.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }
