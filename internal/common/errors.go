package common

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds surfaced by the analysis pipeline. Typed errors below match
// them through errors.Is.
var (
	ErrNotFound          = errors.New("document not found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("no page images could be extracted")
	ErrMalformedResponse = errors.New("malformed provider response")
	ErrMissingCredential = errors.New("missing provider credential")
)

// NotFoundError reports a document path that does not resolve to a file.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file not found: %s", e.Path)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// UnsupportedFormatError reports an extension outside the supported set.
type UnsupportedFormatError struct {
	Path      string
	Extension string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported file format %q: %s", e.Extension, e.Path)
}

func (e *UnsupportedFormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ExtractionFailure means every selected page failed to rasterize or
// normalize. Cause holds the last page error.
type ExtractionFailure struct {
	Path  string
	Pages []int
	Cause error
}

func (e *ExtractionFailure) Error() string {
	pages := make([]string, len(e.Pages))
	for i, p := range e.Pages {
		pages[i] = fmt.Sprintf("%d", p)
	}
	msg := fmt.Sprintf("no images generated from %s (pages %s)", e.Path, strings.Join(pages, ","))
	if e.Cause != nil {
		return msg + ": " + e.Cause.Error()
	}
	return msg
}

func (e *ExtractionFailure) Unwrap() error { return e.Cause }

func (e *ExtractionFailure) Is(target error) bool { return target == ErrExtractionFailed }

// MalformedResponseError carries the reply text that could not be parsed.
type MalformedResponseError struct {
	Raw   string
	Cause error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("invalid JSON response: %v", e.Cause)
	}
	return "invalid JSON response"
}

func (e *MalformedResponseError) Unwrap() error { return e.Cause }

func (e *MalformedResponseError) Is(target error) bool { return target == ErrMalformedResponse }

// MissingCredentialError is raised while resolving configuration, before
// any document is processed.
type MissingCredentialError struct {
	Provider string
	Setting  string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("%s not configured for provider: %s", e.Setting, e.Provider)
}

func (e *MissingCredentialError) Is(target error) bool { return target == ErrMissingCredential }

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}
