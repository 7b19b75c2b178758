package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/feichai0017/docfiler/pkg/logger"
)

// TranscriptStore persists transcript files. storage.Storage satisfies it.
type TranscriptStore interface {
	Store(ctx context.Context, reader io.Reader, filename string) (string, error)
}

// TranscriptRecorder writes the prompt and the provider outcome of each
// analysis as a markdown file.
type TranscriptRecorder struct {
	store  TranscriptStore
	prefix string
	logger logger.Logger
	now    func() time.Time
}

func NewTranscriptRecorder(store TranscriptStore, prefix string, log logger.Logger) *TranscriptRecorder {
	return &TranscriptRecorder{
		store:  store,
		prefix: strings.Trim(prefix, "/"),
		logger: log.Named("transcript"),
		now:    time.Now,
	}
}

// Record stores the transcript and returns its key. Storage failures are
// logged and reported as an empty key.
func (r *TranscriptRecorder) Record(ctx context.Context, path, prompt string, raw map[string]any, callErr error) string {
	if r == nil || r.store == nil {
		return ""
	}

	now := r.now()
	name := filepath.Base(path)
	key := fmt.Sprintf("prompt_%s_%s.md", now.Format("20060102_150405"), safeName(name))
	if r.prefix != "" {
		key = r.prefix + "/" + key
	}

	content := renderTranscript(name, path, prompt, now, raw, callErr)
	stored, err := r.store.Store(ctx, strings.NewReader(content), key)
	if err != nil {
		r.logger.Warn("Failed to store prompt transcript",
			logger.String("key", key),
			logger.Error(err),
		)
		return ""
	}
	return stored
}

func renderTranscript(name, path, prompt string, at time.Time, raw map[string]any, callErr error) string {
	var b bytes.Buffer
	fmt.Fprintf(&b, "# Prompt Cache: %s\n\n", name)
	fmt.Fprintf(&b, "**Timestamp**: %s\n", at.Format("2006-01-02T15:04:05.000000"))
	fmt.Fprintf(&b, "**File**: %s\n\n", path)
	b.WriteString("## Prompt\n\n")
	b.WriteString(prompt)
	b.WriteString("\n\n---\n\n")

	if callErr != nil {
		fmt.Fprintf(&b, "## Error\n\n%v\n", callErr)
		return b.String()
	}

	pretty, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		fmt.Fprintf(&b, "## Error\n\nfailed to encode response: %v\n", err)
		return b.String()
	}
	b.WriteString("## Response\n\n```json\n")
	b.Write(pretty)
	b.WriteString("\n```\n")
	return b.String()
}

// safeName keeps letters, digits and "._- ".
func safeName(name string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			return r
		}
		return -1
	}, name)
}
