// Package filing applies filing suggestions to files on disk.
package filing

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type Mode string

const (
	ModeRename Mode = "rename"
	ModeMove   Mode = "move"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeRename, ModeMove:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid commit mode %q: must be 'rename' or 'move'", s)
	}
}

type Status string

const (
	StatusRenamed Status = "renamed"
	StatusMoved   Status = "moved"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

var ErrTargetExists = errors.New("target file already exists")

// Outcome reports what happened to one file.
type Outcome struct {
	Source  string `json:"source"`
	Target  string `json:"target,omitempty"`
	Status  Status `json:"status"`
	// Message mirrors Err for JSON replies.
	Message string `json:"error,omitempty"`
	Err     error  `json:"-"`
}

type Filer struct {
	destBase string
	logger   logger.Logger
}

// NewFiler returns a Filer. destBase is the default base for moves; when
// empty a file moves relative to its own folder.
func NewFiler(destBase string, log logger.Logger) *Filer {
	return &Filer{destBase: destBase, logger: log.Named("filing")}
}

// DestBase returns the default base folder for moves.
func (f *Filer) DestBase() string { return f.destBase }

func (f *Filer) Commit(path string, s models.FilingSuggestion, mode Mode, destBase string) Outcome {
	if mode == ModeMove {
		return f.Move(path, s, destBase)
	}
	return f.Rename(path, s)
}

// Rename gives path the suggested filename in its current folder.
func (f *Filer) Rename(path string, s models.FilingSuggestion) Outcome {
	out := Outcome{Source: path}
	if err := checkFilename(s.Filename); err != nil {
		return f.fail(out, err)
	}

	out.Target = filepath.Join(filepath.Dir(path), s.Filename)
	if err := moveFile(path, out.Target); err != nil {
		return f.fail(out, err)
	}

	out.Status = StatusRenamed
	f.logger.Info("Renamed file", logger.String("source", path), logger.String("target", out.Target))
	return out
}

// Move renames path into destBase/destination, creating folders as needed.
// destBase falls back to the Filer default, then to the file's folder. A
// suggestion with no destination is skipped.
func (f *Filer) Move(path string, s models.FilingSuggestion, destBase string) Outcome {
	out := Outcome{Source: path}
	if s.Destination == "" {
		out.Status = StatusSkipped
		f.logger.Info("Skipping file with no destination", logger.String("source", path))
		return out
	}
	if err := checkFilename(s.Filename); err != nil {
		return f.fail(out, err)
	}
	if !filepath.IsLocal(filepath.FromSlash(s.Destination)) {
		return f.fail(out, fmt.Errorf("destination %q leaves the base folder", s.Destination))
	}

	base := destBase
	if base == "" {
		base = f.destBase
	}
	if base == "" {
		base = filepath.Dir(path)
	}

	dir := filepath.Join(base, filepath.FromSlash(s.Destination))
	out.Target = filepath.Join(dir, s.Filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return f.fail(out, fmt.Errorf("failed to create destination: %w", err))
	}
	if err := moveFile(path, out.Target); err != nil {
		return f.fail(out, err)
	}

	out.Status = StatusMoved
	f.logger.Info("Moved file", logger.String("source", path), logger.String("target", out.Target))
	return out
}

// CommitAll applies each suggestion in order and never stops early.
func (f *Filer) CommitAll(items map[string]models.FilingSuggestion, mode Mode, destBase string) []Outcome {
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	outcomes := make([]Outcome, 0, len(paths))
	var ok, failed int
	for _, p := range paths {
		o := f.Commit(p, items[p], mode, destBase)
		switch o.Status {
		case StatusFailed:
			failed++
		case StatusRenamed, StatusMoved:
			ok++
		}
		outcomes = append(outcomes, o)
	}
	f.logger.Info("Commit complete",
		logger.String("mode", string(mode)),
		logger.Int("succeeded", ok),
		logger.Int("failed", failed),
	)
	return outcomes
}

func (f *Filer) fail(out Outcome, err error) Outcome {
	out.Status = StatusFailed
	out.Err = err
	out.Message = err.Error()
	f.logger.Error("Failed to file document",
		logger.String("source", out.Source),
		logger.String("target", out.Target),
		logger.Error(err),
	)
	return out
}

func checkFilename(name string) error {
	if name == "" || name == "." || name == ".." || filepath.Base(name) != name {
		return fmt.Errorf("invalid target filename %q", name)
	}
	return nil
}

// moveFile refuses to overwrite an existing target other than src itself.
func moveFile(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("failed to stat source: %w", err)
	}
	if dst == src {
		return nil
	}
	if _, err := os.Stat(dst); err == nil {
		return fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}

	err := os.Rename(src, dst)
	var linkErr *os.LinkError
	if errors.As(err, &linkErr) && errors.Is(linkErr.Err, syscall.EXDEV) {
		return copyAndRemove(src, dst)
	}
	if err != nil {
		return fmt.Errorf("failed to rename: %w", err)
	}
	return nil
}

func copyAndRemove(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return fmt.Errorf("failed to copy across devices: %w", err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
