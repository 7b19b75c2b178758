// Package batch analyzes many documents concurrently.
package batch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/pkg/logger"
)

// Analyzer is satisfied by *suggest.Service.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*suggest.Analysis, error)
}

// Result holds either a suggestion or the error for one document.
type Result struct {
	Path       string                   `json:"path"`
	Suggestion *models.FilingSuggestion `json:"suggestion,omitempty"`
	Analysis   *suggest.Analysis        `json:"-"`
	Err        error                    `json:"-"`
	Duration   time.Duration            `json:"duration"`
}

func (r Result) OK() bool { return r.Err == nil }

// ProgressFunc is called once per finished document. Calls are serialized.
type ProgressFunc func(done, total int, r Result)

type Runner struct {
	analyzer Analyzer
	workers  int
	logger   logger.Logger
}

func NewRunner(analyzer Analyzer, workers int, log logger.Logger) *Runner {
	if workers <= 0 {
		workers = 1
	}
	return &Runner{analyzer: analyzer, workers: workers, logger: log.Named("batch")}
}

// Run analyzes paths and returns one Result per path in input order.
// Document errors are recorded, not returned; a cancelled ctx marks the
// remaining documents with ctx.Err().
func (r *Runner) Run(ctx context.Context, paths []string, progress ProgressFunc) []Result {
	results := make([]Result, len(paths))
	total := len(paths)

	var mu sync.Mutex
	done := 0

	var g errgroup.Group
	g.SetLimit(r.workers)
	for i, path := range paths {
		g.Go(func() error {
			res := r.analyze(ctx, path)
			results[i] = res

			mu.Lock()
			done++
			n := done
			if progress != nil {
				progress(n, total, res)
			}
			mu.Unlock()
			return nil
		})
	}
	g.Wait()

	var failed int
	for _, res := range results {
		if !res.OK() {
			failed++
		}
	}
	r.logger.Info("Batch complete",
		logger.Int("documents", total),
		logger.Int("failed", failed),
	)
	return results
}

func (r *Runner) analyze(ctx context.Context, path string) Result {
	start := time.Now()
	res := Result{Path: path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	a, err := r.analyzer.Analyze(ctx, path)
	res.Duration = time.Since(start)
	if err != nil {
		r.logger.Warn("Document failed",
			logger.String("path", path),
			logger.Error(err),
		)
		res.Err = err
		return res
	}
	res.Analysis = a
	res.Suggestion = &a.Suggestion
	return res
}

// ScanFolder lists the supported documents directly inside dir, sorted by
// name. Subfolders are not descended.
func ScanFolder(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder: %w", err)
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := models.KindForExtension(filepath.Ext(e.Name())); ok {
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}
