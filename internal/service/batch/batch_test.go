package batch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type fakeAnalyzer struct {
	fail     map[string]error
	inFlight atomic.Int32
	peak     atomic.Int32
	gate     chan struct{}
}

func (f *fakeAnalyzer) Analyze(ctx context.Context, path string) (*suggest.Analysis, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	if f.gate != nil {
		<-f.gate
	}
	if err := f.fail[filepath.Base(path)]; err != nil {
		return nil, err
	}
	return &suggest.Analysis{Suggestion: models.FilingSuggestion{
		Filename:    "renamed-" + filepath.Base(path),
		Destination: "Work",
	}}, nil
}

func TestRunContinuesAfterFailure(t *testing.T) {
	boom := &common.ExtractionFailure{Path: "b.pdf", Cause: errors.New("bad page")}
	a := &fakeAnalyzer{fail: map[string]error{"b.pdf": boom}}
	r := NewRunner(a, 2, logger.NewTestLogger())

	var mu sync.Mutex
	var calls []int
	results := r.Run(context.Background(), []string{"/in/a.pdf", "/in/b.pdf", "/in/c.png"}, func(done, total int, res Result) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 3, total)
		calls = append(calls, done)
	})

	require.Len(t, results, 3)
	assert.Equal(t, "/in/a.pdf", results[0].Path)
	assert.True(t, results[0].OK())
	assert.Equal(t, "Work/renamed-a.pdf", results[0].Suggestion.String())

	assert.False(t, results[1].OK())
	assert.Nil(t, results[1].Suggestion)
	assert.ErrorIs(t, results[1].Err, common.ErrExtractionFailed)

	assert.True(t, results[2].OK())
	assert.ElementsMatch(t, []int{1, 2, 3}, calls)
}

func TestRunRespectsWorkerLimit(t *testing.T) {
	a := &fakeAnalyzer{gate: make(chan struct{})}
	r := NewRunner(a, 2, logger.NewTestLogger())

	paths := []string{"1.pdf", "2.pdf", "3.pdf", "4.pdf", "5.pdf"}
	done := make(chan []Result)
	go func() { done <- r.Run(context.Background(), paths, nil) }()
	for range paths {
		a.gate <- struct{}{}
	}
	results := <-done

	assert.Len(t, results, 5)
	assert.LessOrEqual(t, a.peak.Load(), int32(2))
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := NewRunner(&fakeAnalyzer{}, 1, logger.NewTestLogger()).Run(ctx, []string{"a.pdf"}, nil)
	require.Len(t, results, 1)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestScanFolder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.PDF", "a.png", "notes.txt", "c.tif", "d.bmp"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.pdf"), 0o755))

	paths, err := ScanFolder(dir)
	require.NoError(t, err)
	var names []string
	for _, p := range paths {
		names = append(names, filepath.Base(p))
	}
	assert.Equal(t, []string{"a.png", "b.PDF", "c.tif", "d.bmp"}, names)

	_, err = ScanFolder(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}
