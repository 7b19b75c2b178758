package pdf

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	docimage "github.com/feichai0017/docfiler/internal/agent/document/image"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/testutil"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func writeTestPDF(t *testing.T, dir string, pages int) string {
	t.Helper()
	return testutil.WritePDF(t, dir, fmt.Sprintf("doc-%d.pdf", pages), pages)
}

// stubRunner emulates pdftoppm by writing a PNG at <prefix>.png.
type stubRunner struct {
	mu        sync.Mutex
	pages     []string
	failPages map[string]bool
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	var page string
	for i := 0; i < len(args)-1; i++ {
		if args[i] == "-f" {
			page = args[i+1]
		}
	}
	s.mu.Lock()
	s.pages = append(s.pages, page)
	s.mu.Unlock()

	if s.failPages[page] {
		return nil, []byte("Syntax Error: broken page"), errors.New("exit status 1")
	}
	prefix := args[len(args)-1]
	if err := imaging.Save(imaging.New(850, 1100, color.White), prefix+".png"); err != nil {
		return nil, nil, err
	}
	return nil, nil, nil
}

func newTestProcessor(runner Runner, total, maxPages int) *Processor {
	p := NewProcessor(logger.NewTestLogger(), docimage.NewNormalizer(500, 150), Options{
		MaxPages: maxPages,
		Runner:   runner,
	})
	p.countPages = func(string) (int, error) { return total, nil }
	return p
}

func TestSelectPageIndices(t *testing.T) {
	cases := []struct {
		total int
		want  []int
	}{
		{0, nil},
		{-1, nil},
		{1, []int{0}},
		{2, []int{0, 1}},
		{3, []int{0, 1, 2}},
		{4, []int{0, 2, 3}},
		{10, []int{0, 5, 9}},
		{11, []int{0, 5, 10}},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, SelectPageIndices(tc.total), "total=%d", tc.total)
	}
}

func TestCapIndices(t *testing.T) {
	assert.Equal(t, []int{0, 5, 9}, capIndices([]int{0, 5, 9}, 3))
	assert.Equal(t, []int{0, 9}, capIndices([]int{0, 5, 9}, 2))
	assert.Equal(t, []int{0}, capIndices([]int{0, 5, 9}, 1))
	assert.Equal(t, []int{0, 1}, capIndices([]int{0, 1}, 2))
	assert.Equal(t, []int{0, 5, 9}, capIndices([]int{0, 5, 9}, 0))
}

func TestPageCount(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []int{1, 4} {
		count, err := PageCount(writeTestPDF(t, dir, n))
		require.NoError(t, err)
		assert.Equal(t, n, count)
	}

	bad := filepath.Join(dir, "bad.pdf")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not a pdf"), 0o644))
	_, err := PageCount(bad)
	assert.Error(t, err)
}

func TestProcessSelectsFirstMiddleLast(t *testing.T) {
	runner := &stubRunner{}
	p := newTestProcessor(runner, 10, 3)
	assert.True(t, p.CanProcess(models.KindPDF))

	images, err := p.Process(context.Background(), "report.pdf")
	require.NoError(t, err)
	require.Len(t, images, 3)
	assert.Equal(t, []string{"1", "6", "10"}, runner.pages)

	dpi, ok := docimage.ReadPNGDensity(images[0])
	require.True(t, ok)
	assert.Equal(t, 150, dpi)
}

func TestProcessReadsRealPageCount(t *testing.T) {
	runner := &stubRunner{}
	p := NewProcessor(logger.NewTestLogger(), docimage.NewNormalizer(500, 150), Options{Runner: runner})

	images, err := p.Process(context.Background(), writeTestPDF(t, t.TempDir(), 2))
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Equal(t, []string{"1", "2"}, runner.pages)
}

func TestProcessSkipsFailedPages(t *testing.T) {
	runner := &stubRunner{failPages: map[string]bool{"6": true}}
	log := logger.NewTestLogger()
	p := newTestProcessor(runner, 10, 3)
	p.logger = log

	images, err := p.Process(context.Background(), "report.pdf")
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Contains(t, log.Messages("WARN"), "Failed to extract page")
}

func TestProcessFailsWhenNoPageSurvives(t *testing.T) {
	runner := &stubRunner{failPages: map[string]bool{"1": true, "6": true, "10": true}}
	p := newTestProcessor(runner, 10, 3)

	_, err := p.Process(context.Background(), "report.pdf")
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)

	var failure *common.ExtractionFailure
	require.True(t, errors.As(err, &failure))
	assert.Equal(t, []int{0, 5, 9}, failure.Pages)
	assert.Contains(t, failure.Error(), "broken page")
}

func TestProcessHonorsPageCap(t *testing.T) {
	runner := &stubRunner{}
	p := newTestProcessor(runner, 10, 2)

	images, err := p.Process(context.Background(), "report.pdf")
	require.NoError(t, err)
	assert.Len(t, images, 2)
	assert.Equal(t, []string{"1", "10"}, runner.pages)
}

func TestProcessPageCountFailure(t *testing.T) {
	p := newTestProcessor(&stubRunner{}, 0, 3)
	p.countPages = func(string) (int, error) { return 0, errors.New("xref damaged") }

	_, err := p.Process(context.Background(), "report.pdf")
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
	assert.ErrorContains(t, err, "xref damaged")
}

func TestProcessStopsOnCancelledContext(t *testing.T) {
	runner := &stubRunner{}
	p := newTestProcessor(runner, 10, 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Process(ctx, "report.pdf")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runner.pages)
}
