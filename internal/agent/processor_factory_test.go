package agent

import (
	"context"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type failingRunner struct{}

func (failingRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	return nil, []byte("pdftoppm: not installed"), os.ErrNotExist
}

func newTestFactory(t *testing.T) *ProcessorFactory {
	t.Helper()
	f, err := NewProcessorFactory(logger.NewTestLogger(), ProcessOptions{
		DPI:          300,
		MaxDimension: 1000,
		MaxPages:     3,
		Runner:       failingRunner{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestProcessDocumentMissingFile(t *testing.T) {
	f := newTestFactory(t)

	for _, name := range []string{"missing.pdf", "missing.txt"} {
		_, err := f.ProcessDocument(context.Background(), filepath.Join(t.TempDir(), name))
		assert.ErrorIs(t, err, common.ErrNotFound, name)
	}

	_, err := f.ProcessDocument(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestProcessDocumentUnsupported(t *testing.T) {
	f := newTestFactory(t)
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	_, err := f.ProcessDocument(context.Background(), path)
	require.ErrorIs(t, err, common.ErrUnsupportedFormat)
	assert.ErrorContains(t, err, ".txt")
}

func TestProcessDocumentImage(t *testing.T) {
	f := newTestFactory(t)
	path := filepath.Join(t.TempDir(), "Receipt.PNG")
	require.NoError(t, imaging.Save(imaging.New(4000, 3000, color.White), filepath.Join(filepath.Dir(path), "receipt.png")))
	require.NoError(t, os.Rename(filepath.Join(filepath.Dir(path), "receipt.png"), path))

	images, err := f.ProcessDocument(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, images, 1)
}

func TestProcessDocumentPDFExtractionFailure(t *testing.T) {
	f := newTestFactory(t)
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 truncated"), 0o644))

	_, err := f.ProcessDocument(context.Background(), path)
	assert.ErrorIs(t, err, common.ErrExtractionFailed)
}

func TestProcessDocumentCorruptImage(t *testing.T) {
	f := newTestFactory(t)
	path := filepath.Join(t.TempDir(), "broken.png")
	require.NoError(t, os.WriteFile(path, []byte("not an image at all"), 0o644))

	_, err := f.ProcessDocument(context.Background(), path)
	require.ErrorIs(t, err, common.ErrExtractionFailed)

	var failure *common.ExtractionFailure
	require.ErrorAs(t, err, &failure)
	assert.Equal(t, path, failure.Path)
	assert.Equal(t, []int{0}, failure.Pages)
}

func TestNewProcessorFactoryValidatesOptions(t *testing.T) {
	_, err := NewProcessorFactory(logger.NewTestLogger(), ProcessOptions{DPI: 0, MaxDimension: 100})
	assert.Error(t, err)
}
