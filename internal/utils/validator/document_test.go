package validator

import (
	"bytes"
	"mime/multipart"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/docfiler/internal/testutil"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func validate(t *testing.T, v *DocumentValidator, name string, data []byte) *ValidationResult {
	t.Helper()
	res, err := v.Validate(name, int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)
	return res
}

func codes(res *ValidationResult) []string {
	var out []string
	for _, e := range res.Errors {
		out = append(out, e.Code)
	}
	return out
}

func TestValidatePDF(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	res := validate(t, v, "scan.PDF", testutil.PDFBytes(4))
	assert.True(t, res.IsValid, codes(res))
	assert.Equal(t, ".pdf", res.FileInfo.Extension)
	assert.Equal(t, "application/pdf", res.FileInfo.MimeType)
	assert.Equal(t, 4, res.FileInfo.Metadata["pageCount"])
	assert.Len(t, res.FileInfo.Hash, 64)
}

func TestValidatePageLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPageCount = 2
	v := NewDocumentValidator(logger.NewTestLogger(), cfg)

	res := validate(t, v, "long.pdf", testutil.PDFBytes(3))
	assert.False(t, res.IsValid)
	assert.Equal(t, []string{"TOO_MANY_PAGES"}, codes(res))
}

func TestValidateImage(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	res := validate(t, v, "photo.png", testutil.PNGBytes(t, 400, 300))
	assert.True(t, res.IsValid, codes(res))
	assert.Equal(t, 400, res.FileInfo.Metadata["width"])
	assert.Equal(t, "png", res.FileInfo.Metadata["format"])

	res = validate(t, v, "tiny.png", testutil.PNGBytes(t, 20, 300))
	assert.Equal(t, []string{"IMAGE_TOO_SMALL"}, codes(res))
}

func TestValidateRejections(t *testing.T) {
	v := NewDocumentValidator(logger.NewTestLogger(), nil)

	res := validate(t, v, "notes.txt", []byte("hello"))
	assert.Equal(t, []string{"INVALID_FILE_TYPE"}, codes(res))

	res = validate(t, v, "fake.png", testutil.PDFBytes(1))
	assert.Equal(t, []string{"INVALID_MIME_TYPE"}, codes(res))
	assert.Contains(t, res.FirstError(), "application/pdf")

	res = validate(t, v, "empty.pdf", nil)
	assert.Contains(t, codes(res), "EMPTY_FILE")

	cfg := DefaultConfig()
	cfg.MaxFileSize = 10
	res = validate(t, NewDocumentValidator(logger.NewTestLogger(), cfg), "big.pdf", testutil.PDFBytes(1))
	assert.Equal(t, []string{"FILE_TOO_LARGE"}, codes(res))
}

func TestDetectTIFF(t *testing.T) {
	mime, err := detectMimeType(bytes.NewReader([]byte("II*\x00rest of header")))
	require.NoError(t, err)
	assert.Equal(t, "image/tiff", mime)

	mime, err = detectMimeType(bytes.NewReader([]byte("BM\x00\x00")))
	require.NoError(t, err)
	assert.Equal(t, "image/bmp", mime)
}

func TestValidateFilesMultipart(t *testing.T) {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for name, data := range map[string][]byte{
		"a.pdf": testutil.PDFBytes(1),
		"b.png": testutil.PNGBytes(t, 200, 200),
	} {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&body, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	defer form.RemoveAll()

	files := form.File["files"]
	require.Len(t, files, 2)

	v := NewDocumentValidator(logger.NewTestLogger(), nil)
	results, err := v.ValidateFiles(files)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for i, res := range results {
		assert.Equal(t, files[i].Filename, res.FileInfo.Filename)
		assert.True(t, res.IsValid, codes(res))
	}
}
