package export

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/batch"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func sampleResults() []batch.Result {
	return []batch.Result{
		{
			Path: "/inbox/scan1.pdf",
			Suggestion: &models.FilingSuggestion{
				Filename: "20240115 Acme Invoice.pdf", Destination: "Finances/Bills",
				Confidence: 0.92, Reasoning: "Utility invoice",
			},
			Duration: 1200 * time.Millisecond,
		},
		{Path: "/inbox/broken.pdf", Err: errors.New("no images generated")},
	}
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewXLSXWriter(logger.NewTestLogger()).Write(&buf, sampleResults()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(SheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, Headers, rows[0])

	assert.Equal(t, "scan1.pdf", rows[1][0])
	assert.Equal(t, "20240115 Acme Invoice.pdf", rows[1][1])
	assert.Equal(t, "Finances/Bills/20240115 Acme Invoice.pdf", rows[1][3])
	assert.Equal(t, "0.92", rows[1][4])
	assert.Equal(t, "1200", rows[1][7])

	assert.Equal(t, "broken.pdf", rows[2][0])
	assert.Equal(t, "", rows[2][1])
	assert.Equal(t, "no images generated", rows[2][6])
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, NewXLSXWriter(logger.NewTestLogger()).WriteFile(path, sampleResults()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(SheetName, "C2")
	require.NoError(t, err)
	assert.Equal(t, "Finances/Bills", v)
}
