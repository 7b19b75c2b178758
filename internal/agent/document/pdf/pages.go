package pdf

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// SelectPageIndices picks the zero-based pages sent to the model: every
// page for short documents, otherwise first, middle and last.
func SelectPageIndices(total int) []int {
	switch {
	case total <= 0:
		return nil
	case total <= 3:
		indices := make([]int, total)
		for i := range indices {
			indices[i] = i
		}
		return indices
	default:
		return []int{0, total / 2, total - 1}
	}
}

// capIndices keeps at most limit indices. The first page always survives
// and the last one does whenever limit allows two. limit <= 0 means no cap.
func capIndices(indices []int, limit int) []int {
	if limit <= 0 || len(indices) <= limit {
		return indices
	}
	if limit == 1 {
		return indices[:1]
	}
	out := make([]int, 0, limit)
	out = append(out, indices[:limit-1]...)
	return append(out, indices[len(indices)-1])
}

// PageCount reads the page tree with ledongthuc/pdf and falls back to
// pdfcpu's relaxed parser for files the former rejects.
func PageCount(path string) (int, error) {
	n, err := countWithReader(path)
	if err == nil && n > 0 {
		return n, nil
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	f, ferr := os.Open(path)
	if ferr != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", ferr)
	}
	defer f.Close()

	count, perr := api.PageCount(f, conf)
	if perr != nil {
		if err == nil {
			err = fmt.Errorf("page tree reports no pages")
		}
		return 0, fmt.Errorf("failed to count pages: %v; fallback: %w", err, perr)
	}
	return count, nil
}

func countWithReader(path string) (n int, err error) {
	// ledongthuc/pdf panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			n, err = 0, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open pdf: %w", err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	r, err := pdf.NewReader(f, st.Size())
	if err != nil {
		return 0, err
	}
	return r.NumPage(), nil
}
