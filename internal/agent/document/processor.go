package document

import (
	"context"

	"github.com/feichai0017/docfiler/internal/models"
)

// Processor turns one source document into normalized PNG page images.
type Processor interface {
	// CanProcess reports whether the processor handles documents of kind.
	CanProcess(kind models.DocumentKind) bool

	// Process returns at least one PNG, or an error.
	Process(ctx context.Context, path string) ([][]byte, error)

	// Close releases resources.
	Close() error
}
