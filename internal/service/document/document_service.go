package document

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/internal/utils/validator"
	"github.com/feichai0017/docfiler/pkg/converters"
	"github.com/feichai0017/docfiler/pkg/queue"
)

// ErrTaskNotReady is returned for results of tasks that have not completed.
var ErrTaskNotReady = errors.New("task is not completed")

// DocumentProcessor is the asynchronous analysis surface used by the HTTP
// API and the worker.
type DocumentProcessor interface {
	ProcessFile(ctx context.Context, file multipart.File, header *multipart.FileHeader) (*models.ProcessingTask, error)
	ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error)
	GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error)
	HandleDocument(ctx context.Context, task *queue.Task) error
	GetAnalysisResult(ctx context.Context, taskID string) (*converters.AnalysisResult, error)
	CancelTask(ctx context.Context, taskID string) error
	CleanupTasks(ctx context.Context) error
}

// Analyzer runs the suggestion pipeline on a local file.
// *suggest.Service satisfies it.
type Analyzer interface {
	Analyze(ctx context.Context, path string) (*suggest.Analysis, error)
}

// InvalidUploadError carries the validator findings for a rejected upload.
type InvalidUploadError struct {
	Result *validator.ValidationResult
}

func (e *InvalidUploadError) Error() string {
	return fmt.Sprintf("invalid upload %s: %s", e.Result.FileInfo.Filename, e.Result.FirstError())
}
