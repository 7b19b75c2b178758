package document

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/internal/utils/validator"
	"github.com/feichai0017/docfiler/pkg/converters"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
	"github.com/feichai0017/docfiler/pkg/storage"
)

type DocumentService struct {
	analyzer  Analyzer
	queue     queue.Queue
	storage   storage.Storage
	validator *validator.DocumentValidator
	converter *converters.JSONConverter
	logger    logger.Logger
	config    *ServiceConfig
}

type ServiceConfig struct {
	QueuePriority   int
	MaxConcurrent   int
	RetentionPeriod time.Duration
}

func DefaultServiceConfig() *ServiceConfig {
	return &ServiceConfig{
		QueuePriority:   2,
		MaxConcurrent:   5,
		RetentionPeriod: 24 * time.Hour,
	}
}

func NewService(
	analyzer Analyzer,
	q queue.Queue,
	store storage.Storage,
	v *validator.DocumentValidator,
	log logger.Logger,
	cfg *ServiceConfig,
) *DocumentService {
	if cfg == nil {
		cfg = DefaultServiceConfig()
	}
	if v == nil {
		v = validator.NewDocumentValidator(log, nil)
	}

	return &DocumentService{
		analyzer:  analyzer,
		queue:     q,
		storage:   store,
		validator: v,
		converter: converters.NewJSONConverter(),
		logger:    log.Named("document"),
		config:    cfg,
	}
}

// GetService builds the service from the environment. The returned closer
// releases the queue connection and the analyzer.
func GetService(ctx context.Context, log logger.Logger) (*DocumentService, func() error, error) {
	cfg, err := config.GetDocfilerConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := storage.NewStorage(ctx, config.GetStorageConfig(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	q, err := queue.GetQueue(log)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize queue: %w", err)
	}

	analyzer, err := suggest.NewFromConfig(ctx, cfg, store, "transcripts", log)
	if err != nil {
		q.Close()
		return nil, nil, err
	}

	closer := func() error {
		return errors.Join(analyzer.Close(), q.Close())
	}
	return NewService(analyzer, q, store, nil, log, nil), closer, nil
}

func uploadKey(taskID, filename string) string {
	return path.Join("uploads", taskID, filepath.Base(filename))
}

func resultKey(taskID string) string {
	return path.Join("results", taskID+".json")
}

// ProcessFile validates and stores one upload, then queues its analysis.
func (s *DocumentService) ProcessFile(
	ctx context.Context,
	file multipart.File,
	header *multipart.FileHeader,
) (*models.ProcessingTask, error) {
	s.logger.Info("Starting file processing",
		logger.String("filename", header.Filename),
		logger.Int64("size", header.Size),
	)

	if err := s.validateFile(file, header); err != nil {
		s.logger.Error("File validation failed",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, err
	}

	taskID := uuid.New().String()
	now := time.Now()
	task := &models.ProcessingTask{
		ID:        taskID,
		Status:    models.StatusPending,
		Type:      queue.TaskTypeDocumentAnalyze,
		Priority:  s.config.QueuePriority,
		CreatedAt: now,
		UpdatedAt: now,
		Metadata: map[string]string{
			"filename": header.Filename,
			"size":     strconv.FormatInt(header.Size, 10),
			"type":     filepath.Ext(header.Filename),
		},
	}

	fileKey, err := s.storage.Store(ctx, file, uploadKey(taskID, header.Filename))
	if err != nil {
		s.logger.Error("Failed to store file",
			logger.String("filename", header.Filename),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to store file: %w", err)
	}
	task.Metadata["fileKey"] = fileKey

	queueTask := &queue.Task{
		ID:       taskID,
		Type:     task.Type,
		Priority: task.Priority,
		Payload: map[string]interface{}{
			"fileKey":  fileKey,
			"filename": header.Filename,
		},
		Metadata:  task.Metadata,
		CreatedAt: task.CreatedAt,
	}

	if err := s.queue.Enqueue(ctx, queueTask); err != nil {
		s.logger.Error("Failed to enqueue task",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	if err := s.queue.SaveFinalStatus(ctx, &queue.TaskStatus{
		TaskID:    taskID,
		Status:    string(models.StatusPending),
		StartedAt: now,
	}); err != nil {
		s.logger.Error("Failed to save initial status",
			logger.String("taskId", taskID),
			logger.Error(err),
		)
	}

	s.logger.Info("Analysis task created",
		logger.String("taskId", taskID),
		logger.String("filename", header.Filename),
	)
	return task, nil
}

// ProcessBatch queues every upload. Tasks created before a failure are
// returned along with the error.
func (s *DocumentService) ProcessBatch(ctx context.Context, files []*multipart.FileHeader) ([]*models.ProcessingTask, error) {
	tasks := make([]*models.ProcessingTask, len(files))

	g, ctx := errgroup.WithContext(ctx)
	if s.config.MaxConcurrent > 0 {
		g.SetLimit(s.config.MaxConcurrent)
	}

	for i, header := range files {
		g.Go(func() error {
			file, err := header.Open()
			if err != nil {
				return fmt.Errorf("failed to open file %s: %w", header.Filename, err)
			}
			defer file.Close()

			task, err := s.ProcessFile(ctx, file, header)
			if err != nil {
				return fmt.Errorf("failed to process file %s: %w", header.Filename, err)
			}
			tasks[i] = task
			return nil
		})
	}

	err := g.Wait()
	created := tasks[:0]
	for _, t := range tasks {
		if t != nil {
			created = append(created, t)
		}
	}
	return created, err
}

// HandleDocument runs one queued analysis. The returned error wraps the
// pipeline error so callers can classify it.
func (s *DocumentService) HandleDocument(ctx context.Context, task *queue.Task) error {
	if task == nil || task.Payload == nil || task.Metadata == nil {
		return fmt.Errorf("invalid task: missing required data")
	}
	fileKey, _ := task.Payload["fileKey"].(string)
	filename := task.Metadata["filename"]
	if fileKey == "" || filename == "" {
		return fmt.Errorf("invalid task %s: missing file reference", task.ID)
	}

	log := logger.NewContextLogger(s.logger).FromContext(logger.WithTaskID(ctx, task.ID))
	log.Info("Processing document", logger.String("filename", filename))

	startedAt := time.Now()
	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:    task.ID,
		Status:    string(models.StatusRunning),
		Progress:  0.1,
		StartedAt: startedAt,
	})

	result, err := s.analyze(ctx, task.ID, fileKey, filename)
	if err != nil {
		log.Error("Document analysis failed", logger.Error(err))
		s.saveStatus(ctx, &queue.TaskStatus{
			TaskID:     task.ID,
			Status:     string(models.StatusFailed),
			Error:      err.Error(),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		})
		return err
	}

	if size, err := strconv.ParseInt(task.Metadata["size"], 10, 64); err == nil {
		result.Metadata.FileSize = size
	}

	var buf bytes.Buffer
	if err := s.converter.Encode(&buf, result); err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	if _, err := s.storage.Store(ctx, &buf, resultKey(task.ID)); err != nil {
		return fmt.Errorf("failed to store result: %w", err)
	}

	s.saveStatus(ctx, &queue.TaskStatus{
		TaskID:     task.ID,
		Status:     string(models.StatusCompleted),
		Progress:   1.0,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
	})

	log.Info("Document analysis completed",
		logger.String("suggestion", result.Target),
		logger.Float64("confidence", result.Suggestion.Confidence),
	)
	return nil
}

// analyze copies the upload to a temp file that keeps the original name,
// since the pipeline dispatches on the extension.
func (s *DocumentService) analyze(ctx context.Context, taskID, fileKey, filename string) (*converters.AnalysisResult, error) {
	reader, err := s.storage.Get(ctx, fileKey)
	if err != nil {
		return nil, common.WrapError(err, "failed to get file")
	}
	defer reader.Close()

	dir, err := os.MkdirTemp("", "docfiler-task-")
	if err != nil {
		return nil, common.WrapError(err, "failed to create temp dir")
	}
	defer os.RemoveAll(dir)

	local := filepath.Join(dir, filepath.Base(filename))
	f, err := os.Create(local)
	if err != nil {
		return nil, common.WrapError(err, "failed to create temp file")
	}
	_, err = io.Copy(f, reader)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, common.WrapError(err, "failed to download file")
	}

	analysis, err := s.analyzer.Analyze(ctx, local)
	if err != nil {
		return nil, common.WrapError(err, "failed to analyze document")
	}

	return s.converter.Convert(taskID, analysis, converters.DocumentMetadata{
		FileName: filepath.Base(filename),
		FileType: filepath.Ext(filename),
	})
}

func (s *DocumentService) saveStatus(ctx context.Context, status *queue.TaskStatus) {
	if err := s.queue.SaveFinalStatus(ctx, status); err != nil {
		s.logger.Error("Failed to save task status",
			logger.String("taskId", status.TaskID),
			logger.String("status", status.Status),
			logger.Error(err),
		)
	}
}

func (s *DocumentService) GetProcessingStatus(ctx context.Context, taskID string) (*models.ProcessingTask, error) {
	status, err := s.queue.GetTaskStatus(ctx, taskID)
	if err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			return nil, fmt.Errorf("%w: task %s", common.ErrNotFound, taskID)
		}
		return nil, fmt.Errorf("failed to get task status: %w", err)
	}

	var taskStatus models.ProcessingStatus
	switch status.Status {
	case "active", "running":
		taskStatus = models.StatusRunning
	case "completed":
		taskStatus = models.StatusCompleted
	case "failed":
		taskStatus = models.StatusFailed
	case "cancelled":
		taskStatus = models.StatusCancelled
	default:
		taskStatus = models.StatusPending
	}

	return &models.ProcessingTask{
		ID:        status.TaskID,
		Status:    taskStatus,
		Type:      queue.TaskTypeDocumentAnalyze,
		Progress:  status.Progress,
		Error:     status.Error,
		Metadata:  make(map[string]string),
		CreatedAt: status.StartedAt,
		UpdatedAt: status.FinishedAt,
	}, nil
}

// GetAnalysisResult returns the stored result of a completed task.
func (s *DocumentService) GetAnalysisResult(ctx context.Context, taskID string) (*converters.AnalysisResult, error) {
	status, err := s.GetProcessingStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if status.Status != models.StatusCompleted {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotReady, status.Status)
	}

	reader, err := s.storage.Get(ctx, resultKey(taskID))
	if err != nil {
		return nil, fmt.Errorf("failed to get result: %w", err)
	}
	defer reader.Close()

	return s.converter.Decode(reader)
}

func (s *DocumentService) CancelTask(ctx context.Context, taskID string) error {
	if err := s.queue.CancelTask(ctx, taskID); err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	s.logger.Info("Task cancelled", logger.String("taskId", taskID))
	return nil
}

// CleanupTasks removes uploads, results and transcripts older than the
// retention period.
func (s *DocumentService) CleanupTasks(ctx context.Context) error {
	threshold := time.Now().Add(-s.config.RetentionPeriod)

	if err := s.storage.CleanupBefore(ctx, threshold); err != nil {
		return fmt.Errorf("failed to cleanup storage: %w", err)
	}

	s.logger.Info("Completed tasks cleanup", logger.Time("threshold", threshold))
	return nil
}

// validateFile rewinds file for the caller.
func (s *DocumentService) validateFile(file multipart.File, header *multipart.FileHeader) error {
	result, err := s.validator.Validate(header.Filename, header.Size, file)
	if err != nil {
		return fmt.Errorf("failed to validate file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind file: %w", err)
	}
	if result.IsValid {
		return nil
	}

	for _, e := range result.Errors {
		if e.Code == "INVALID_FILE_TYPE" {
			return &common.UnsupportedFormatError{Path: header.Filename, Extension: result.FileInfo.Extension}
		}
	}
	return &InvalidUploadError{Result: result}
}

var _ DocumentProcessor = (*DocumentService)(nil)
