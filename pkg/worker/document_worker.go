package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/agent/provider"
	"github.com/feichai0017/docfiler/internal/common"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/queue"
)

// TaskHandler runs one queued analysis. *document.DocumentService
// satisfies it.
type TaskHandler interface {
	HandleDocument(ctx context.Context, task *queue.Task) error
}

type DocumentWorker struct {
	BaseWorker
	handler TaskHandler
}

// ConfigFromQueue derives the worker settings from the queue configuration.
func ConfigFromQueue(qc *config.QueueConfig) *Config {
	return &Config{
		RedisAddr:   qc.RedisAddr,
		RedisDB:     qc.RedisDB,
		Concurrency: qc.Concurrency,
		Queues:      DefaultQueues(),
	}
}

func NewDocumentWorker(cfg *Config, retryDelay time.Duration, handler TaskHandler, log logger.Logger) (*DocumentWorker, error) {
	if handler == nil {
		return nil, fmt.Errorf("task handler is required")
	}
	if cfg.Queues == nil {
		cfg.Queues = DefaultQueues()
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, DB: cfg.RedisDB},
		asynq.Config{
			Concurrency: cfg.Concurrency,
			Queues:      cfg.Queues,
			RetryDelayFunc: func(n int, err error, task *asynq.Task) time.Duration {
				return time.Duration(n) * retryDelay
			},
		},
	)

	w := &DocumentWorker{
		BaseWorker: BaseWorker{
			server: server,
			mux:    asynq.NewServeMux(),
			logger: log.Named("worker"),
		},
		handler: handler,
	}

	w.registerHandlers()
	return w, nil
}

func (w *DocumentWorker) registerHandlers() {
	w.mux.HandleFunc(queue.TaskTypeDocumentAnalyze, w.handleDocumentAnalyze)
}

func (w *DocumentWorker) handleDocumentAnalyze(ctx context.Context, t *asynq.Task) error {
	var task queue.Task
	if err := json.Unmarshal(t.Payload(), &task); err != nil {
		w.logger.Error("Failed to unmarshal task",
			logger.Error(err),
			logger.String("payload", string(t.Payload())),
		)
		return fmt.Errorf("failed to unmarshal task: %v: %w", err, asynq.SkipRetry)
	}

	if task.ID == "" || task.Metadata == nil || task.Payload == nil {
		w.logger.Error("Invalid task data",
			logger.String("taskId", task.ID),
			logger.Any("metadata", task.Metadata),
		)
		return fmt.Errorf("invalid task data: missing required fields: %w", asynq.SkipRetry)
	}

	w.logger.Info("Processing analyze task",
		logger.String("taskId", task.ID),
		logger.String("filename", task.Metadata["filename"]),
	)

	w.writeResult(t, map[string]any{"status": "running"})

	if err := w.handler.HandleDocument(ctx, &task); err != nil {
		w.writeResult(t, map[string]any{"status": "failed", "error": err.Error()})
		if isPermanent(err) {
			w.logger.Warn("Analyze task failed permanently",
				logger.String("taskId", task.ID),
				logger.Error(err),
			)
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	w.writeResult(t, map[string]any{"status": "completed"})
	return nil
}

// writeResult records progress on the asynq task. Tasks built outside a
// server have no writer.
func (w *DocumentWorker) writeResult(t *asynq.Task, v map[string]any) {
	rw := t.ResultWriter()
	if rw == nil {
		return
	}
	data, _ := json.Marshal(v)
	if _, err := rw.Write(data); err != nil {
		w.logger.Error("Failed to write task result", logger.Error(err))
	}
}

// isPermanent reports errors a retry cannot fix.
func isPermanent(err error) bool {
	switch {
	case errors.Is(err, common.ErrNotFound),
		errors.Is(err, common.ErrUnsupportedFormat),
		errors.Is(err, common.ErrExtractionFailed),
		errors.Is(err, common.ErrMissingCredential):
		return true
	}

	var apiErr *provider.APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 &&
			apiErr.StatusCode != http.StatusTooManyRequests &&
			apiErr.StatusCode != http.StatusRequestTimeout
	}
	return false
}

// Start runs the server in the background until ctx is cancelled.
func (w *DocumentWorker) Start(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("failed to start worker: %w", err)
	}
	w.logger.Info("Worker started")

	go func() {
		<-ctx.Done()
		w.Stop()
	}()
	return nil
}
