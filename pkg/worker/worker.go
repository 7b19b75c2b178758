package worker

import (
	"context"
	"sync"

	"github.com/hibiken/asynq"

	"github.com/feichai0017/docfiler/pkg/logger"
)

type Worker interface {
	Start(ctx context.Context) error
	Stop() error
}

type Config struct {
	RedisAddr   string
	RedisDB     int
	Concurrency int
	// Queues maps queue names to priority weights.
	Queues map[string]int
}

// DefaultQueues weights the queues written by the analyze producer.
func DefaultQueues() map[string]int {
	return map[string]int{"critical": 6, "default": 3, "low": 1}
}

type BaseWorker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	logger   logger.Logger
	stopOnce sync.Once
}

// Stop drains in-flight handlers. It is safe to call more than once.
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		w.server.Shutdown()
	})
	return nil
}
