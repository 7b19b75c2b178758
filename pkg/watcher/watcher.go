// Package watcher reports documents that land in an inbox folder.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/pkg/logger"
)

type Config struct {
	Dir string
	// Settle is how long a file must go without writes before it is
	// reported. Zero reports on the first event.
	Settle time.Duration
}

type Watcher struct {
	cfg    Config
	fs     *fsnotify.Watcher
	logger logger.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

func New(cfg Config, log logger.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watch directory is required")
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fw.Add(cfg.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", cfg.Dir, err)
	}
	return &Watcher{
		cfg:     cfg,
		fs:      fw,
		logger:  log.Named("watcher"),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Supported reports whether path has a pipeline extension and is not a
// hidden or partial file.
func Supported(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~") {
		return false
	}
	_, ok := models.KindForExtension(filepath.Ext(name))
	return ok
}

// Run emits settled document paths until ctx is done. The channel is
// closed on return.
func (w *Watcher) Run(ctx context.Context) <-chan string {
	out := make(chan string, 64)

	var wg sync.WaitGroup
	emit := func(path string) {
		defer wg.Done()
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		select {
		case out <- path:
			w.logger.Debug("Document ready", logger.String("path", path))
		case <-ctx.Done():
		}
	}

	go func() {
		defer func() {
			w.mu.Lock()
			for p, t := range w.pending {
				if t.Stop() {
					wg.Done()
				}
				delete(w.pending, p)
			}
			w.mu.Unlock()
			wg.Wait()
			w.fs.Close()
			close(out)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.fs.Events:
				if !ok {
					return
				}
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				if !Supported(e.Name) {
					continue
				}
				w.schedule(e.Name, &wg, emit)
			case err, ok := <-w.fs.Errors:
				if !ok {
					return
				}
				w.logger.Error("Watcher error", logger.Error(err))
			}
		}
	}()

	w.logger.Info("Watching inbox", logger.String("dir", w.cfg.Dir))
	return out
}

func (w *Watcher) schedule(path string, wg *sync.WaitGroup, emit func(string)) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[path]; ok {
		if t.Stop() {
			t.Reset(w.cfg.Settle)
			return
		}
	}
	wg.Add(1)
	w.pending[path] = time.AfterFunc(w.cfg.Settle, func() { emit(path) })
}
