package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/feichai0017/docfiler/api/handlers"
	"github.com/feichai0017/docfiler/api/routes"
	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/service/document"
	"github.com/feichai0017/docfiler/internal/service/filing"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func main() {
	cfg, err := config.GetDocfilerConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(
		logger.WithLevel(cfg.LogLevel),
		logger.WithEncoding("json"),
		logger.WithOutputPaths([]string{"stdout", "logs/app.log"}),
	)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	docService, closeService, err := document.GetService(ctx, log)
	if err != nil {
		log.Fatal("Failed to get document service", logger.Error(err))
	}
	defer closeService()

	serverCfg := config.GetServerConfig()
	filer := filing.NewFiler(cfg.DefaultDestBase, log)
	h := handlers.NewHandlers(docService, filer, cfg.SourceDir, string(cfg.Provider), log)

	r := gin.New()
	r.Use(gin.Recovery())
	routes.SetupRoutes(r, h, log)

	srv := &http.Server{
		Addr:    serverCfg.Addr,
		Handler: r,
	}

	go func() {
		log.Info("Server starting", logger.String("addr", serverCfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server error", logger.Error(err))
			stop()
		}
	}()

	go runCleanup(ctx, docService, serverCfg.CleanupInterval, log)

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", logger.Error(err))
		os.Exit(1)
	}
}

func runCleanup(ctx context.Context, svc *document.DocumentService, every time.Duration, log logger.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := svc.CleanupTasks(ctx); err != nil {
				log.Warn("Cleanup failed", logger.Error(err))
			}
		}
	}
}
