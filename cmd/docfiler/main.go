package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/export"
	"github.com/feichai0017/docfiler/internal/models"
	"github.com/feichai0017/docfiler/internal/service/batch"
	"github.com/feichai0017/docfiler/internal/service/filing"
	"github.com/feichai0017/docfiler/internal/service/suggest"
	"github.com/feichai0017/docfiler/pkg/logger"
	"github.com/feichai0017/docfiler/pkg/storage/local"
	"github.com/feichai0017/docfiler/pkg/watcher"
)

// settle lets scanners finish writing before a file is analyzed.
const settle = 2 * time.Second

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

type options struct {
	workers  int
	xlsx     string
	commit   string
	destBase string
}

func main() {
	var (
		dir      = flag.String("dir", "", "folder of documents to analyze (default SOURCE_DIR)")
		workers  = flag.Int("workers", 2, "documents analyzed concurrently")
		xlsx     = flag.String("xlsx", "", "write an XLSX report to this path")
		commit   = flag.String("commit", "", "apply suggestions: rename or move")
		destBase = flag.String("dest-base", "", "base folder for -commit move (default DEFAULT_DEST_BASE)")
		watch    = flag.Bool("watch", false, "keep watching -dir for new documents")
		envFile  = flag.String("env", "", "path to a .env file")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Usage = func() {
		printError("Usage: docfiler [flags] [files...]\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *commit != "" {
		if _, err := filing.ParseMode(*commit); err != nil {
			printError("Error: %v\n", err)
			os.Exit(2)
		}
	}

	cfg, err := config.Load(*envFile)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.LogLevel
	if *verbose {
		level = "DEBUG"
	}
	log, err := logger.NewLogger(
		logger.WithLevel(level),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr", filepath.Join(cfg.TranscriptDir, "docfiler.log")}),
	)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	transcripts, err := local.NewLocalStorage(cfg.TranscriptDir, log)
	if err != nil {
		log.Fatal("Failed to open transcript folder", logger.Error(err))
	}
	svc, err := suggest.NewFromConfig(ctx, cfg, transcripts, "", log)
	if err != nil {
		log.Fatal("Failed to initialize analyzer", logger.Error(err))
	}
	defer svc.Close()

	if *dir == "" && flag.NArg() == 0 {
		*dir = cfg.SourceDir
	}
	if *destBase == "" {
		*destBase = cfg.DefaultDestBase
	}
	opts := options{workers: *workers, xlsx: *xlsx, commit: *commit, destBase: *destBase}
	runner := batch.NewRunner(svc, opts.workers, log)
	filer := filing.NewFiler(opts.destBase, log)

	paths := flag.Args()
	if len(paths) == 0 {
		if *dir == "" {
			flag.Usage()
			os.Exit(2)
		}
		if paths, err = batch.ScanFolder(*dir); err != nil {
			log.Fatal("Failed to scan folder", logger.Error(err))
		}
	}

	failed := process(ctx, runner, filer, paths, opts, log)

	if *watch {
		if *dir == "" {
			printError("Error: -watch needs -dir or SOURCE_DIR\n")
			os.Exit(2)
		}
		if err := watchInbox(ctx, *dir, runner, filer, opts, log); err != nil {
			log.Fatal("Watcher failed", logger.Error(err))
		}
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// process analyzes paths, prints one line per document and applies the
// optional export and commit. It returns the number of failed documents.
func process(ctx context.Context, runner *batch.Runner, filer *filing.Filer, paths []string, opts options, log logger.Logger) int {
	if len(paths) == 0 {
		log.Info("No documents to analyze")
		return 0
	}

	results := runner.Run(ctx, paths, func(done, total int, r batch.Result) {
		if r.Err != nil {
			fmt.Printf("[%d/%d] %s: error: %v\n", done, total, r.Path, r.Err)
			return
		}
		fmt.Printf("[%d/%d] %s -> %s (%.2f)\n", done, total, r.Path, r.Suggestion.String(), r.Suggestion.Confidence)
	})

	failed := 0
	commits := make(map[string]models.FilingSuggestion)
	for _, r := range results {
		if r.Err != nil {
			failed++
			continue
		}
		commits[r.Path] = *r.Suggestion
	}

	if opts.xlsx != "" {
		if err := export.NewXLSXWriter(log).WriteFile(opts.xlsx, results); err != nil {
			log.Error("Failed to write report", logger.Error(err))
		}
	}

	if opts.commit != "" && len(commits) > 0 {
		mode, _ := filing.ParseMode(opts.commit)
		for _, o := range filer.CommitAll(commits, mode, opts.destBase) {
			switch o.Status {
			case filing.StatusFailed:
				failed++
				fmt.Printf("%s: not filed: %v\n", o.Source, o.Err)
			case filing.StatusSkipped:
				fmt.Printf("%s: skipped (no destination)\n", o.Source)
			default:
				fmt.Printf("%s: %s to %s\n", o.Source, o.Status, o.Target)
			}
		}
	}
	return failed
}

func watchInbox(ctx context.Context, dir string, runner *batch.Runner, filer *filing.Filer, opts options, log logger.Logger) error {
	w, err := watcher.New(watcher.Config{Dir: dir, Settle: settle}, log)
	if err != nil {
		return err
	}
	// Reports cover a whole run, not single arrivals.
	opts.xlsx = ""
	for path := range w.Run(ctx) {
		process(ctx, runner, filer, []string{path}, opts, log)
	}
	return nil
}
