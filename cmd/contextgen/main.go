package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/feichai0017/docfiler/config"
	"github.com/feichai0017/docfiler/internal/agent/contextgen"
	"github.com/feichai0017/docfiler/pkg/logger"
)

func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		output   = flag.String("o", "", "output file path (default: print to stdout)")
		verbose  = flag.Bool("v", false, "enable verbose logging")
		maxDepth = flag.Int("depth", 4, "maximum folder depth to scan")
		maxFiles = flag.Int("max-files", 5, "example filenames shown per folder")
		envFile  = flag.String("env", "", "path to a .env file")
	)
	flag.Usage = func() {
		printError("Usage: contextgen [flags] PATH\n\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	root := flag.Arg(0)

	level := "info"
	if *verbose {
		level = "debug"
	}
	log, err := logger.NewLogger(
		logger.WithLevel(level),
		logger.WithEncoding("console"),
		logger.WithOutputPaths([]string{"stderr"}),
		logger.WithErrorPaths([]string{"stderr"}),
	)
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(*envFile)
	if err != nil {
		log.Fatal("Failed to load configuration", logger.Error(err))
	}

	ctx := context.Background()
	model, err := contextgen.NewModel(ctx, cfg)
	if err != nil {
		log.Fatal("Failed to create model", logger.Error(err))
	}

	gen := contextgen.NewGenerator(model, contextgen.Options{
		MaxDepth:       *maxDepth,
		MaxFilesPerDir: *maxFiles,
	}, log)

	text, err := gen.Generate(ctx, root)
	if err != nil {
		log.Fatal("Error generating context", logger.Error(err))
	}

	if *output != "" {
		if err := os.WriteFile(*output, []byte(text), 0o644); err != nil {
			log.Fatal("Failed to write context", logger.Error(err))
		}
		log.Info("Context saved", logger.String("path", *output))
		return
	}

	bar := strings.Repeat("=", 50)
	fmt.Printf("\n%s\nGenerated Context:\n%s\n%s\n", bar, bar, text)
}
