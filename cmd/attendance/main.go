package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"attendcalc/internal/cli"
	"attendcalc/internal/config"
	"attendcalc/internal/fetch"
	"attendcalc/internal/infrastructure"
	"attendcalc/internal/mapping"
	"attendcalc/pkg/contracts"
)

func main() {
	os.Exit(run())
}

func run() int {
	file := flag.String("file", "", "timetable file (.xlsx or .csv); skips the download")
	source := flag.String("source", "", "name of the configured source to download")
	module := flag.String("module", "", "module code to report on")
	missed := flag.Int("missed", -1, "number of missed sessions (-1 asks)")
	mappings := flag.String("mappings", "", "mapping file (defaults to the configured path)")
	export := flag.Bool("export", false, "write the module's sessions to a CSV file")
	nonInteractive := flag.Bool("non-interactive", false, "never prompt; fail when an answer is missing")
	version := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *version {
		fmt.Println(contracts.GetFullVersionString())
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}
	if *mappings != "" {
		if abs, err := filepath.Abs(*mappings); err == nil {
			cfg.Paths.MappingFile = abs
		}
	}

	// Terminal output belongs to the report; logs only go to the file.
	cfg.Logging.Output = "file"
	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
		return 1
	}
	defer infrastructure.CloseLogFile()

	paths := cfg.GetPaths()
	if err := paths.EnsureDirectories(); err != nil {
		logger.Error("failed to create directories", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := cli.New(cli.Config{
		In:    os.Stdin,
		Out:   os.Stdout,
		Store: mapping.Load(paths.MappingFile, logger),
		Downloader: fetch.New(cfg.Fetch.Timeout,
			fetch.WithUserAgent(cfg.Fetch.UserAgent),
			fetch.WithLogger(logger)),
		Sources:      cfg.Fetch.AllSources(),
		Paths:        paths,
		Policy:       cfg.Attendance.Policy,
		IgnoreSpaces: cfg.Attendance.MatchIgnoreSpaces,
		Logger:       logger,
	})

	_, err = runner.Run(ctx, cli.Options{
		File:           *file,
		Source:         *source,
		Module:         *module,
		Missed:         *missed,
		Export:         *export,
		NonInteractive: *nonInteractive,
	})
	switch {
	case err == nil:
		return 0
	case errors.Is(err, cli.ErrAborted):
		fmt.Println("\n\nProgram interrupted by user")
		return 0
	case errors.Is(err, cli.ErrNoSchedule), errors.Is(err, cli.ErrNoModules):
		return 1
	default:
		logger.Error("calculation failed", slog.String("error", err.Error()))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
}
