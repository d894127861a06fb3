package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	ossignal "os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"leeready/internal/config"
	"leeready/internal/ingest"
	"leeready/internal/metrics"
	"leeready/internal/pipeline"
	"leeready/internal/util"
)

const (
	exitOK     = 0
	exitFailed = 1
	exitConfig = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("leeready", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to YAML config (optional)")
	inputDir := fs.String("input", "", "directory of tick files (overrides config)")
	outputDir := fs.String("output", "", "directory for charts and audit files (overrides config)")
	workers := fs.Int("workers", 0, "files classified in parallel (overrides config)")
	if err := fs.Parse(args); err != nil {
		return exitConfig
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return exitConfig
	}
	if *inputDir != "" {
		cfg.Input.Dir = *inputDir
	} else if fs.NArg() > 0 {
		cfg.Input.Dir = fs.Arg(0)
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *workers > 0 {
		cfg.Output.Workers = *workers
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return exitConfig
	}

	log := util.NewLoggerTo(stdout, cfg.App.LogLevel, cfg.App.LogPretty)
	if cfg.App.MetricsAddr != "" {
		srv := metrics.Serve(cfg.App.MetricsAddr)
		defer srv.Close()
		log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")
	}

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	return classifyDir(ctx, log, cfg, stdout)
}

func loadConfig(path string) (*config.Config, error) {
	var cfg *config.Config
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		def := config.Default()
		cfg = &def
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func classifyDir(ctx context.Context, log zerolog.Logger, cfg *config.Config, stdout io.Writer) int {
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		log.Error().Err(err).Msg("build options")
		return exitConfig
	}
	paths, err := ingest.Discover(cfg.Input.Dir, cfg.Input.Extension)
	if err != nil {
		log.Error().Err(err).Msg("discover input files")
		return exitFailed
	}
	log.Info().Str("dir", cfg.Input.Dir).Int("files", len(paths)).Int("workers", opts.Workers).Msg("classification started")

	runner := pipeline.NewRunner(log, opts)
	results := runner.RunAll(ctx, paths)
	for _, res := range results {
		if res.Err != nil {
			fmt.Fprintf(stdout, "%s: FAILED: %v\n", res.Path, res.Err)
			continue
		}
		fmt.Fprintf(stdout, "%s\n%s", res.Summary.Symbol, res.Summary.Tally)
	}

	failed := pipeline.Failed(results)
	log.Info().Int("files", len(results)).Int("failed", failed).Msg("classification finished")
	if failed > 0 {
		return exitFailed
	}
	return exitOK
}
