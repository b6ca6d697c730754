package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/osintscope/eventsearch/internal/app"
)

func main() {
	// Logging setup
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	var (
		cfgPath  string
		envFile  string
		sources  string
		listen   string
		provider string
		verbose  bool
	)

	flag.StringVar(&cfgPath, "config", os.Getenv("EVENTSEARCH_CONFIG"), "Path to YAML or JSON config file (lowest layer)")
	flag.StringVar(&envFile, "env-file", "", "Additional dotenv file loaded after .env")
	flag.StringVar(&sources, "sources", "", "Path to the source registry YAML")
	flag.StringVar(&listen, "listen", "", "HTTP bind address (default :8000)")
	flag.StringVar(&provider, "llm.provider", "", "Primary LLM provider: claude or ollama")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	if err := app.LoadEnvFiles(".env", envFile); err != nil {
		log.Error().Err(err).Msg("load env files")
		os.Exit(1)
	}

	cfg := app.Config{
		SourcesPath:     sources,
		ListenAddr:      listen,
		DefaultProvider: provider,
		Verbose:         verbose,
	}
	app.ApplyEnvToConfig(&cfg)
	if cfgPath != "" {
		fc, err := app.LoadConfigFile(cfgPath)
		if err != nil {
			log.Error().Err(err).Str("path", cfgPath).Msg("load config file")
			os.Exit(1)
		}
		app.ApplyFileConfig(&cfg, fc)
	}

	if cfg.Verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	if err := run(cfg); err != nil {
		log.Error().Err(err).Msg("server failed")
		os.Exit(1)
	}
}

func run(cfg app.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer a.Close()

	return a.Serve(ctx)
}
