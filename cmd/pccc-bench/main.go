package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/dbehnke/pccc/internal/app"
	"github.com/dbehnke/pccc/pkg/config"
	"github.com/dbehnke/pccc/pkg/logger"
	"github.com/dbehnke/pccc/pkg/web"
)

var (
	version   = "dev"
	gitCommit = "unknown"
	buildTime = "unknown"
)

func main() {
	// Parse command line flags
	fs := pflag.NewFlagSet("pccc-bench", pflag.ExitOnError)
	configFile := fs.String("config", "", "Path to configuration file")
	showVersion := fs.Bool("version", false, "Show version information")
	validate := fs.Bool("validate", false, "Validate configuration and exit")
	saveParams := fs.String("save-params", "", "Write the code for the first block size to this .json/.yaml file and exit")
	serve := fs.Bool("serve", false, "Keep the dashboard and metrics servers running after the sweep")
	config.RegisterFlags(fs)
	_ = fs.Parse(os.Args[1:])

	// Show version
	if *showVersion {
		fmt.Printf("pccc-bench %s\n", version)
		fmt.Printf("Git Commit: %s\n", gitCommit)
		fmt.Printf("Built: %s\n", buildTime)
		os.Exit(0)
	}
	web.SetVersionInfo(version, gitCommit, buildTime)

	// Initialize basic logger for startup
	log := logger.New(logger.Config{
		Level:  "info",
		Format: "text",
	})

	if err := config.BindFlags(fs); err != nil {
		log.Error("Failed to bind flags", logger.Error(err))
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Error("Failed to load configuration", logger.Error(err))
		os.Exit(1)
	}

	// Validate only mode
	if *validate {
		log.Info("Configuration is valid")
		os.Exit(0)
	}

	log = logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	log.Info("Starting pccc-bench",
		logger.String("version", version),
		logger.String("commit", gitCommit),
		logger.String("build_time", buildTime))

	if *saveParams != "" {
		if len(cfg.Code.BlockSizes) == 0 {
			log.Error("No block size configured")
			os.Exit(1)
		}
		n := cfg.Code.BlockSizes[0]
		if err := app.SaveParams(cfg, n, *saveParams); err != nil {
			log.Error("Failed to save code parameters", logger.Error(err))
			os.Exit(1)
		}
		log.Info("Code parameters saved",
			logger.String("path", *saveParams),
			logger.Int("block_size", n))
		os.Exit(0)
	}

	// Cancel on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("Failed to initialize", logger.Error(err))
		os.Exit(1)
	}
	a.Start(ctx)

	results, sweepErr := a.Sweep(ctx)
	if err := app.WriteReport(os.Stdout, results); err != nil {
		log.Warn("Failed to write report", logger.Error(err))
	}
	if sweepErr != nil && !errors.Is(sweepErr, context.Canceled) {
		log.Error("Sweep finished with errors", logger.Error(sweepErr))
	}

	if *serve && ctx.Err() == nil {
		log.Info("Sweep complete, serving until interrupted")
		<-ctx.Done()
		log.Info("Received shutdown signal")
	}

	// Trigger graceful shutdown of the servers
	stop()
	if err := a.Close(); err != nil {
		log.Error("Failed to close run history", logger.Error(err))
	}
	log.Info("pccc-bench stopped")

	if sweepErr != nil {
		os.Exit(1)
	}
}
