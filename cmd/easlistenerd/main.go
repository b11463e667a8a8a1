// Easlistenerd is the main daemon for the EAS/NOAA Weather Radio listener.
//
// It loads configuration, starts one fetch/decode/detect pipeline per
// configured Icecast stream, and serves the monitoring HTTP/WebSocket API.
// Shutdown is handled gracefully on SIGINT or SIGTERM.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"github.com/wagsendc/eas-listener/internal/app"
	"github.com/wagsendc/eas-listener/internal/config"
)

func main() {
	var (
		configPath       = pflag.StringP("config", "c", "", "Path to config JSON file (required)")
		bind             = pflag.String("bind", "", "Monitoring HTTP/WS bind address (overrides MONITORING_BIND_ADDR)")
		reloadSignalPath = pflag.String("reload-signal-file", "", "Sentinel file whose mtime change triggers a config reload")
		dryRun           = pflag.Bool("dry-run", false, "Load and validate config, then exit")
	)
	pflag.Parse()

	logger := log.New(os.Stdout, "easlistenerd ", log.LstdFlags|log.Lmicroseconds)

	if *configPath == "" {
		logger.Fatalf("--config/-c is required")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("config load failed: %v", err)
	}
	logger.Printf("loaded config from %s", *configPath)
	for _, w := range cfg.FilterWarnings {
		logger.Printf("config: %s", w)
	}

	if err := config.EnsureDirectories(cfg); err != nil {
		logger.Fatalf("directory setup: %v", err)
	}

	if *dryRun {
		logger.Printf("config OK: %d stream(s), %d filter rule(s)", len(cfg.IcecastStreamURLs), len(cfg.Filters))
		return
	}

	signalPath := *reloadSignalPath
	if signalPath == "" {
		signalPath = cfg.SharedStateDir + "/reload.signal"
	}

	a := app.New(app.Options{
		Logger:           logger,
		Cfg:              cfg,
		ConfigPath:       *configPath,
		ReloadSignalPath: signalPath,
		Bind:             *bind,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatalf("easlistenerd failed: %v", err)
	}

	// Brief pause so in-flight log writes and recordings can flush before exit.
	time.Sleep(50 * time.Millisecond)
}
