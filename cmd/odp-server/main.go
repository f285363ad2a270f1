// Command odp-server runs the ESA CCI Open Data Portal core as a standalone
// HTTP service, wiring config.FromEnv() -> portal.New(...) ->
// httpapi.Run(...), in the shape of the teacher's cmd/baseline-server/main.go.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/esacci/odpcore/internal/config"
	"github.com/esacci/odpcore/internal/httpapi"
	"github.com/esacci/odpcore/internal/logger"
	"github.com/esacci/odpcore/internal/observability"
	"github.com/esacci/odpcore/internal/portal"
)

var Version = "dev"

func main() {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{Level: cfg.LogLevel, Console: true, Component: "odp-server"}, os.Stdout)
	log := logger.NewSlog(&zl)
	log.Info("starting odp-server", "addr", cfg.Addr, "version", Version, "opensearch", cfg.OpensearchURL)

	metrics := observability.Init(observability.Config{Build: observability.BuildInfo{Version: Version}})

	p := portal.New(cfg, metrics, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.KafkaBrokers != "" {
		go func() {
			if err := p.StartInvalidationConsumer(ctx); err != nil {
				log.Error("invalidation consumer stopped", "err", err)
			}
		}()
	}

	server := httpapi.New(cfg.Addr, p, metrics, log)
	if err := server.Run(ctx); err != nil {
		log.Error("httpapi server error", "err", err)
		os.Exit(1)
	}
	log.Info("odp-server stopped")
}
