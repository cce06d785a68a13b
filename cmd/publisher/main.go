// Command publisher emits synthetic crisis incidents into the inbound topic
// space at a fixed interval, and on demand through POST /publish.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/bless2804/CrisisOps-Mesh/internal/adapter/httpadapter"
	kafkaadapter "github.com/bless2804/CrisisOps-Mesh/internal/adapter/kafka"
	natsadapter "github.com/bless2804/CrisisOps-Mesh/internal/adapter/nats"
	"github.com/bless2804/CrisisOps-Mesh/internal/config"
	"github.com/bless2804/CrisisOps-Mesh/internal/dispatch"
	"github.com/bless2804/CrisisOps-Mesh/internal/generator"
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"github.com/jonboulle/clockwork"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	pub, closeBroker, err := openPublisher(cfg, logger)
	if err != nil {
		logger.Error("failed to open broker", "broker", cfg.Broker, "error", err)
		os.Exit(1)
	}

	clock := clockwork.NewRealClock()
	gen := generator.New(clock, cfg.PublishSource, nil)
	emitter := generator.NewEmitter(gen, pub, clock, generator.EmitterOptions{
		Namespace: cfg.EventsNamespace,
		Region:    cfg.RegionPath,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, emitter, logger, httpadapter.WithPublish(emitter))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	go func() {
		if err := emitter.Run(ctx, cfg.PublishInterval); err != nil {
			logger.Error("publisher error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := closeBroker(); err != nil {
		logger.Error("broker close error", "broker", cfg.Broker, "error", err)
	}

	logger.Info("shutdown complete")
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (dispatch.Publisher, func() error, error) {
	switch cfg.Broker {
	case config.BrokerNATS:
		nc, err := natsadapter.Connect(cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return natsadapter.NewPublisher(nc), nc.Drain, nil
	default:
		w := kafkaadapter.NewEventWriter(cfg, logger)
		return w, w.Close, nil
	}
}
