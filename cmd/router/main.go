package main

import (
	"context"
	"errors"
	"io"
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
	"github.com/bless2804/CrisisOps-Mesh/internal/observability"
	"github.com/bless2804/CrisisOps-Mesh/internal/pipeline"
)

// source is the inbound side of a broker.
type source interface {
	pipeline.BatchExtractor
	io.Closer
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	src, pub, closers, err := openBroker(cfg, logger)
	if err != nil {
		logger.Error("failed to open broker", "broker", cfg.Broker, "error", err)
		os.Exit(1)
	}

	dispatcher := dispatch.New(pub, dispatch.Options{
		Namespace:      cfg.AgencyNamespace,
		Concurrency:    cfg.DispatchConcurrency,
		PublishTimeout: cfg.PublishTimeout,
	}, logger, metrics)
	classifier := pipeline.NewClassifier(logger)

	p := pipeline.New(src, classifier, dispatcher, logger, metrics, cfg.BatchSize, cfg.RouterWorkers)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, logger, httpadapter.WithRules())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start routing pipeline.
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("pipeline did not stop before shutdown timeout")
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	for _, c := range closers {
		if err := c.Close(); err != nil {
			logger.Error("broker close error", "broker", cfg.Broker, "error", err)
		}
	}

	logger.Info("shutdown complete")
}

// openBroker wires the configured transport. The closers are returned in
// shutdown order.
func openBroker(cfg *config.Config, logger *slog.Logger) (source, dispatch.Publisher, []io.Closer, error) {
	switch cfg.Broker {
	case config.BrokerNATS:
		nc, err := natsadapter.Connect(cfg, logger)
		if err != nil {
			return nil, nil, nil, err
		}
		src, err := natsadapter.Subscribe(nc, cfg.EventsNamespace, cfg.NATSQueueGroup, cfg.BatchFlushInterval, logger)
		if err != nil {
			nc.Close()
			return nil, nil, nil, err
		}
		closeConn := closerFunc(func() error { return nc.Drain() })
		return src, natsadapter.NewPublisher(nc), []io.Closer{src, closeConn}, nil
	default:
		reader := kafkaadapter.NewReader(cfg, logger)
		writer := kafkaadapter.NewAgencyWriter(cfg, logger)
		return reader, writer, []io.Closer{reader, writer}, nil
	}
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }
