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
	"time"

	"golang.org/x/sync/errgroup"

	httpadapter "github.com/couchcryptid/ecowitt-ingest/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/ecowitt-ingest/internal/adapter/kafka"
	mqttadapter "github.com/couchcryptid/ecowitt-ingest/internal/adapter/mqtt"
	natsadapter "github.com/couchcryptid/ecowitt-ingest/internal/adapter/nats"
	"github.com/couchcryptid/ecowitt-ingest/internal/adapter/websocket"
	"github.com/couchcryptid/ecowitt-ingest/internal/config"
	"github.com/couchcryptid/ecowitt-ingest/internal/dispatch"
	"github.com/couchcryptid/ecowitt-ingest/internal/observability"
	"github.com/couchcryptid/ecowitt-ingest/internal/pipeline"
	"github.com/couchcryptid/ecowitt-ingest/internal/registry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("service stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

type sink interface {
	dispatch.Subscriber
	io.Closer
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	var reg *registry.Registry
	reg = registry.New(logger, registry.WithDiscoveryCallback(func(s registry.Sensor) {
		metrics.SensorsDiscovered.Inc()
		metrics.SensorsKnown.Set(float64(reg.Len()))
		logger.Info("sensor discovered", "key", s.Key, "name", s.Name, "kind", s.Kind.String(), "unit", s.Unit)
	}))

	transformer := pipeline.NewTransformer(cfg.WindchillMode, logger)
	dispatcher := dispatch.New(cfg.DispatchTimeout, logger, metrics)

	g, gctx := errgroup.WithContext(ctx)

	var sinks []sink
	enable := func(s sink) {
		dispatcher.Register(s)
		sinks = append(sinks, s)
		metrics.SinkEnabled.WithLabelValues(s.Name()).Set(1)
		logger.Info("sink enabled", "sink", s.Name())
	}

	if cfg.KafkaEnabled {
		enable(kafkaadapter.NewWriter(cfg, logger))
	}
	if cfg.MQTTEnabled {
		pub := mqttadapter.NewPublisher(cfg, logger)
		enable(pub)
		// Deliveries fail fast until the broker accepts the connection.
		g.Go(func() error {
			if err := pub.Connect(gctx); err != nil && gctx.Err() == nil {
				logger.Error("mqtt connect failed", "error", err)
			}
			return nil
		})
	}
	if cfg.NATSEnabled {
		connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		pub, err := natsadapter.Connect(connectCtx, cfg, logger)
		cancel()
		if err != nil {
			closeSinks(sinks, logger)
			return err
		}
		enable(pub)
	}

	var stream http.Handler
	if cfg.WebSocketEnabled {
		hub := websocket.NewHub(logger)
		enable(hub)
		stream = hub
	}

	p := pipeline.New(transformer, reg, dispatcher, logger, metrics)

	srv := httpadapter.NewServer(httpadapter.Options{
		Addr:         cfg.HTTPAddr,
		IngestPath:   cfg.IngestPath,
		MaxBodyBytes: cfg.MaxBodyBytes,
		Pipeline:     p,
		Sensors:      reg,
		Windchill:    transformer,
		Stream:       stream,
		Logger:       logger,
		Metrics:      metrics,
	})

	logger.Info("ecowitt ingest starting",
		"windchill", transformer.WindchillMode().String(),
		"sinks", dispatcher.Len(),
	)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := p.WaitForData(gctx); err == nil {
			station, _ := p.Station()
			logger.Info("station online", "station", station.ID(), "model", station.Model)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
		closeSinks(sinks, logger)
		return nil
	})

	return g.Wait()
}

func closeSinks(sinks []sink, logger *slog.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Error("sink close error", "sink", s.Name(), "error", err)
		}
	}
}
