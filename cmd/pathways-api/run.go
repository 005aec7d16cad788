package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/gtfs-pathways/pkg/auth"
	"github.com/dukex/gtfs-pathways/pkg/cmd"
	"github.com/dukex/gtfs-pathways/pkg/otelhelper"
	"github.com/dukex/gtfs-pathways/pkg/station"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "gtfs-pathways-api"

func run(ctx context.Context, logger *slog.Logger, config Config) error {
	tracer, shutdownTracer, err := newTracer(ctx, config.OTELEnabled)
	if err != nil {
		return err
	}

	defer func() {
		if err := shutdownTracer(context.Background()); err != nil {
			logger.Error("Failed to shutdown tracer provider", "error", err)
		}
	}()

	persistence, err := cmd.NewPersistence(ctx, logger, config.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}

	defer func() {
		if err := persistence.Close(context.Background()); err != nil {
			logger.Error("Failed to close persistence", "error", err)
		}
	}()

	store, err := cmd.NewStorage(ctx, config.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	eventBus, err := cmd.NewEventBus(config.EventBus, logger)
	if err != nil {
		return err
	}

	defer func() {
		if err := eventBus.Close(); err != nil {
			logger.Error("Failed to close event bus", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	api := NewAPI(logger, Dependencies{
		Persistence: persistence,
		Storage:     store,
		Stations:    station.NewClient(config.Station, nil, logger),
		Permissions: auth.NewPermissionClient(config.AuthPermissionURL, nil, logger),
		EventBus:    eventBus,
		Registry:    registry,
		Tracer:      tracer,
		Topics:      config.Topics,
		BodyLimit:   config.MaxUploadSize,
	})

	return api.Start(ctx, config.Port)
}

func newTracer(ctx context.Context, enabled bool) (trace.Tracer, otelhelper.ShutdownFunc, error) { //nolint:ireturn
	if !enabled {
		return otelhelper.NoopTracer(), func(context.Context) error { return nil }, nil
	}

	tracer, shutdown, err := otelhelper.NewTracer(ctx, serviceName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	return tracer, shutdown, nil
}
