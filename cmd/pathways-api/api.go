// Package main provides the GTFS pathways API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/dukex/gtfs-pathways/pkg/eventbus"
	"github.com/dukex/gtfs-pathways/pkg/metrics"
	"github.com/dukex/gtfs-pathways/pkg/persistence"
	"github.com/dukex/gtfs-pathways/pkg/services"
	"github.com/dukex/gtfs-pathways/pkg/storage"
	"github.com/dukex/gtfs-pathways/pkg/web"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/healthcheck"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"
)

const shutdownTimeout = 10 * time.Second

// Dependencies are the collaborators the API is assembled from.
type Dependencies struct {
	Persistence persistence.Persistence
	Storage     storage.Storage
	Stations    services.StationResolver
	Permissions services.PermissionChecker
	EventBus    eventbus.EventBus
	Registry    *prometheus.Registry
	Tracer      trace.Tracer
	Topics      Topics
	BodyLimit   int
}

type API struct {
	logger   *slog.Logger
	deps     Dependencies
	metrics  *metrics.Metrics
	pathways *services.Pathways
	admitter *services.Admission
}

func NewAPI(logger *slog.Logger, deps Dependencies) *API {
	m := metrics.New(deps.Registry)

	return &API{
		logger:   logger,
		deps:     deps,
		metrics:  m,
		pathways: services.NewPathways(deps.Persistence.Pathways(), deps.Storage, deps.Stations, logger),
		admitter: services.NewAdmission(deps.Storage, deps.Permissions, deps.EventBus, deps.Topics.Upload, m, logger),
	}
}

func (a *API) App() *fiber.App {
	handlers := web.NewAPIHandlers(a.pathways, a.admitter, a.deps.Persistence, a.logger)

	config := fiber.Config{}
	if a.deps.BodyLimit > 0 {
		config.BodyLimit = a.deps.BodyLimit
	}

	app := fiber.New(config)
	app.Use(cors.New())
	app.Use(logger.New(logger.Config{
		DisableColors: true,
	}))

	app.Get(healthcheck.DefaultLivenessEndpoint, healthcheck.NewHealthChecker())
	app.Get(healthcheck.DefaultReadinessEndpoint, healthcheck.NewHealthChecker())

	app.Get("/", func(c fiber.Ctx) error {
		return c.SendString("GTFS Pathways API")
	})

	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(a.deps.Registry, promhttp.HandlerOpts{})))

	p := app.Group("/pathways")
	p.Get("/", handlers.ListPathways)
	p.Post("/", handlers.CreatePathway)
	p.Get("/versions/info", handlers.VersionsInfo)
	p.Get("/:id", handlers.DownloadPathway)

	return app
}

// Subscribe starts reconciling validation results into persisted records.
func (a *API) Subscribe(ctx context.Context) error {
	reconciler := services.NewReconciler(
		a.pathways,
		a.deps.Permissions,
		a.deps.EventBus,
		a.deps.Topics.DataService,
		a.metrics,
		a.deps.Tracer,
		a.logger,
	)

	err := a.deps.EventBus.Subscribe(ctx, a.deps.Topics.Validation, reconciler.Handle,
		eventbus.WithMalformedHandler(reconciler.HandleMalformed))
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", a.deps.Topics.Validation, err)
	}

	return nil
}

// Start serves HTTP and consumes validation results until ctx is cancelled, then drains pending
// upload events.
func (a *API) Start(ctx context.Context, port int) error {
	app := a.App()

	err := a.Subscribe(ctx)
	if err != nil {
		return err
	}

	listenErr := make(chan error, 1)

	go func() {
		listenErr <- app.Listen(":"+strconv.Itoa(port), fiber.ListenConfig{DisableStartupMessage: true})
	}()

	a.logger.InfoContext(ctx, "Pathways API listening", "port", port)

	select {
	case err = <-listenErr:
	case <-ctx.Done():
		a.logger.InfoContext(ctx, "Shutting down Pathways API")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		err = app.ShutdownWithContext(shutdownCtx)
	}

	a.admitter.Wait()

	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("api server failed: %w", err)
	}

	return nil
}
