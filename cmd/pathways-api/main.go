package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/dukex/gtfs-pathways/pkg/log"
	"github.com/joho/godotenv"
	cli "github.com/urfave/cli/v3"
)

const (
	defaultPort          = 8080
	defaultMaxUploadSize = 100 * 1024 * 1024
)

func main() {
	_ = godotenv.Load()

	cmd := &cli.Command{
		Name:                  "pathways-api",
		Usage:                 "Accept GTFS pathways uploads and persist validated versions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Port to run the API server on",
				Value:   defaultPort,
				Sources: cli.EnvVars("APPLICATION_PORT", "PORT"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "PostgreSQL connection URL",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "kafka",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "kafka-brokers",
				Usage:   "Comma-separated Kafka broker addresses",
				Sources: cli.EnvVars("KAFKA_BROKERS"),
			},
			&cli.StringFlag{
				Name:    "consumer-group",
				Usage:   "Consumer group of the validation result subscription",
				Value:   "gtfs-pathways-data-service",
				Sources: cli.EnvVars("VALIDATION_SUBSCRIPTION"),
			},
			&cli.StringFlag{
				Name:    "upload-topic",
				Usage:   "Topic receiving upload submitted events",
				Value:   "gtfs-pathways-upload",
				Sources: cli.EnvVars("UPLOAD_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "validation-topic",
				Usage:   "Topic carrying validation results",
				Value:   "gtfs-pathways-validation",
				Sources: cli.EnvVars("VALIDATION_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "data-service-topic",
				Usage:   "Topic receiving the persistence status of every validation result",
				Value:   "gtfs-pathways-data-service",
				Sources: cli.EnvVars("DATASVC_TOPIC"),
			},
			&cli.StringFlag{
				Name:    "storage",
				Usage:   "Object storage type (s3, file)",
				Value:   "s3",
				Sources: cli.EnvVars("STORAGE_PROVIDER"),
			},
			&cli.StringFlag{
				Name:    "storage-container",
				Usage:   "Bucket holding uploaded files",
				Value:   "gtfspathways",
				Sources: cli.EnvVars("STORAGE_CONTAINER"),
			},
			&cli.StringFlag{
				Name:    "storage-path",
				Usage:   "Root directory of the file storage",
				Value:   "./data",
				Sources: cli.EnvVars("STORAGE_PATH"),
			},
			&cli.StringFlag{
				Name:    "s3-endpoint",
				Usage:   "S3 compatible endpoint, empty for AWS",
				Sources: cli.EnvVars("S3_ENDPOINT"),
			},
			&cli.StringFlag{
				Name:    "s3-region",
				Usage:   "S3 region",
				Value:   "us-east-1",
				Sources: cli.EnvVars("S3_REGION"),
			},
			&cli.StringFlag{
				Name:    "s3-access-key",
				Usage:   "S3 access key",
				Sources: cli.EnvVars("S3_ACCESS_KEY"),
			},
			&cli.StringFlag{
				Name:    "s3-secret-key",
				Usage:   "S3 secret key",
				Sources: cli.EnvVars("S3_SECRET_KEY"),
			},
			&cli.StringFlag{
				Name:     "station-url",
				Usage:    "Station service endpoint",
				Required: true,
				Sources:  cli.EnvVars("STATION_URL"),
			},
			&cli.StringFlag{
				Name:     "secret-generate-url",
				Usage:    "Endpoint issuing the secret sent to the station service",
				Required: true,
				Sources:  cli.EnvVars("SECRET_GENERATE_URL"),
			},
			&cli.StringFlag{
				Name:     "auth-permission-url",
				Usage:    "Permission authority endpoint",
				Required: true,
				Sources:  cli.EnvVars("AUTH_PERMISSION_URL"),
			},
			&cli.IntFlag{
				Name:    "max-upload-size",
				Usage:   "Largest accepted request body in bytes",
				Value:   defaultMaxUploadSize,
				Sources: cli.EnvVars("MAX_UPLOAD_SIZE"),
			},
			&cli.BoolFlag{
				Name:    "otel-enabled",
				Usage:   "Export traces over OTLP and propagate them through Kafka",
				Sources: cli.EnvVars("OTEL_ENABLED"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger := log.WithModule("pathways-api")
			logger.InfoContext(ctx, "Initializing Pathways API")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, logger, configFromCommand(command))
		},
	}

	err := cmd.Run(context.Background(), os.Args)
	if err != nil {
		slog.Error("Pathways API stopped", "error", err)
		os.Exit(1)
	}
}
