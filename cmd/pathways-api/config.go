package main

import (
	"github.com/dukex/gtfs-pathways/pkg/cmd"
	"github.com/dukex/gtfs-pathways/pkg/station"
	cli "github.com/urfave/cli/v3"
)

// Topics names the three topics the service talks on.
type Topics struct {
	Upload      string
	Validation  string
	DataService string
}

type Config struct {
	Port              int
	DatabaseURL       string
	EventBus          cmd.EventBusConfig
	Storage           cmd.StorageConfig
	Station           station.Config
	AuthPermissionURL string
	Topics            Topics
	MaxUploadSize     int
	OTELEnabled       bool
}

func configFromCommand(command *cli.Command) Config {
	return Config{
		Port:        command.Int("port"),
		DatabaseURL: command.String("database-url"),
		EventBus: cmd.EventBusConfig{
			Provider:      command.String("event-bus"),
			Brokers:       command.String("kafka-brokers"),
			ConsumerGroup: command.String("consumer-group"),
			OTELEnabled:   command.Bool("otel-enabled"),
		},
		Storage: cmd.StorageConfig{
			Provider:  command.String("storage"),
			Container: command.String("storage-container"),
			Path:      command.String("storage-path"),
			Endpoint:  command.String("s3-endpoint"),
			Region:    command.String("s3-region"),
			AccessKey: command.String("s3-access-key"),
			SecretKey: command.String("s3-secret-key"),
		},
		Station: station.Config{
			StationURL:        command.String("station-url"),
			SecretGenerateURL: command.String("secret-generate-url"),
		},
		AuthPermissionURL: command.String("auth-permission-url"),
		Topics: Topics{
			Upload:      command.String("upload-topic"),
			Validation:  command.String("validation-topic"),
			DataService: command.String("data-service-topic"),
		},
		MaxUploadSize: command.Int("max-upload-size"),
		OTELEnabled:   command.Bool("otel-enabled"),
	}
}
