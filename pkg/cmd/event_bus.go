// Package cmd provides common initialization functions for command-line applications.
package cmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/dukex/gtfs-pathways/pkg/channels/gochannel"
	"github.com/dukex/gtfs-pathways/pkg/channels/kafka"
	"github.com/dukex/gtfs-pathways/pkg/eventbus"
)

var ErrUnsupportedProvider = errors.New("unsupported provider")

// EventBusConfig selects and configures the message transport.
type EventBusConfig struct {
	Provider      string
	Brokers       string
	ConsumerGroup string
	OTELEnabled   bool
}

func NewEventBus(config EventBusConfig, logger *slog.Logger) (*eventbus.WatermillEventBus, error) {
	watermillLogger := watermill.NewSlogLogger(logger)

	switch config.Provider {
	case "kafka":
		pub, sub, err := kafka.CreateChannel(watermillLogger, kafka.Config{
			Brokers:       config.Brokers,
			ConsumerGroup: config.ConsumerGroup,
			OTELEnabled:   config.OTELEnabled,
			PartitionKey:  eventbus.RecordIDMetadataKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create Kafka pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	case "gochannel":
		pub, sub, err := gochannel.CreateChannel(watermillLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to create in-memory pub/sub: %w", err)
		}

		return eventbus.NewWatermillEventBus(pub, sub, logger), nil
	default:
		return nil, fmt.Errorf("%w: event bus %q", ErrUnsupportedProvider, config.Provider)
	}
}
