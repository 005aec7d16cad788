// Package kafka builds Kafka-backed watermill publishers and subscribers.
package kafka

import (
	"errors"
	"fmt"
	"strings"

	"github.com/IBM/sarama"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v3/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
)

// ErrNoBrokers is returned when no broker address is configured.
var ErrNoBrokers = errors.New("kafka brokers are not configured")

type Config struct {
	// Brokers is a comma-separated list of broker addresses.
	Brokers       string
	ConsumerGroup string
	OTELEnabled   bool
	// PartitionKey is the metadata key whose value becomes the Kafka message key, so that
	// messages of one record land on one partition.
	PartitionKey string
}

func ParseBrokers(brokers string) []string {
	parsed := make([]string, 0)

	for _, broker := range strings.Split(brokers, ",") {
		if broker = strings.TrimSpace(broker); broker != "" {
			parsed = append(parsed, broker)
		}
	}

	return parsed
}

func CreateChannel(logger watermill.LoggerAdapter, config Config) (*kafka.Publisher, *kafka.Subscriber, error) {
	brokers := ParseBrokers(config.Brokers)
	if len(brokers) == 0 {
		return nil, nil, ErrNoBrokers
	}

	saramaSubscriberConfig := kafka.DefaultSaramaSubscriberConfig()
	saramaSubscriberConfig.Consumer.Offsets.Initial = sarama.OffsetOldest

	subscriber, err := kafka.NewSubscriber(
		kafka.SubscriberConfig{
			Brokers:               brokers,
			Unmarshaler:           kafka.DefaultMarshaler{},
			OverwriteSaramaConfig: saramaSubscriberConfig,
			ConsumerGroup:         config.ConsumerGroup,
			OTELEnabled:           config.OTELEnabled,
		},
		logger,
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create kafka subscriber: %w", err)
	}

	saramaPublisherConfig := kafka.DefaultSaramaSyncPublisherConfig()
	saramaPublisherConfig.Producer.Return.Successes = true

	publisher, err := kafka.NewPublisher(
		kafka.PublisherConfig{
			Brokers:               brokers,
			Marshaler:             marshaler(config.PartitionKey),
			OverwriteSaramaConfig: saramaPublisherConfig,
			OTELEnabled:           config.OTELEnabled,
		},
		logger,
	)
	if err != nil {
		_ = subscriber.Close()

		return nil, nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}

	return publisher, subscriber, nil
}

func marshaler(partitionKey string) kafka.Marshaler {
	if partitionKey == "" {
		return kafka.DefaultMarshaler{}
	}

	return kafka.NewWithPartitioningMarshaler(func(_ string, msg *message.Message) (string, error) {
		return msg.Metadata.Get(partitionKey), nil
	})
}
