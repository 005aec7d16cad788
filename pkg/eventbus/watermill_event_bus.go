package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/gtfs-pathways/pkg/models"
)

type WatermillEventBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	logger     *slog.Logger
	consumers  sync.WaitGroup
}

func NewWatermillEventBus(pub message.Publisher, sub message.Subscriber, logger *slog.Logger) *WatermillEventBus {
	return &WatermillEventBus{
		publisher:  pub,
		subscriber: sub,
		logger:     logger.With("module", "event_bus"),
	}
}

// Publish sends envelope to topic under a fresh message id.
func (eb *WatermillEventBus) Publish(ctx context.Context, topic string, envelope *models.QueueMessageEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to encode envelope: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set(RecordIDMetadataKey, envelope.RecordID)

	err = eb.publisher.Publish(topic, msg)
	if err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	return nil
}

// Subscribe consumes topic in the background until ctx is done or the bus is closed. Every
// message is acked once handled. Malformed payloads go to the WithMalformedHandler callback, or
// are logged and dropped when there is none. Handler errors are logged.
func (eb *WatermillEventBus) Subscribe(ctx context.Context, topic string, handler Handler, opts ...SubscribeOption) error {
	sub := &subscription{}
	for _, opt := range opts {
		opt(sub)
	}

	messages, err := eb.subscriber.Subscribe(ctx, topic)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	eb.consumers.Add(1)

	go func() {
		defer eb.consumers.Done()

		for msg := range messages {
			eb.deliver(msg, handler, sub.onMalformed)
		}
	}()

	return nil
}

func (eb *WatermillEventBus) deliver(msg *message.Message, handler Handler, onMalformed MalformedHandler) {
	defer msg.Ack()

	ctx := msg.Context()

	var envelope models.QueueMessageEnvelope

	err := json.Unmarshal(msg.Payload, &envelope)
	if err != nil {
		eb.malformed(ctx, msg, err, onMalformed)

		return
	}

	err = handler(ctx, &envelope)
	if err != nil {
		eb.logger.ErrorContext(ctx, "message handler failed",
			"message_id", msg.UUID, "record_id", envelope.RecordID, "error", err)
	}
}

func (eb *WatermillEventBus) malformed(ctx context.Context, msg *message.Message, decodeErr error, onMalformed MalformedHandler) {
	if onMalformed == nil {
		eb.logger.ErrorContext(ctx, "dropping malformed message", "message_id", msg.UUID, "error", decodeErr)

		return
	}

	err := onMalformed(ctx, msg.Payload, decodeErr)
	if err != nil {
		eb.logger.ErrorContext(ctx, "malformed message handler failed", "message_id", msg.UUID, "error", err)
	}
}

// Close stops publishing and consuming, then waits for in-flight deliveries.
func (eb *WatermillEventBus) Close() error {
	err := eb.publisher.Close()
	if err != nil {
		return fmt.Errorf("failed to close publisher: %w", err)
	}

	err = eb.subscriber.Close()
	if err != nil {
		return fmt.Errorf("failed to close subscriber: %w", err)
	}

	eb.consumers.Wait()

	return nil
}
