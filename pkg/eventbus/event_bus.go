// Package eventbus carries queue envelopes between this service and the validation pipeline.
package eventbus

import (
	"context"

	"github.com/dukex/gtfs-pathways/pkg/models"
)

// RecordIDMetadataKey holds the record id on every published message.
const RecordIDMetadataKey = "tdei_record_id"

// Handler processes one delivered envelope. Messages are acknowledged whatever it returns.
type Handler func(ctx context.Context, envelope *models.QueueMessageEnvelope) error

// MalformedHandler receives a payload that could not be decoded into an envelope.
type MalformedHandler func(ctx context.Context, payload []byte, decodeErr error) error

type SubscribeOption func(*subscription)

type subscription struct {
	onMalformed MalformedHandler
}

// WithMalformedHandler hands undecodable payloads to handler instead of dropping them.
func WithMalformedHandler(handler MalformedHandler) SubscribeOption {
	return func(s *subscription) {
		s.onMalformed = handler
	}
}

type Publisher interface {
	Publish(ctx context.Context, topic string, envelope *models.QueueMessageEnvelope) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler Handler, opts ...SubscribeOption) error
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}
