package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/cocotrade/ops-backend/pkg/enums"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/outbox"
)

type eventProcessor interface {
	Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error
}

// Worker pulls order events from Pub/Sub and feeds them to the consumer.
type Worker struct {
	subscription *gcppubsub.Subscriber
	consumer     eventProcessor
	logg         *logger.Logger
}

func NewWorker(subscription *gcppubsub.Subscriber, consumer eventProcessor, logg *logger.Logger) (*Worker, error) {
	if subscription == nil {
		return nil, errors.New("orders subscription is required")
	}
	if consumer == nil {
		return nil, errors.New("event consumer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Worker{subscription: subscription, consumer: consumer, logg: logg}, nil
}

type handleResult struct {
	nack bool
}

// Run consumes order events until the context is canceled.
func (w *Worker) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return w.subscription.Receive(ctx, func(innerCtx context.Context, msg *gcppubsub.Message) {
		if w.handle(innerCtx, msg).nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

// handle acks malformed messages so they do not redeliver forever; only
// processing failures are nacked for retry.
func (w *Worker) handle(ctx context.Context, msg *gcppubsub.Message) handleResult {
	fields := map[string]any{"message_id": msg.ID}
	logCtx := w.logg.WithFields(ctx, fields)

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		fields["error"] = err.Error()
		w.logg.Warn(w.logg.WithFields(ctx, fields), "invalid payload envelope")
		return handleResult{}
	}

	eventTypeStr := strings.TrimSpace(msg.Attributes["event_type"])
	eventType, err := enums.ParseOutboxEventType(eventTypeStr)
	if err != nil {
		fields["event_type"] = eventTypeStr
		w.logg.Warn(w.logg.WithFields(ctx, fields), "unknown event type")
		return handleResult{}
	}

	fields["event_id"] = envelope.EventID
	fields["event_type"] = eventType
	fields["occurred_at"] = envelope.OccurredAt.Format(time.RFC3339Nano)
	logCtx = w.logg.WithFields(ctx, fields)

	if err := w.consumer.Process(logCtx, eventType, envelope); err != nil {
		w.logg.Error(logCtx, "notification processing failed", err)
		return handleResult{nack: true}
	}
	return handleResult{}
}
