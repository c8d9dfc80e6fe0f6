package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

const notifyConsumerName = "notify"

type textSender interface {
	SendText(ctx context.Context, req whatsapp.SendTextRequest) error
}

type customerLoader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

type idempotencyChecker interface {
	CheckAndMarkProcessed(ctx context.Context, consumer string, eventID uuid.UUID) (bool, error)
	Delete(ctx context.Context, consumer string, eventID uuid.UUID) error
}

// Consumer turns order lifecycle events into WhatsApp notifications for the
// ordering customer. Redis idempotency keeps pubsub redelivery from double
// texting.
type Consumer struct {
	gateway     textSender
	customers   customerLoader
	manager     idempotencyChecker
	sessionID   string
	logg        *logger.Logger
	eventFilter map[enums.OutboxEventType]struct{}
}

// NewConsumer builds a notification consumer.
func NewConsumer(gateway textSender, customers customerLoader, manager idempotencyChecker, sessionID string, logg *logger.Logger) (*Consumer, error) {
	if gateway == nil {
		return nil, fmt.Errorf("messaging gateway required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer loader required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil, fmt.Errorf("gateway session id required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		gateway:   gateway,
		customers: customers,
		manager:   manager,
		sessionID: strings.TrimSpace(sessionID),
		logg:      logg,
		eventFilter: map[enums.OutboxEventType]struct{}{
			enums.EventOrderCreated:       {},
			enums.EventOrderStatusChanged: {},
		},
	}, nil
}

// Process sends the customer a text when the envelope carries a supported
// order event.
func (c *Consumer) Process(ctx context.Context, eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) error {
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   envelope.EventID,
		"event_type": eventType,
	})

	if _, ok := c.eventFilter[eventType]; !ok {
		c.logg.Info(logCtx, "event not handled by notify consumer")
		return nil
	}

	if envelope.EventID == "" {
		return fmt.Errorf("event id missing")
	}
	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		return fmt.Errorf("parse event id: %w", err)
	}

	already, err := c.manager.CheckAndMarkProcessed(ctx, notifyConsumerName, eventID)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return nil
	}

	customerID, text, err := buildMessage(eventType, envelope)
	if err != nil {
		c.logg.Error(logCtx, "failed to build notification", err)
		_ = c.manager.Delete(ctx, notifyConsumerName, eventID)
		return err
	}
	if text == "" {
		c.logg.Info(logCtx, "transition does not notify")
		return nil
	}

	customer, err := c.customers.FindByID(ctx, customerID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			// customer deleted since the order event, nothing to send
			c.logg.Warn(logCtx, "customer gone, dropping notification")
			return nil
		}
		_ = c.manager.Delete(ctx, notifyConsumerName, eventID)
		return fmt.Errorf("load customer: %w", err)
	}

	err = c.gateway.SendText(ctx, whatsapp.SendTextRequest{
		Session: c.sessionID,
		To:      customer.Phone,
		Text:    text,
	})
	if err != nil {
		c.logg.Error(logCtx, "failed to send notification", err)
		_ = c.manager.Delete(ctx, notifyConsumerName, eventID)
		return err
	}

	c.logg.Info(logCtx, "order notification sent")
	return nil
}

type orderCreatedData struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	ItemCount   int       `json:"item_count"`
}

type statusChangedData struct {
	OrderID     uuid.UUID `json:"order_id"`
	OrderNumber int64     `json:"order_number"`
	CustomerID  uuid.UUID `json:"customer_id"`
	From        string    `json:"from"`
	To          string    `json:"to"`
}

func buildMessage(eventType enums.OutboxEventType, envelope outbox.PayloadEnvelope) (uuid.UUID, string, error) {
	switch eventType {
	case enums.EventOrderCreated:
		var data orderCreatedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return uuid.Nil, "", fmt.Errorf("decode created payload: %w", err)
		}
		if data.CustomerID == uuid.Nil {
			return uuid.Nil, "", fmt.Errorf("customer id missing")
		}
		text := fmt.Sprintf("Pesanan #%d kami terima dengan %d jenis barang. Terima kasih!",
			data.OrderNumber, data.ItemCount)
		return data.CustomerID, text, nil

	case enums.EventOrderStatusChanged:
		var data statusChangedData
		if err := json.Unmarshal(envelope.Data, &data); err != nil {
			return uuid.Nil, "", fmt.Errorf("decode status payload: %w", err)
		}
		if data.CustomerID == uuid.Nil {
			return uuid.Nil, "", fmt.Errorf("customer id missing")
		}
		switch enums.OrderStatus(data.To) {
		case enums.OrderStatusConfirmed:
			return data.CustomerID, fmt.Sprintf("Pesanan #%d dikonfirmasi dan sedang disiapkan.", data.OrderNumber), nil
		case enums.OrderStatusCancelled:
			return data.CustomerID, fmt.Sprintf("Pesanan #%d dibatalkan. Hubungi kami bila ada pertanyaan.", data.OrderNumber), nil
		default:
			return data.CustomerID, "", nil
		}
	}
	return uuid.Nil, "", fmt.Errorf("unsupported event type %s", eventType)
}
