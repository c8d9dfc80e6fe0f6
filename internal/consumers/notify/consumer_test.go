package notify

import (
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

type stubSender struct {
	sent    []whatsapp.SendTextRequest
	sendErr error
}

func (s *stubSender) SendText(_ context.Context, req whatsapp.SendTextRequest) error {
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, req)
	return nil
}

type stubCustomers struct {
	customers map[uuid.UUID]*models.Customer
}

func (s *stubCustomers) FindByID(_ context.Context, id uuid.UUID) (*models.Customer, error) {
	customer, ok := s.customers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return customer, nil
}

type stubIdempotency struct {
	processed map[uuid.UUID]bool
	deleted   []uuid.UUID
}

func newStubIdempotency() *stubIdempotency {
	return &stubIdempotency{processed: map[uuid.UUID]bool{}}
}

func (s *stubIdempotency) CheckAndMarkProcessed(_ context.Context, _ string, eventID uuid.UUID) (bool, error) {
	if s.processed[eventID] {
		return true, nil
	}
	s.processed[eventID] = true
	return false, nil
}

func (s *stubIdempotency) Delete(_ context.Context, _ string, eventID uuid.UUID) error {
	s.deleted = append(s.deleted, eventID)
	delete(s.processed, eventID)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "notify-test", Output: io.Discard})
}

func envelopeFor(t *testing.T, data any) outbox.PayloadEnvelope {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	return outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
	}
}

func newNotifyConsumer(t *testing.T, sender *stubSender, customers *stubCustomers, idem *stubIdempotency) *Consumer {
	t.Helper()
	consumer, err := NewConsumer(sender, customers, idem, "ops", testLogger())
	require.NoError(t, err)
	return consumer
}

func TestProcessOrderCreated(t *testing.T) {
	customerID := uuid.New()
	sender := &stubSender{}
	customers := &stubCustomers{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Toko Kelapa", Phone: "628123456789"},
	}}
	consumer := newNotifyConsumer(t, sender, customers, newStubIdempotency())

	envelope := envelopeFor(t, orderCreatedData{
		OrderID:     uuid.New(),
		OrderNumber: 1042,
		CustomerID:  customerID,
		ItemCount:   3,
	})
	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderCreated, envelope))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ops", sender.sent[0].Session)
	assert.Equal(t, "628123456789", sender.sent[0].To)
	assert.Contains(t, sender.sent[0].Text, "#1042")
}

func TestProcessStatusChanged(t *testing.T) {
	customerID := uuid.New()
	sender := &stubSender{}
	customers := &stubCustomers{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Toko Kelapa", Phone: "628123456789"},
	}}
	consumer := newNotifyConsumer(t, sender, customers, newStubIdempotency())
	ctx := context.Background()

	confirmed := envelopeFor(t, statusChangedData{
		OrderID: uuid.New(), OrderNumber: 1042, CustomerID: customerID,
		From: "pending", To: "confirmed",
	})
	require.NoError(t, consumer.Process(ctx, enums.EventOrderStatusChanged, confirmed))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].Text, "dikonfirmasi")

	// pending transitions stay silent
	backToPending := envelopeFor(t, statusChangedData{
		OrderID: uuid.New(), OrderNumber: 1042, CustomerID: customerID,
		From: "confirmed", To: "pending",
	})
	require.NoError(t, consumer.Process(ctx, enums.EventOrderStatusChanged, backToPending))
	assert.Len(t, sender.sent, 1)
}

func TestProcessSkipsDuplicates(t *testing.T) {
	customerID := uuid.New()
	sender := &stubSender{}
	customers := &stubCustomers{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Toko Kelapa", Phone: "628123456789"},
	}}
	consumer := newNotifyConsumer(t, sender, customers, newStubIdempotency())
	ctx := context.Background()

	envelope := envelopeFor(t, orderCreatedData{
		OrderID: uuid.New(), OrderNumber: 1042, CustomerID: customerID, ItemCount: 1,
	})
	require.NoError(t, consumer.Process(ctx, enums.EventOrderCreated, envelope))
	require.NoError(t, consumer.Process(ctx, enums.EventOrderCreated, envelope))
	assert.Len(t, sender.sent, 1)
}

func TestProcessReleasesMarkerOnSendFailure(t *testing.T) {
	customerID := uuid.New()
	sender := &stubSender{sendErr: context.DeadlineExceeded}
	customers := &stubCustomers{customers: map[uuid.UUID]*models.Customer{
		customerID: {ID: customerID, Name: "Toko Kelapa", Phone: "628123456789"},
	}}
	idem := newStubIdempotency()
	consumer := newNotifyConsumer(t, sender, customers, idem)

	envelope := envelopeFor(t, orderCreatedData{
		OrderID: uuid.New(), OrderNumber: 1042, CustomerID: customerID, ItemCount: 1,
	})
	err := consumer.Process(context.Background(), enums.EventOrderCreated, envelope)
	require.Error(t, err)
	require.Len(t, idem.deleted, 1)

	// a retry can go through once the gateway recovers
	sender.sendErr = nil
	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderCreated, envelope))
	assert.Len(t, sender.sent, 1)
}

func TestProcessDropsWhenCustomerGone(t *testing.T) {
	sender := &stubSender{}
	consumer := newNotifyConsumer(t, sender,
		&stubCustomers{customers: map[uuid.UUID]*models.Customer{}}, newStubIdempotency())

	envelope := envelopeFor(t, orderCreatedData{
		OrderID: uuid.New(), OrderNumber: 1042, CustomerID: uuid.New(), ItemCount: 1,
	})
	require.NoError(t, consumer.Process(context.Background(), enums.EventOrderCreated, envelope))
	assert.Empty(t, sender.sent)
}

func TestProcessIgnoresUnrelatedEvents(t *testing.T) {
	sender := &stubSender{}
	consumer := newNotifyConsumer(t, sender,
		&stubCustomers{customers: map[uuid.UUID]*models.Customer{}}, newStubIdempotency())

	envelope := envelopeFor(t, map[string]any{"invoice_id": uuid.NewString()})
	require.NoError(t, consumer.Process(context.Background(), enums.EventInvoiceIssued, envelope))
	assert.Empty(t, sender.sent)
}
