package outreach

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

type stubGateway struct {
	sessions    []whatsapp.Session
	sent        []whatsapp.SendTextRequest
	failPhones  map[string]bool
	deletedIDs  []string
	createdIDs  []string
	startedIDs  []string
}

func (g *stubGateway) Sessions(context.Context) ([]whatsapp.Session, error) {
	return g.sessions, nil
}

func (g *stubGateway) CreateSession(_ context.Context, id string) error {
	g.createdIDs = append(g.createdIDs, id)
	return nil
}

func (g *stubGateway) StartSession(_ context.Context, id string) error {
	g.startedIDs = append(g.startedIDs, id)
	return nil
}

func (g *stubGateway) QRString(context.Context, string) (string, error) {
	return "qr-data", nil
}

func (g *stubGateway) Status(_ context.Context, id string) (*whatsapp.Session, error) {
	return &whatsapp.Session{ID: id, Connected: true}, nil
}

func (g *stubGateway) DeleteSession(_ context.Context, id string) error {
	g.deletedIDs = append(g.deletedIDs, id)
	return nil
}

func (g *stubGateway) SendText(_ context.Context, req whatsapp.SendTextRequest) error {
	if g.failPhones[req.To] {
		return pkgerrors.New(pkgerrors.CodeDependency, "gateway send failed")
	}
	g.sent = append(g.sent, req)
	return nil
}

type stubCustomers struct {
	rows []models.Customer
	err  error
}

func (s *stubCustomers) FindByIDs(context.Context, []uuid.UUID) ([]models.Customer, error) {
	return s.rows, s.err
}

func customerRow(name, phone string) models.Customer {
	return models.Customer{ID: uuid.New(), Name: name, Phone: phone}
}

func TestBroadcastAllDelivered(t *testing.T) {
	gw := &stubGateway{}
	customers := &stubCustomers{rows: []models.Customer{
		customerRow("Toko Alpha", "628100000001"),
		customerRow("Toko Beta", "628100000002"),
	}}
	svc, err := NewService(gw, customers, nil)
	require.NoError(t, err)

	result, err := svc.Broadcast(context.Background(), BroadcastInput{
		SessionID:   "ops",
		CustomerIDs: []uuid.UUID{uuid.New(), uuid.New()},
		Text:        "Stok copra batch baru sudah tersedia",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	assert.Empty(t, result.Failures)
	require.Len(t, gw.sent, 2)
	assert.Equal(t, "ops", gw.sent[0].Session)
	assert.Equal(t, "628100000001", gw.sent[0].To)
}

func TestBroadcastPartialFailure(t *testing.T) {
	gw := &stubGateway{failPhones: map[string]bool{"628100000002": true}}
	customers := &stubCustomers{rows: []models.Customer{
		customerRow("Toko Alpha", "628100000001"),
		customerRow("Toko Beta", "628100000002"),
		customerRow("Toko Gamma", "628100000003"),
	}}
	svc, err := NewService(gw, customers, nil)
	require.NoError(t, err)

	result, err := svc.Broadcast(context.Background(), BroadcastInput{
		SessionID:   "ops",
		CustomerIDs: []uuid.UUID{uuid.New(), uuid.New(), uuid.New()},
		Text:        "Pengiriman besok pagi",
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Sent)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "628100000002", result.Failures[0].Phone)
	assert.Contains(t, result.Failures[0].Reason, "gateway send failed")
}

func TestBroadcastTotalFailure(t *testing.T) {
	gw := &stubGateway{failPhones: map[string]bool{"628100000001": true}}
	customers := &stubCustomers{rows: []models.Customer{
		customerRow("Toko Alpha", "628100000001"),
	}}
	svc, err := NewService(gw, customers, nil)
	require.NoError(t, err)

	result, err := svc.Broadcast(context.Background(), BroadcastInput{
		SessionID:   "ops",
		CustomerIDs: []uuid.UUID{uuid.New()},
		Text:        "halo",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeDependency, appErr.Code())
	require.NotNil(t, result)
	assert.Zero(t, result.Sent)
	assert.Len(t, result.Failures, 1)
}

func TestBroadcastValidation(t *testing.T) {
	svc, err := NewService(&stubGateway{}, &stubCustomers{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	cases := []BroadcastInput{
		{CustomerIDs: []uuid.UUID{uuid.New()}, Text: "halo"},
		{SessionID: "ops", CustomerIDs: []uuid.UUID{uuid.New()}},
		{SessionID: "ops", Text: "halo"},
	}
	for i, input := range cases {
		_, err := svc.Broadcast(ctx, input)
		appErr := pkgerrors.As(err)
		require.NotNil(t, appErr, fmt.Sprintf("case %d", i))
		assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
	}
}

func TestBroadcastNoMatchingCustomers(t *testing.T) {
	svc, err := NewService(&stubGateway{}, &stubCustomers{rows: nil}, nil)
	require.NoError(t, err)

	_, err = svc.Broadcast(context.Background(), BroadcastInput{
		SessionID:   "ops",
		CustomerIDs: []uuid.UUID{uuid.New()},
		Text:        "halo",
	})
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestSessionPassthrough(t *testing.T) {
	gw := &stubGateway{sessions: []whatsapp.Session{{ID: "ops", Connected: true}}}
	svc, err := NewService(gw, &stubCustomers{}, nil)
	require.NoError(t, err)
	ctx := context.Background()

	sessions, err := svc.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	require.NoError(t, svc.CreateSession(ctx, "ops"))
	require.NoError(t, svc.StartSession(ctx, "ops"))
	require.NoError(t, svc.DeleteSession(ctx, "ops"))
	assert.Equal(t, []string{"ops"}, gw.createdIDs)
	assert.Equal(t, []string{"ops"}, gw.startedIDs)
	assert.Equal(t, []string{"ops"}, gw.deletedIDs)

	qr, err := svc.QRString(ctx, "ops")
	require.NoError(t, err)
	assert.Equal(t, "qr-data", qr)

	err = svc.CreateSession(ctx, "  ")
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())
}
