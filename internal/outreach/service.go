package outreach

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/whatsapp"
)

type gateway interface {
	Sessions(ctx context.Context) ([]whatsapp.Session, error)
	CreateSession(ctx context.Context, id string) error
	StartSession(ctx context.Context, id string) error
	QRString(ctx context.Context, id string) (string, error)
	Status(ctx context.Context, id string) (*whatsapp.Session, error)
	DeleteSession(ctx context.Context, id string) error
	SendText(ctx context.Context, req whatsapp.SendTextRequest) error
}

type customerReader interface {
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Customer, error)
}

// Service exposes messaging gateway sessions and customer broadcasts.
type Service interface {
	Sessions(ctx context.Context) ([]whatsapp.Session, error)
	CreateSession(ctx context.Context, id string) error
	StartSession(ctx context.Context, id string) error
	QRString(ctx context.Context, id string) (string, error)
	Status(ctx context.Context, id string) (*whatsapp.Session, error)
	DeleteSession(ctx context.Context, id string) error
	Broadcast(ctx context.Context, input BroadcastInput) (*BroadcastResult, error)
}

type service struct {
	gateway   gateway
	customers customerReader
	logg      *logger.Logger
}

// NewService constructs an outreach service instance.
func NewService(gw gateway, customers customerReader, logg *logger.Logger) (Service, error) {
	if gw == nil {
		return nil, fmt.Errorf("messaging gateway required")
	}
	if customers == nil {
		return nil, fmt.Errorf("customer reader required")
	}
	return &service{gateway: gw, customers: customers, logg: logg}, nil
}

func (s *service) Sessions(ctx context.Context) ([]whatsapp.Session, error) {
	return s.gateway.Sessions(ctx)
}

func (s *service) CreateSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.gateway.CreateSession(ctx, id)
}

func (s *service) StartSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.gateway.StartSession(ctx, id)
}

func (s *service) QRString(ctx context.Context, id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.gateway.QRString(ctx, id)
}

func (s *service) Status(ctx context.Context, id string) (*whatsapp.Session, error) {
	if strings.TrimSpace(id) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.gateway.Status(ctx, id)
}

func (s *service) DeleteSession(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	return s.gateway.DeleteSession(ctx, id)
}

// Broadcast delivers the text to every resolved customer. Per-recipient
// failures are collected instead of aborting the run; the caller gets the
// partial result either way.
func (s *service) Broadcast(ctx context.Context, input BroadcastInput) (*BroadcastResult, error) {
	if strings.TrimSpace(input.SessionID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id required")
	}
	if strings.TrimSpace(input.Text) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "broadcast text required")
	}
	if len(input.CustomerIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one customer required")
	}

	recipients, err := s.customers.FindByIDs(ctx, input.CustomerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customers")
	}
	if len(recipients) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no matching customers")
	}

	result := &BroadcastResult{}
	var sendErrs error
	for _, customer := range recipients {
		err := s.gateway.SendText(ctx, whatsapp.SendTextRequest{
			Session: input.SessionID,
			To:      customer.Phone,
			Text:    input.Text,
		})
		if err != nil {
			sendErrs = multierr.Append(sendErrs, fmt.Errorf("customer %s: %w", customer.ID, err))
			result.Failures = append(result.Failures, BroadcastFailure{
				CustomerID: customer.ID,
				Phone:      customer.Phone,
				Reason:     err.Error(),
			})
			continue
		}
		result.Sent++
	}

	if sendErrs != nil && s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"sent":   result.Sent,
			"failed": len(result.Failures),
		})
		s.logg.Warn(logCtx, "broadcast finished with failures")
	}
	if result.Sent == 0 {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, sendErrs, "broadcast failed for all recipients")
	}
	return result, nil
}

// CustomerRepository resolves broadcast recipients.
type CustomerRepository struct {
	db *gorm.DB
}

// NewCustomerRepository builds the recipient lookup used by Broadcast.
func NewCustomerRepository(db *gorm.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

func (r *CustomerRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Customer, error) {
	var rows []models.Customer
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
