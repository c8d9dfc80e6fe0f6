package invoices

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/cocotrade/ops-backend/pkg/db/models"
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/outbox"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

const defaultPaymentMethod = "transfer"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes invoicing operations.
type Service interface {
	CreateFromOrder(ctx context.Context, input CreateInput) (*models.Invoice, error)
	RecordPayment(ctx context.Context, input PaymentInput) (*models.Invoice, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, params pagination.Params, filters Filters) (*List, error)
}

type service struct {
	repo   *Repository
	tx     txRunner
	outbox outboxPublisher
}

// NewService constructs an invoice service instance.
func NewService(repo *Repository, tx txRunner, outboxSvc outboxPublisher) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("invoice repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{repo: repo, tx: tx, outbox: outboxSvc}, nil
}

func (s *service) CreateFromOrder(ctx context.Context, input CreateInput) (*models.Invoice, error) {
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}

	var invoiceID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		order, err := repo.FindOrder(ctx, input.OrderID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "cancelled order cannot be invoiced")
		}
		if _, err := repo.FindByOrderID(ctx, input.OrderID); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("order #%d already has an invoice", order.OrderNumber))
		} else if err != gorm.ErrRecordNotFound {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check existing invoice")
		}

		seq, err := repo.NextInvoiceSequence(ctx)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate invoice number")
		}

		total := decimal.Zero
		for _, item := range order.Items {
			total = total.Add(item.Subtotal())
		}

		invoice := &models.Invoice{
			ID:            uuid.New(),
			OrderID:       order.ID,
			Number:        fmt.Sprintf("INV-%06d", seq),
			IssuedAt:      time.Now().UTC(),
			DueAt:         input.DueAt,
			TotalAmount:   total,
			PaidAmount:    decimal.Zero,
			BankAccountID: input.BankAccountID,
		}
		if _, err := repo.Create(ctx, invoice); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert invoice")
		}
		invoiceID = invoice.ID

		event := outbox.DomainEvent{
			EventType:     enums.EventInvoiceIssued,
			AggregateType: enums.AggregateInvoice,
			AggregateID:   invoice.ID,
			Version:       1,
			Data: IssuedEvent{
				InvoiceID:   invoice.ID,
				Number:      invoice.Number,
				OrderID:     order.ID,
				TotalAmount: total,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit invoice event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, invoiceID)
}

func (s *service) RecordPayment(ctx context.Context, input PaymentInput) (*models.Invoice, error) {
	if input.InvoiceID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice id required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment amount must be positive")
	}
	paidAt := input.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}
	method := strings.TrimSpace(input.Method)
	if method == "" {
		method = defaultPaymentMethod
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		invoice, err := repo.FindByID(ctx, input.InvoiceID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				return pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
		}

		outstanding := invoice.Outstanding()
		if input.Amount.GreaterThan(outstanding) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment %s exceeds outstanding %s on %s",
					input.Amount, outstanding, invoice.Number)).
				WithDetails(map[string]any{
					"invoice_id":  invoice.ID,
					"outstanding": outstanding,
				})
		}

		payment := &models.PaymentLog{
			ID:        uuid.New(),
			InvoiceID: invoice.ID,
			Amount:    input.Amount,
			PaidAt:    paidAt,
			Method:    method,
			Reference: input.Reference,
		}
		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}

		paid := invoice.PaidAmount.Add(input.Amount)
		if err := repo.UpdatePaidAmount(ctx, invoice.ID, paid); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update paid amount")
		}

		if paid.Equal(invoice.TotalAmount) {
			event := outbox.DomainEvent{
				EventType:     enums.EventInvoicePaid,
				AggregateType: enums.AggregateInvoice,
				AggregateID:   invoice.ID,
				Version:       1,
				Data: PaidEvent{
					InvoiceID:  invoice.ID,
					Number:     invoice.Number,
					PaidAmount: paid,
				},
			}
			if err := s.outbox.Emit(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit paid event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, input.InvoiceID)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Invoice, error) {
	invoice, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invoice not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invoice")
	}
	return invoice, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters Filters) (*List, error) {
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list invoices")
	}
	return list, nil
}
