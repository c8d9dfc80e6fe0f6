package invoices

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cocotrade/ops-backend/api/responses"
	"github.com/cocotrade/ops-backend/api/validators"
	internalinvoices "github.com/cocotrade/ops-backend/internal/invoices"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

type createRequest struct {
	OrderID       uuid.UUID  `json:"order_id" validate:"required"`
	DueAt         *time.Time `json:"due_at,omitempty"`
	BankAccountID *uuid.UUID `json:"bank_account_id,omitempty"`
}

type paymentRequest struct {
	Amount    decimal.Decimal `json:"amount" validate:"required"`
	PaidAt    *time.Time      `json:"paid_at,omitempty"`
	Method    string          `json:"method,omitempty"`
	Reference *string         `json:"reference,omitempty"`
}

func List(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalinvoices.Filters{
			UnpaidOnly: r.URL.Query().Get("unpaid") == "true",
			Query:      strings.TrimSpace(r.URL.Query().Get("q")),
		}

		list, err := svc.List(r.Context(), pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		}, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, list)
	}
}

// Create issues an invoice for an order.
func Create(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.CreateFromOrder(r.Context(), internalinvoices.CreateInput{
			OrderID:       body.OrderID,
			DueAt:         body.DueAt,
			BankAccountID: body.BankAccountID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, invoice)
	}
}

func Detail(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceId"), "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoice, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}

// RecordPayment applies a payment against an invoice.
func RecordPayment(svc internalinvoices.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "invoices service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "invoiceId"), "invoiceId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body paymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalinvoices.PaymentInput{
			InvoiceID: id,
			Amount:    body.Amount,
			Method:    body.Method,
			Reference: body.Reference,
		}
		if body.PaidAt != nil {
			input.PaidAt = *body.PaidAt
		}

		invoice, err := svc.RecordPayment(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, invoice)
	}
}
