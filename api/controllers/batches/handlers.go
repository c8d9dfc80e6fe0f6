package batches

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/api/responses"
	"github.com/cocotrade/ops-backend/api/validators"
	internalbatches "github.com/cocotrade/ops-backend/internal/batches"
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

type allocationRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

type createRequest struct {
	Code        string              `json:"code" validate:"required"`
	ReceivedAt  time.Time           `json:"received_at" validate:"required"`
	Notes       *string             `json:"notes,omitempty"`
	Allocations []allocationRequest `json:"allocations" validate:"required,min=1,dive"`
}

type updateRequest struct {
	Code       *string    `json:"code,omitempty"`
	ReceivedAt *time.Time `json:"received_at,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	Status     *string    `json:"status,omitempty"`
}

type allocationUpdateRequest struct {
	InitialQty   int  `json:"initial_qty" validate:"required,min=1"`
	RemainingQty *int `json:"remaining_qty,omitempty"`
}

func List(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters := internalbatches.Filters{
			Query: strings.TrimSpace(r.URL.Query().Get("q")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseBatchStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch status"))
				return
			}
			filters.Status = &status
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

func Create(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocations := make([]internalbatches.AllocationInput, 0, len(body.Allocations))
		for _, a := range body.Allocations {
			allocations = append(allocations, internalbatches.AllocationInput{
				ProductID: a.ProductID,
				Qty:       a.Qty,
			})
		}

		batch, err := svc.Create(r.Context(), internalbatches.CreateInput{
			Code:        body.Code,
			ReceivedAt:  body.ReceivedAt,
			Notes:       body.Notes,
			Allocations: allocations,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

func Detail(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batch)
	}
}

func Update(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalbatches.UpdateInput{
			Code:       body.Code,
			ReceivedAt: body.ReceivedAt,
			Notes:      body.Notes,
		}
		if body.Status != nil {
			status, err := enums.ParseBatchStatus(*body.Status)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid batch status"))
				return
			}
			input.Status = &status
		}

		batch, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, batch)
	}
}

func Delete(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// AddAllocation attaches a new product allocation to an existing batch.
func AddAllocation(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body allocationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.AddAllocation(r.Context(), id, internalbatches.AllocationInput{
			ProductID: body.ProductID,
			Qty:       body.Qty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, allocation)
	}
}

// UpdateAllocation edits an allocation's quantities while preserving reservations.
func UpdateAllocation(svc internalbatches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batches service unavailable"))
			return
		}

		batchID, err := validators.ParsePathUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParsePathUUID(chi.URLParam(r, "productId"), "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body allocationUpdateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		allocation, err := svc.UpdateAllocation(r.Context(), batchID, productID, internalbatches.AllocationUpdate{
			InitialQty:   body.InitialQty,
			RemainingQty: body.RemainingQty,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, allocation)
	}
}
