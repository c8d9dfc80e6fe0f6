package orders

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/cocotrade/ops-backend/api/middleware"
	"github.com/cocotrade/ops-backend/api/responses"
	"github.com/cocotrade/ops-backend/api/validators"
	internalorders "github.com/cocotrade/ops-backend/internal/orders"
	"github.com/cocotrade/ops-backend/pkg/enums"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
	"github.com/cocotrade/ops-backend/pkg/pagination"
)

type itemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Qty       int             `json:"qty" validate:"required,min=1"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type createRequest struct {
	CustomerID  uuid.UUID     `json:"customer_id" validate:"required"`
	BatchID     uuid.UUID     `json:"batch_id" validate:"required"`
	Expedition  *string       `json:"expedition,omitempty"`
	Description *string       `json:"description,omitempty"`
	Items       []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type updateRequest struct {
	CustomerID  uuid.UUID     `json:"customer_id" validate:"required"`
	BatchID     uuid.UUID     `json:"batch_id" validate:"required"`
	Expedition  *string       `json:"expedition,omitempty"`
	Description *string       `json:"description,omitempty"`
	Items       []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
}

type shipmentRequest struct {
	Expedition  *string `json:"expedition,omitempty"`
	Description *string `json:"description,omitempty"`
}

func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		filters, err := buildFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
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

func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var body createRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole := actor(r)
		order, err := svc.Create(r.Context(), internalorders.CreateInput{
			CustomerID:  body.CustomerID,
			BatchID:     body.BatchID,
			Expedition:  body.Expedition,
			Description: body.Description,
			Items:       buildItems(body.Items),
			ActorUserID: actorID,
			ActorRole:   actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func Update(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body updateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole := actor(r)
		order, err := svc.Update(r.Context(), internalorders.UpdateInput{
			OrderID:     id,
			CustomerID:  body.CustomerID,
			BatchID:     body.BatchID,
			Expedition:  body.Expedition,
			Description: body.Description,
			Items:       buildItems(body.Items),
			ActorUserID: actorID,
			ActorRole:   actorRole,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, order)
	}
}

func Delete(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole := actor(r)
		if err := svc.Delete(r.Context(), internalorders.DeleteInput{
			OrderID:     id,
			ActorUserID: actorID,
			ActorRole:   actorRole,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// UpdateStatus moves the order between pending, confirmed and cancelled.
func UpdateStatus(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body statusRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(body.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		actorID, actorRole := actor(r)
		if err := svc.UpdateStatus(r.Context(), internalorders.StatusInput{
			OrderID:     id,
			Status:      status,
			ActorUserID: actorID,
			ActorRole:   actorRole,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

// Cancel moves the order to cancelled and restores allocated stock.
func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return setStatus(svc, logg, enums.OrderStatusCancelled)
}

// Reinstate returns a cancelled order to pending, deducting stock again.
func Reinstate(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return setStatus(svc, logg, enums.OrderStatusPending)
}

func setStatus(svc internalorders.Service, logg *logger.Logger, status enums.OrderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actorID, actorRole := actor(r)
		if err := svc.UpdateStatus(r.Context(), internalorders.StatusInput{
			OrderID:     id,
			Status:      status,
			ActorUserID: actorID,
			ActorRole:   actorRole,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": string(status)})
	}
}

// UpdateShipment edits the delivery fields without touching stock.
func UpdateShipment(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		id, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body shipmentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.UpdateShipment(r.Context(), internalorders.ShipmentInput{
			OrderID:     id,
			Expedition:  body.Expedition,
			Description: body.Description,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "updated"})
	}
}

func buildItems(items []itemRequest) []internalorders.ItemInput {
	converted := make([]internalorders.ItemInput, 0, len(items))
	for _, item := range items {
		converted = append(converted, internalorders.ItemInput{
			ProductID: item.ProductID,
			Qty:       item.Qty,
			UnitPrice: item.UnitPrice,
		})
	}
	return converted
}

func buildFilters(r *http.Request) (internalorders.Filters, error) {
	filters := internalorders.Filters{
		Query: strings.TrimSpace(r.URL.Query().Get("q")),
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return filters, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status")
		}
		filters.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("customer_id")); raw != "" {
		id, err := validators.ParsePathUUID(raw, "customer_id")
		if err != nil {
			return filters, err
		}
		filters.CustomerID = &id
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("batch_id")); raw != "" {
		id, err := validators.ParsePathUUID(raw, "batch_id")
		if err != nil {
			return filters, err
		}
		filters.BatchID = &id
	}

	from, err := validators.ParseQueryDate(r, "date_from")
	if err != nil {
		return filters, err
	}
	filters.DateFrom = from

	to, err := validators.ParseQueryDate(r, "date_to")
	if err != nil {
		return filters, err
	}
	filters.DateTo = to

	return filters, nil
}

func actor(r *http.Request) (uuid.UUID, string) {
	id, _ := uuid.Parse(middleware.UserIDFromContext(r.Context()))
	return id, middleware.RoleFromContext(r.Context())
}
