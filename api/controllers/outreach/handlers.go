package outreach

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/api/responses"
	"github.com/cocotrade/ops-backend/api/validators"
	internaloutreach "github.com/cocotrade/ops-backend/internal/outreach"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
)

type sessionRequest struct {
	ID string `json:"id" validate:"required"`
}

type broadcastRequest struct {
	SessionID   string      `json:"session_id" validate:"required"`
	CustomerIDs []uuid.UUID `json:"customer_ids" validate:"required,min=1"`
	Text        string      `json:"text" validate:"required"`
}

func Sessions(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		sessions, err := svc.Sessions(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{"sessions": sessions})
	}
}

func CreateSession(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		var body sessionRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.CreateSession(r.Context(), body.ID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"id": body.ID})
	}
}

func StartSession(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if err := svc.StartSession(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "starting"})
	}
}

func QR(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		qr, err := svc.QRString(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"qr": qr})
	}
}

func Status(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		session, err := svc.Status(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, session)
	}
}

func DeleteSession(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		id := strings.TrimSpace(chi.URLParam(r, "sessionId"))
		if err := svc.DeleteSession(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// Broadcast sends a text to a set of customers and reports per-recipient failures.
func Broadcast(svc internaloutreach.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "outreach service unavailable"))
			return
		}

		var body broadcastRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Broadcast(r.Context(), internaloutreach.BroadcastInput{
			SessionID:   body.SessionID,
			CustomerIDs: body.CustomerIDs,
			Text:        body.Text,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
