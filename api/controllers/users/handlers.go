package users

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/cocotrade/ops-backend/api/middleware"
	"github.com/cocotrade/ops-backend/api/responses"
	internalusers "github.com/cocotrade/ops-backend/internal/users"
	pkgerrors "github.com/cocotrade/ops-backend/pkg/errors"
	"github.com/cocotrade/ops-backend/pkg/logger"
)

// Me returns the profile of the authenticated operator.
func Me(repo *internalusers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users repository unavailable"))
			return
		}

		userID, err := uuid.Parse(middleware.UserIDFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing user identity"))
			return
		}

		user, err := repo.FindByID(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "user not found"))
			return
		}

		responses.WriteSuccess(w, map[string]any{"user": internalusers.FromModel(user)})
	}
}

// List returns every operator account. Admin only.
func List(repo *internalusers.Repository, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if repo == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "users repository unavailable"))
			return
		}

		rows, err := repo.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users"))
			return
		}

		dtos := make([]internalusers.UserDTO, 0, len(rows))
		for i := range rows {
			dtos = append(dtos, internalusers.FromModel(&rows[i]))
		}

		responses.WriteSuccess(w, map[string]any{"users": dtos})
	}
}
