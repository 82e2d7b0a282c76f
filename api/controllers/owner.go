package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/api/middleware"
	"github.com/leasewise/leasewise-backend/api/responses"
	"github.com/leasewise/leasewise-backend/api/validators"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

// requireOwner resolves the authenticated owner or writes a 401.
func requireOwner(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (uuid.UUID, bool) {
	ownerID, ok := middleware.OwnerIDFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return uuid.Nil, false
	}
	return ownerID, true
}

// requireParam parses a UUID path parameter or writes a 400.
func requireParam(w http.ResponseWriter, r *http.Request, logg *logger.Logger, key string) (uuid.UUID, bool) {
	id, err := validators.ParseUUIDParam(r, key)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return uuid.Nil, false
	}
	return id, true
}
