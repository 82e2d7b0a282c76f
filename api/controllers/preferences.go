package controllers

import (
	"net/http"

	"github.com/leasewise/leasewise-backend/api/responses"
	"github.com/leasewise/leasewise-backend/api/validators"
	"github.com/leasewise/leasewise-backend/internal/preferences"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
)

func preferencesUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "preferences service unavailable"))
}

// GetPreferences returns the live report preferences, or the defaults when
// nothing has been saved yet.
func GetPreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			preferencesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		resp, err := svc.Get(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

// SavePreferences replaces the live preferences and records a new version.
func SavePreferences(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			preferencesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var input preferences.SnapshotInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		version, err := svc.Save(r.Context(), ownerID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preferences.NewVersionDTO(*version))
	}
}

func ListPreferenceVersions(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			preferencesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		items, err := svc.ListVersions(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"items": items})
	}
}

func RestorePreferenceVersion(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			preferencesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		versionID, ok := requireParam(w, r, logg, "versionId")
		if !ok {
			return
		}

		version, err := svc.Restore(r.Context(), ownerID, versionID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, preferences.NewVersionDTO(*version))
	}
}

// DiffPreferenceVersions compares two versions given as ?from=&to= ids.
func DiffPreferenceVersions(svc preferences.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			preferencesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		fromID, err := validators.ParseUUIDQuery(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		toID, err := validators.ParseUUIDQuery(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.DiffVersions(r.Context(), ownerID, fromID, toID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
