package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/leasewise/leasewise-backend/api/responses"
	"github.com/leasewise/leasewise-backend/api/validators"
	"github.com/leasewise/leasewise-backend/internal/schedules"
	"github.com/leasewise/leasewise-backend/pkg/db/models"
	pkgerrors "github.com/leasewise/leasewise-backend/pkg/errors"
	"github.com/leasewise/leasewise-backend/pkg/logger"
	"github.com/leasewise/leasewise-backend/pkg/pagination"
)

func schedulesUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "schedules service unavailable"))
}

// CreateSchedule registers a new recurring report for the caller.
func CreateSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		var def schedules.Definition
		if err := validators.DecodeJSONBody(r, &def); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Create(r.Context(), ownerID, def)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, schedules.NewScheduleDTO(*schedule))
	}
}

// ListSchedules pages through the caller's schedules, optionally filtered by status.
func ListSchedules(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.List(r.Context(), schedules.ListParams{
			OwnerID: ownerID,
			Status:  strings.TrimSpace(r.URL.Query().Get("status")),
			Limit:   limit,
			Cursor:  strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func GetSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		schedule, err := svc.Get(r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedules.NewScheduleDTO(*schedule))
	}
}

// UpdateSchedule applies a partial update and recomputes the next send time.
func UpdateSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		var input schedules.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		schedule, err := svc.Update(r.Context(), ownerID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedules.NewScheduleDTO(*schedule))
	}
}

func DeleteSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		if err := svc.Delete(r.Context(), ownerID, id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func PauseSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return scheduleTransition(svc, logg, schedules.Service.Pause)
}

func ResumeSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return scheduleTransition(svc, logg, schedules.Service.Resume)
}

type scheduleAction func(schedules.Service, context.Context, uuid.UUID, uuid.UUID) (*models.Schedule, error)

func scheduleTransition(svc schedules.Service, logg *logger.Logger, action scheduleAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		schedule, err := action(svc, r.Context(), ownerID, id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, schedules.NewScheduleDTO(*schedule))
	}
}

// TestSendSchedule renders and delivers the report immediately without
// touching the schedule's cadence.
func TestSendSchedule(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		var input schedules.TestSendInput
		if err := validators.DecodeOptionalJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.TestSend(r.Context(), ownerID, id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}

func ListScheduleDeliveries(svc schedules.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			schedulesUnavailable(w, r, logg)
			return
		}
		ownerID, ok := requireOwner(w, r, logg)
		if !ok {
			return
		}
		id, ok := requireParam(w, r, logg, "scheduleId")
		if !ok {
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resp, err := svc.Deliveries(r.Context(), ownerID, id, pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resp)
	}
}
