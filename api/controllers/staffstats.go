package controllers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/api/responses"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/internal/staffstats"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

type performanceDayResponse struct {
	Date                string          `json:"date"`
	PackagesProcessed   int             `json:"packagesProcessed"`
	DeliveriesCompleted int             `json:"deliveriesCompleted"`
	TransfersCreated    int             `json:"transfersCreated"`
	PreAlertsConfirmed  int             `json:"preAlertsConfirmed"`
	NotificationsSent   int             `json:"notificationsSent"`
	RevenueGenerated    decimal.Decimal `json:"revenueGenerated"`
}

type staffActionResponse struct {
	ID        uuid.UUID       `json:"id"`
	Action    string          `json:"action"`
	PackageID *uuid.UUID      `json:"packageId,omitempty"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

func performanceDaysFromModels(rows []models.StaffPerformance) []performanceDayResponse {
	out := make([]performanceDayResponse, 0, len(rows))
	for i := range rows {
		row := &rows[i]
		out = append(out, performanceDayResponse{
			Date:                row.Date.Format("2006-01-02"),
			PackagesProcessed:   row.PackagesProcessed,
			DeliveriesCompleted: row.DeliveriesCompleted,
			TransfersCreated:    row.TransfersCreated,
			PreAlertsConfirmed:  row.PreAlertsConfirmed,
			NotificationsSent:   row.NotificationsSent,
			RevenueGenerated:    row.RevenueGenerated,
		})
	}
	return out
}

// StaffPerformance returns a staff member's daily counters for a date range.
func StaffPerformance(recorder *staffstats.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if recorder == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff stats unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		staffID, err := validators.ParsePathUUID(chi.URLParam(r, "staffId"), "staffId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		from, err := parseDateQuery(r, "from")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := parseDateQuery(r, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actor := staffstats.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
		rows, err := recorder.Performance(ctx, staffID, from, to.AddDate(0, 0, 1), actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, performanceDaysFromModels(rows))
	}
}

// StaffRecentActions returns a staff member's newest action log entries.
func StaffRecentActions(recorder *staffstats.Recorder, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if recorder == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "staff stats unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		staffID, err := validators.ParsePathUUID(chi.URLParam(r, "staffId"), "staffId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 100)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actor := staffstats.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
		actions, err := recorder.RecentActions(ctx, staffID, limit, actor)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := make([]staffActionResponse, 0, len(actions))
		for i := range actions {
			action := &actions[i]
			resp = append(resp, staffActionResponse{
				ID:        action.ID,
				Action:    action.Action,
				PackageID: action.PackageID,
				Details:   action.Details,
				CreatedAt: action.CreatedAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}
