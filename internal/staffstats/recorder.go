package staffstats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

const defaultActionLimit = 50

// Actor carries the authenticated caller identity into read operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
	Branch *string
}

// Recorder writes the staff activity log and daily rollups. Writes are
// best-effort: failures are logged and never surface to the request that
// triggered them.
type Recorder struct {
	repo Repository
	logg *logger.Logger
}

// NewRecorder builds a staff activity recorder.
func NewRecorder(repo Repository, logg *logger.Logger) (*Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("staffstats repository required")
	}
	return &Recorder{repo: repo, logg: logg}, nil
}

func (r *Recorder) PreAlertConfirmed(ctx context.Context, staffID, packageID uuid.UUID) {
	r.record(ctx, staffID, "prealert_confirmed", &packageID, nil, Delta{PreAlertsConfirmed: 1})
}

func (r *Recorder) PackageProcessed(ctx context.Context, staffID, packageID uuid.UUID, status enums.PackageStatus) {
	r.record(ctx, staffID, "package_status_update", &packageID, map[string]any{
		"status": status,
	}, Delta{PackagesProcessed: 1})
}

func (r *Recorder) TransferCreated(ctx context.Context, staffID, transferID uuid.UUID) {
	r.record(ctx, staffID, "transfer_created", nil, map[string]any{
		"transferId": transferID,
	}, Delta{TransfersCreated: 1})
}

func (r *Recorder) DeliveryCompleted(ctx context.Context, staffID, packageID uuid.UUID, amount decimal.Decimal) {
	r.record(ctx, staffID, "package_delivered", &packageID, map[string]any{
		"amount": amount,
	}, Delta{DeliveriesCompleted: 1, Revenue: amount})
}

func (r *Recorder) NotificationSent(ctx context.Context, staffID uuid.UUID) {
	r.record(ctx, staffID, "notification_sent", nil, nil, Delta{NotificationsSent: 1})
}

// Performance returns the staff member's daily rollups in [from, to). Staff
// may read their own rollups; admins may read anyone's.
func (r *Recorder) Performance(ctx context.Context, staffID uuid.UUID, from, to time.Time, actor Actor) ([]models.StaffPerformance, error) {
	if err := r.authorizeRead(staffID, actor); err != nil {
		return nil, err
	}
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range is empty")
	}
	rows, err := r.repo.DailyRange(ctx, staffID, from, to)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff performance")
	}
	return rows, nil
}

// RecentActions returns the staff member's most recent logged actions.
func (r *Recorder) RecentActions(ctx context.Context, staffID uuid.UUID, limit int, actor Actor) ([]models.StaffAction, error) {
	if err := r.authorizeRead(staffID, actor); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = defaultActionLimit
	}
	rows, err := r.repo.ListActions(ctx, staffID, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff actions")
	}
	return rows, nil
}

func (r *Recorder) authorizeRead(staffID uuid.UUID, actor Actor) error {
	if !actor.Role.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot view staff activity")
	}
	if staffID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if staffID != actor.UserID &&
		actor.Role != enums.RoleAdmin && actor.Role != enums.RoleSuperAdmin {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller can only view their own activity")
	}
	return nil
}

func (r *Recorder) record(ctx context.Context, staffID uuid.UUID, action string, packageID *uuid.UUID, details map[string]any, delta Delta) {
	var payload json.RawMessage
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			r.warn(ctx, action, err)
		} else {
			payload = raw
		}
	}

	if err := r.repo.InsertAction(ctx, &models.StaffAction{
		StaffID:   staffID,
		Action:    action,
		PackageID: packageID,
		Details:   payload,
	}); err != nil {
		r.warn(ctx, action, err)
	}

	if err := r.repo.BumpDaily(ctx, staffID, dateOf(time.Now()), delta); err != nil {
		r.warn(ctx, action, err)
	}
}

func (r *Recorder) warn(ctx context.Context, action string, err error) {
	if r.logg == nil {
		return
	}
	ctx = r.logg.WithFields(ctx, map[string]any{
		"action": action,
		"error":  err.Error(),
	})
	r.logg.Warn(ctx, "staff activity write failed")
}

func dateOf(at time.Time) time.Time {
	return time.Date(at.Year(), at.Month(), at.Day(), 0, 0, 0, 0, time.UTC)
}
