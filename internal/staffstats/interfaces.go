package staffstats

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
)

// Delta carries the daily counters a single staff action moves.
type Delta struct {
	PackagesProcessed   int
	DeliveriesCompleted int
	TransfersCreated    int
	PreAlertsConfirmed  int
	NotificationsSent   int
	Revenue             decimal.Decimal
}

// Repository persists the append-only action log and the per-day rollups.
type Repository interface {
	InsertAction(ctx context.Context, record *models.StaffAction) error
	// BumpDaily adds the delta to the staff member's rollup for the given day,
	// creating the row when it does not exist yet.
	BumpDaily(ctx context.Context, staffID uuid.UUID, day time.Time, delta Delta) error
	ListActions(ctx context.Context, staffID uuid.UUID, limit int) ([]models.StaffAction, error)
	DailyRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]models.StaffPerformance, error)
}
