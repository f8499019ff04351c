package outbox

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/enums"
)

func setupOutboxTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	ddl := `
CREATE TABLE IF NOT EXISTS outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`
	require.NoError(t, db.Exec(ddl).Error)
	require.NoError(t, db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ux_outbox_events_event_aggregate
ON outbox_events (event_type, aggregate_type, aggregate_id)
WHERE event_type = 'missing_prealert_notice';`).Error)
	return db
}

func countEvents(t *testing.T, db *gorm.DB, aggregateID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Table("outbox_events").Where("aggregate_id = ?", aggregateID).Count(&count).Error)
	return count
}

func TestEmitAppendsEveryEvent(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventPackageStatusChanged,
		AggregateType: enums.AggregatePackage,
		AggregateID:   aggregateID,
		Data:          map[string]any{"status": "In Transit to Selected Branch"},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		if err := svc.Emit(context.Background(), tx, event); err != nil {
			return err
		}
		return svc.Emit(context.Background(), tx, event)
	}))

	assert.Equal(t, int64(2), countEvents(t, db, aggregateID))
}

func TestEmitIfNotExistsDeduplicatesPerAggregate(t *testing.T) {
	db := setupOutboxTestDB(t)
	svc := NewService(NewRepository(db), nil)

	aggregateID := uuid.New()
	event := DomainEvent{
		EventType:     enums.EventMissingPreAlertNotice,
		AggregateType: enums.AggregatePackage,
		AggregateID:   aggregateID,
		Data:          map[string]any{"message": "no pre-alert on file"},
	}

	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, event)
	}))

	assert.Equal(t, int64(1), countEvents(t, db, aggregateID))

	// A different package still gets its own notice event.
	other := event
	other.AggregateID = uuid.New()
	require.NoError(t, db.Transaction(func(tx *gorm.DB) error {
		return svc.EmitIfNotExists(context.Background(), tx, other)
	}))
	assert.Equal(t, int64(1), countEvents(t, db, other.AggregateID))
}
