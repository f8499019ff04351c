package prealerts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

func setupPreAlertTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	prealerts := `
CREATE TABLE IF NOT EXISTS prealerts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  courier TEXT NOT NULL DEFAULT '',
  carrier_tracking TEXT NOT NULL,
  description TEXT NOT NULL,
  declared_value TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'unconfirmed',
  receipt_object_path TEXT,
  package_id TEXT,
  confirmed_by TEXT,
  confirmed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(prealerts).Error)
	return db
}

func insertPreAlert(t *testing.T, repo Repository, userID uuid.UUID, createdAt time.Time) *models.PreAlert {
	t.Helper()
	record := &models.PreAlert{
		ID:              uuid.New(),
		UserID:          userID,
		Courier:         "FedEx",
		CarrierTracking: "1Z999",
		Description:     "Shoes",
		DeclaredValue:   decimal.NewFromFloat(49.99),
		Status:          enums.PreAlertStatusUnconfirmed,
		CreatedAt:       createdAt,
	}
	created, err := repo.Create(context.Background(), record)
	require.NoError(t, err)
	return created
}

func TestRepoCreateAndFind(t *testing.T) {
	db := setupPreAlertTestDB(t)
	repo := NewRepository(db)

	record := insertPreAlert(t, repo, uuid.New(), time.Now())

	found, err := repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, record.ID, found.ID)
	assert.Equal(t, enums.PreAlertStatusUnconfirmed, found.Status)

	_, err = repo.FindByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestRepoListFiltersAndPaginates(t *testing.T) {
	db := setupPreAlertTestDB(t)
	repo := NewRepository(db)

	owner := uuid.New()
	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		insertPreAlert(t, repo, owner, base.Add(time.Duration(i)*time.Minute))
	}
	insertPreAlert(t, repo, uuid.New(), base)

	list, err := repo.List(context.Background(), pagination.Params{Limit: 2}, ListFilters{UserID: &owner})
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	require.NotEmpty(t, list.NextCursor)
	assert.True(t, list.Items[0].CreatedAt.After(list.Items[1].CreatedAt))

	next, err := repo.List(context.Background(), pagination.Params{Limit: 2, Cursor: list.NextCursor}, ListFilters{UserID: &owner})
	require.NoError(t, err)
	require.Len(t, next.Items, 1)
	assert.Empty(t, next.NextCursor)

	confirmed := enums.PreAlertStatusConfirmed
	empty, err := repo.List(context.Background(), pagination.Params{}, ListFilters{UserID: &owner, Status: &confirmed})
	require.NoError(t, err)
	assert.Empty(t, empty.Items)
}

func TestRepoUpdateAndDelete(t *testing.T) {
	db := setupPreAlertTestDB(t)
	repo := NewRepository(db)

	record := insertPreAlert(t, repo, uuid.New(), time.Now())

	packageID := uuid.New()
	err := repo.Update(context.Background(), record.ID, map[string]any{
		"status":     enums.PreAlertStatusConfirmed,
		"package_id": packageID,
	})
	require.NoError(t, err)

	found, err := repo.FindByID(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.PreAlertStatusConfirmed, found.Status)
	require.NotNil(t, found.PackageID)
	assert.Equal(t, packageID, *found.PackageID)

	require.NoError(t, repo.Delete(context.Background(), record.ID))
	_, err = repo.FindByID(context.Background(), record.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
