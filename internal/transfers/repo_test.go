package transfers

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

	dbpkg "github.com/pongshipping/forwarding-backend/pkg/db"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

func setupTransfersTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS transfers (
  id TEXT PRIMARY KEY,
  destination_branch TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'created',
  notes TEXT,
  created_by TEXT NOT NULL,
  dispatched_by TEXT,
  dispatched_at DATETIME,
  arrived_at DATETIME,
  cancelled_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS transfer_packages (
  id TEXT PRIMARY KEY,
  transfer_id TEXT NOT NULL,
  package_id TEXT NOT NULL,
  checked_off INTEGER NOT NULL DEFAULT 0,
  checked_off_by TEXT,
  checked_off_at DATETIME,
  created_at DATETIME,
  UNIQUE (transfer_id, package_id)
);`,
		`CREATE TABLE IF NOT EXISTS packages (
  id TEXT PRIMARY KEY,
  package_id TEXT NOT NULL UNIQUE,
  tracking_number TEXT NOT NULL UNIQUE,
  user_id TEXT NOT NULL,
  prealert_id TEXT,
  description TEXT NOT NULL,
  dimensions TEXT,
  weight_lbs TEXT NOT NULL,
  cost TEXT NOT NULL,
  final_cost TEXT,
  status TEXT NOT NULL DEFAULT 'Processing',
  branch TEXT NOT NULL,
  version INTEGER NOT NULL DEFAULT 1,
  created_by TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL,
  phone TEXT,
  address TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  branch TEXT,
  is_active INTEGER NOT NULL DEFAULT 1,
  last_login_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	}
	for _, ddl := range statements {
		require.NoError(t, db.Exec(ddl).Error)
	}
	return db
}

func insertTransfer(t *testing.T, repo Repository, status enums.TransferStatus, createdAt time.Time) *models.Transfer {
	t.Helper()
	record := &models.Transfer{
		ID:                uuid.New(),
		DestinationBranch: "Montego Bay",
		Status:            status,
		CreatedBy:         uuid.New(),
		CreatedAt:         createdAt,
	}
	created, err := repo.CreateTransfer(context.Background(), record)
	require.NoError(t, err)
	return created
}

func insertMember(t *testing.T, repo Repository, transferID, packageID uuid.UUID, checked bool) {
	t.Helper()
	record := &models.TransferPackage{
		ID:         uuid.New(),
		TransferID: transferID,
		PackageID:  packageID,
		CheckedOff: checked,
	}
	require.NoError(t, repo.InsertMembership(context.Background(), record))
}

func TestRepoListWithCounts(t *testing.T) {
	db := setupTransfersTestDB(t)
	repo := NewRepository(db)

	record := insertTransfer(t, repo, enums.TransferStatusCreated, time.Now())
	insertMember(t, repo, record.ID, uuid.New(), true)
	insertMember(t, repo, record.ID, uuid.New(), false)

	status := enums.TransferStatusCreated
	list, err := repo.List(context.Background(), pagination.Params{}, ListFilters{Status: &status})
	require.NoError(t, err)
	require.NotEmpty(t, list.Items)

	var found *TransferSummary
	for i := range list.Items {
		if list.Items[i].Transfer.ID == record.ID {
			found = &list.Items[i]
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, 2, found.Packages)
	assert.Equal(t, 1, found.CheckedOff)
}

func TestRepoMembershipUniqueness(t *testing.T) {
	db := setupTransfersTestDB(t)
	repo := NewRepository(db)

	record := insertTransfer(t, repo, enums.TransferStatusCreated, time.Now())
	packageID := uuid.New()
	insertMember(t, repo, record.ID, packageID, false)

	err := repo.InsertMembership(context.Background(), &models.TransferPackage{
		ID:         uuid.New(),
		TransferID: record.ID,
		PackageID:  packageID,
	})
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, ""))
}

func TestRepoActiveMemberships(t *testing.T) {
	db := setupTransfersTestDB(t)
	repo := NewRepository(db)

	active := insertTransfer(t, repo, enums.TransferStatusCreated, time.Now())
	done := insertTransfer(t, repo, enums.TransferStatusDelivered, time.Now())

	claimedPkg := uuid.New()
	releasedPkg := uuid.New()
	insertMember(t, repo, active.ID, claimedPkg, false)
	insertMember(t, repo, done.ID, releasedPkg, true)

	claimed, err := repo.ActiveMemberships(context.Background(), []uuid.UUID{claimedPkg, releasedPkg}, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{claimedPkg}, claimed)

	claimed, err = repo.ActiveMemberships(context.Background(), []uuid.UUID{claimedPkg}, &active.ID)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestRepoCountUnchecked(t *testing.T) {
	db := setupTransfersTestDB(t)
	repo := NewRepository(db)

	record := insertTransfer(t, repo, enums.TransferStatusCreated, time.Now())
	insertMember(t, repo, record.ID, uuid.New(), true)
	insertMember(t, repo, record.ID, uuid.New(), false)
	insertMember(t, repo, record.ID, uuid.New(), false)

	count, err := repo.CountUnchecked(context.Background(), record.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestRepoListMembershipsIncludesCustomer(t *testing.T) {
	db := setupTransfersTestDB(t)
	repo := NewRepository(db)

	customer := &models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Andre",
		LastName:     "Campbell",
		Role:         enums.RoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, db.Create(customer).Error)

	pkg := &models.Package{
		ID:             uuid.New(),
		PackageID:      "PKG" + uuid.NewString()[:6],
		TrackingNumber: "TRK" + uuid.NewString()[:8],
		UserID:         customer.ID,
		Description:    "Blender",
		WeightLbs:      decimal.NewFromFloat(6.1),
		Cost:           decimal.NewFromInt(90),
		Status:         enums.PackageStatusArrivedInJamaica,
		Branch:         "Kingston",
		Version:        1,
		CreatedBy:      uuid.New(),
	}
	require.NoError(t, db.Create(pkg).Error)

	record := insertTransfer(t, repo, enums.TransferStatusCreated, time.Now())
	insertMember(t, repo, record.ID, pkg.ID, false)

	entries, err := repo.ListMemberships(context.Background(), record.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pkg.ID, entries[0].Package.ID)
	assert.Equal(t, "Andre Campbell", entries[0].CustomerName)
	assert.Equal(t, customer.Email, entries[0].CustomerEmail)
}
