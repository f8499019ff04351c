package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

func setupNotificationsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	statements := []string{
		`CREATE TABLE IF NOT EXISTS notifications (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  type TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  package_id TEXT,
  read INTEGER NOT NULL DEFAULT 0,
  read_at DATETIME,
  email_sent INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME
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

func insertNotification(t *testing.T, repo Repository, userID uuid.UUID, read bool, createdAt time.Time) *models.Notification {
	t.Helper()
	record := &models.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Type:      enums.NotificationTypeStatusUpdate,
		Title:     "Package status updated",
		Message:   "Package PKG123456 is now \"Arrived in Jamaica\".",
		Read:      read,
		CreatedAt: createdAt,
	}
	require.NoError(t, repo.Insert(context.Background(), record))
	return record
}

func TestRepoListPaginatesAndFilters(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	base := time.Now().Add(-time.Hour)
	insertNotification(t, repo, userID, true, base)
	insertNotification(t, repo, userID, false, base.Add(time.Minute))
	insertNotification(t, repo, userID, false, base.Add(2*time.Minute))
	insertNotification(t, repo, uuid.New(), false, base)

	page, err := repo.List(context.Background(), userID, pagination.Params{Limit: 2}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	require.NotEmpty(t, page.NextCursor)

	rest, err := repo.List(context.Background(), userID, pagination.Params{Limit: 2, Cursor: page.NextCursor}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	unread, err := repo.List(context.Background(), userID, pagination.Params{}, ListFilters{UnreadOnly: true})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 2)
}

func TestRepoMarkReadScopedToUser(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	record := insertNotification(t, repo, userID, false, time.Now())

	rows, err := repo.MarkRead(context.Background(), record.ID, uuid.New(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(0), rows)

	rows, err = repo.MarkRead(context.Background(), record.ID, userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), rows)

	count, err := repo.CountUnread(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRepoMarkAllReadAndEmailFlag(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	userID := uuid.New()
	first := insertNotification(t, repo, userID, false, time.Now())
	insertNotification(t, repo, userID, false, time.Now())

	rows, err := repo.MarkAllRead(context.Background(), userID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	require.NoError(t, repo.MarkEmailSent(context.Background(), first.ID))

	var reloaded models.Notification
	require.NoError(t, db.Where("id = ?", first.ID).First(&reloaded).Error)
	assert.True(t, reloaded.Read)
	assert.True(t, reloaded.EmailSent)
	require.NotNil(t, reloaded.ReadAt)
}

func TestRepoFindUser(t *testing.T) {
	db := setupNotificationsTestDB(t)
	repo := NewRepository(db)

	user := models.User{
		ID:           uuid.New(),
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		FirstName:    "Andre",
		LastName:     "Campbell",
		Role:         enums.RoleCustomer,
	}
	require.NoError(t, db.Create(&user).Error)

	found, err := repo.FindUser(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Email, found.Email)

	_, err = repo.FindUser(context.Background(), uuid.New())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
