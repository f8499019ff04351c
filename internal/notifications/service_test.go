package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type stubNotificationRepo struct {
	rows  []models.Notification
	users map[uuid.UUID]models.User

	insertErr error
	mailedIDs []uuid.UUID
}

func newStubNotificationRepo() *stubNotificationRepo {
	return &stubNotificationRepo{users: map[uuid.UUID]models.User{}}
}

func (s *stubNotificationRepo) Insert(ctx context.Context, record *models.Notification) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.rows = append(s.rows, *record)
	return nil
}

func (s *stubNotificationRepo) List(ctx context.Context, userID uuid.UUID, params pagination.Params, filters ListFilters) (*NotificationList, error) {
	list := &NotificationList{}
	for _, row := range s.rows {
		if row.UserID != userID {
			continue
		}
		if filters.UnreadOnly && row.Read {
			continue
		}
		list.Items = append(list.Items, row)
	}
	return list, nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, id, userID uuid.UUID, at time.Time) (int64, error) {
	for i, row := range s.rows {
		if row.ID == id && row.UserID == userID {
			s.rows[i].Read = true
			s.rows[i].ReadAt = &at
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubNotificationRepo) MarkAllRead(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	var rows int64
	for i, row := range s.rows {
		if row.UserID == userID && !row.Read {
			s.rows[i].Read = true
			s.rows[i].ReadAt = &at
			rows++
		}
	}
	return rows, nil
}

func (s *stubNotificationRepo) CountUnread(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	for _, row := range s.rows {
		if row.UserID == userID && !row.Read {
			count++
		}
	}
	return count, nil
}

func (s *stubNotificationRepo) MarkEmailSent(ctx context.Context, id uuid.UUID) error {
	s.mailedIDs = append(s.mailedIDs, id)
	for i, row := range s.rows {
		if row.ID == id {
			s.rows[i].EmailSent = true
		}
	}
	return nil
}

func (s *stubNotificationRepo) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, ok := s.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &user, nil
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func seedNotification(repo *stubNotificationRepo, userID uuid.UUID, read bool) models.Notification {
	row := models.Notification{
		ID:      uuid.New(),
		UserID:  userID,
		Title:   "Package status updated",
		Message: "Package PKG123456 is now \"In Transit to Jamaica\".",
		Read:    read,
	}
	repo.rows = append(repo.rows, row)
	return row
}

func TestListScopedToCaller(t *testing.T) {
	repo := newStubNotificationRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	me := uuid.New()
	seedNotification(repo, me, false)
	seedNotification(repo, me, true)
	seedNotification(repo, uuid.New(), false)

	list, err := svc.List(context.Background(), pagination.Params{}, ListFilters{}, Actor{UserID: me})
	require.NoError(t, err)
	assert.Len(t, list.Items, 2)

	unread, err := svc.List(context.Background(), pagination.Params{}, ListFilters{UnreadOnly: true}, Actor{UserID: me})
	require.NoError(t, err)
	assert.Len(t, unread.Items, 1)

	_, err = svc.List(context.Background(), pagination.Params{}, ListFilters{}, Actor{})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestMarkRead(t *testing.T) {
	repo := newStubNotificationRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	me := uuid.New()
	row := seedNotification(repo, me, false)

	require.NoError(t, svc.MarkRead(context.Background(), row.ID, Actor{UserID: me}))
	assert.True(t, repo.rows[0].Read)
	require.NotNil(t, repo.rows[0].ReadAt)

	// Another user's notification is invisible to the caller.
	err = svc.MarkRead(context.Background(), row.ID, Actor{UserID: uuid.New()})
	assertCode(t, err, pkgerrors.CodeNotFound)

	err = svc.MarkRead(context.Background(), uuid.Nil, Actor{UserID: me})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestMarkAllReadAndUnreadCount(t *testing.T) {
	repo := newStubNotificationRepo()
	svc, err := NewService(repo, nil)
	require.NoError(t, err)

	me := uuid.New()
	seedNotification(repo, me, false)
	seedNotification(repo, me, false)
	seedNotification(repo, me, true)
	seedNotification(repo, uuid.New(), false)

	count, err := svc.UnreadCount(context.Background(), Actor{UserID: me})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	rows, err := svc.MarkAllRead(context.Background(), Actor{UserID: me})
	require.NoError(t, err)
	assert.Equal(t, int64(2), rows)

	count, err = svc.UnreadCount(context.Background(), Actor{UserID: me})
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}
