package staffstats

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
)

type stubStatsRepo struct {
	actions []models.StaffAction
	bumps   map[uuid.UUID]Delta
	daily   []models.StaffPerformance

	insertErr error
	bumpErr   error
}

func newStubStatsRepo() *stubStatsRepo {
	return &stubStatsRepo{bumps: map[uuid.UUID]Delta{}}
}

func (s *stubStatsRepo) InsertAction(ctx context.Context, record *models.StaffAction) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.actions = append(s.actions, *record)
	return nil
}

func (s *stubStatsRepo) BumpDaily(ctx context.Context, staffID uuid.UUID, day time.Time, delta Delta) error {
	if s.bumpErr != nil {
		return s.bumpErr
	}
	prev := s.bumps[staffID]
	prev.PackagesProcessed += delta.PackagesProcessed
	prev.DeliveriesCompleted += delta.DeliveriesCompleted
	prev.TransfersCreated += delta.TransfersCreated
	prev.PreAlertsConfirmed += delta.PreAlertsConfirmed
	prev.NotificationsSent += delta.NotificationsSent
	prev.Revenue = prev.Revenue.Add(delta.Revenue)
	s.bumps[staffID] = prev
	return nil
}

func (s *stubStatsRepo) ListActions(ctx context.Context, staffID uuid.UUID, limit int) ([]models.StaffAction, error) {
	var out []models.StaffAction
	for _, action := range s.actions {
		if action.StaffID == staffID {
			out = append(out, action)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *stubStatsRepo) DailyRange(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]models.StaffPerformance, error) {
	var out []models.StaffPerformance
	for _, row := range s.daily {
		if row.StaffID == staffID && !row.Date.Before(from) && row.Date.Before(to) {
			out = append(out, row)
		}
	}
	return out, nil
}

func newRecorderFixture(t *testing.T) (*Recorder, *stubStatsRepo) {
	t.Helper()
	repo := newStubStatsRepo()
	recorder, err := NewRecorder(repo, nil)
	require.NoError(t, err)
	return recorder, repo
}

func TestRecorderMovesDailyCounters(t *testing.T) {
	recorder, repo := newRecorderFixture(t)
	staffID := uuid.New()
	packageID := uuid.New()

	recorder.PreAlertConfirmed(context.Background(), staffID, packageID)
	recorder.PackageProcessed(context.Background(), staffID, packageID, enums.PackageStatusInTransit)
	recorder.TransferCreated(context.Background(), staffID, uuid.New())
	recorder.DeliveryCompleted(context.Background(), staffID, packageID, decimal.NewFromInt(75))
	recorder.NotificationSent(context.Background(), staffID)

	delta := repo.bumps[staffID]
	assert.Equal(t, 1, delta.PreAlertsConfirmed)
	assert.Equal(t, 1, delta.PackagesProcessed)
	assert.Equal(t, 1, delta.TransfersCreated)
	assert.Equal(t, 1, delta.DeliveriesCompleted)
	assert.Equal(t, 1, delta.NotificationsSent)
	assert.True(t, delta.Revenue.Equal(decimal.NewFromInt(75)))

	require.Len(t, repo.actions, 5)
	assert.Equal(t, "prealert_confirmed", repo.actions[0].Action)
	require.NotNil(t, repo.actions[0].PackageID)
	assert.Equal(t, packageID, *repo.actions[0].PackageID)
	assert.Nil(t, repo.actions[2].PackageID)
	assert.JSONEq(t, `{"status":"In Transit to Jamaica"}`, string(repo.actions[1].Details))
}

func TestRecorderSwallowsFailures(t *testing.T) {
	recorder, repo := newRecorderFixture(t)
	repo.insertErr = errors.New("insert failed")
	repo.bumpErr = errors.New("bump failed")

	// Must not panic or propagate anything.
	recorder.PackageProcessed(context.Background(), uuid.New(), uuid.New(), enums.PackageStatusDelivered)

	assert.Empty(t, repo.actions)
	assert.Empty(t, repo.bumps)
}

func TestPerformanceAuthorization(t *testing.T) {
	recorder, repo := newRecorderFixture(t)
	staffID := uuid.New()
	day := time.Date(2026, time.August, 1, 0, 0, 0, 0, time.UTC)
	repo.daily = append(repo.daily, models.StaffPerformance{
		StaffID:           staffID,
		Date:              day,
		PackagesProcessed: 4,
	})
	from := day.Add(-24 * time.Hour)
	to := day.Add(24 * time.Hour)

	_, err := recorder.Performance(context.Background(), staffID, from, to, Actor{
		UserID: uuid.New(), Role: enums.RoleCustomer,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)

	// Staff cannot read another staff member's rollups.
	_, err = recorder.Performance(context.Background(), staffID, from, to, Actor{
		UserID: uuid.New(), Role: enums.RoleFrontDesk,
	})
	assertCode(t, err, pkgerrors.CodeForbidden)

	own, err := recorder.Performance(context.Background(), staffID, from, to, Actor{
		UserID: staffID, Role: enums.RoleFrontDesk,
	})
	require.NoError(t, err)
	require.Len(t, own, 1)

	admin, err := recorder.Performance(context.Background(), staffID, from, to, Actor{
		UserID: uuid.New(), Role: enums.RoleAdmin,
	})
	require.NoError(t, err)
	require.Len(t, admin, 1)

	_, err = recorder.Performance(context.Background(), staffID, to, to, Actor{
		UserID: staffID, Role: enums.RoleFrontDesk,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestRecentActionsLimit(t *testing.T) {
	recorder, _ := newRecorderFixture(t)
	staffID := uuid.New()
	for i := 0; i < 3; i++ {
		recorder.NotificationSent(context.Background(), staffID)
	}

	actions, err := recorder.RecentActions(context.Background(), staffID, 2, Actor{
		UserID: staffID, Role: enums.RoleFrontDesk,
	})
	require.NoError(t, err)
	assert.Len(t, actions, 2)

	_, err = recorder.RecentActions(context.Background(), uuid.Nil, 2, Actor{
		UserID: staffID, Role: enums.RoleAdmin,
	})
	assertCode(t, err, pkgerrors.CodeValidation)
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}
