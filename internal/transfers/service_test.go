package transfers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/internal/packages"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type stubTransferRepo struct {
	transfers   map[uuid.UUID]*models.Transfer
	memberships []*models.TransferPackage
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{transfers: map[uuid.UUID]*models.Transfer{}}
}

func (s *stubTransferRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubTransferRepo) CreateTransfer(ctx context.Context, record *models.Transfer) (*models.Transfer, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	s.transfers[record.ID] = record
	return record, nil
}

func (s *stubTransferRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	record, ok := s.transfers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *stubTransferRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*TransferList, error) {
	list := &TransferList{}
	for _, record := range s.transfers {
		if filters.Status != nil && record.Status != *filters.Status {
			continue
		}
		summary := TransferSummary{Transfer: *record}
		for _, membership := range s.memberships {
			if membership.TransferID == record.ID {
				summary.Packages++
				if membership.CheckedOff {
					summary.CheckedOff++
				}
			}
		}
		list.Items = append(list.Items, summary)
	}
	return list, nil
}

func (s *stubTransferRepo) UpdateTransfer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	record, ok := s.transfers[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["status"]; ok {
		record.Status = v.(enums.TransferStatus)
	}
	if v, ok := updates["destination_branch"]; ok {
		record.DestinationBranch = v.(string)
	}
	if v, ok := updates["notes"]; ok {
		notes := v.(string)
		record.Notes = &notes
	}
	if v, ok := updates["dispatched_by"]; ok {
		by := v.(uuid.UUID)
		record.DispatchedBy = &by
	}
	if v, ok := updates["dispatched_at"]; ok {
		at := v.(time.Time)
		record.DispatchedAt = &at
	}
	if v, ok := updates["arrived_at"]; ok {
		at := v.(time.Time)
		record.ArrivedAt = &at
	}
	if v, ok := updates["cancelled_at"]; ok {
		at := v.(time.Time)
		record.CancelledAt = &at
	}
	return nil
}

func (s *stubTransferRepo) DeleteTransfer(ctx context.Context, id uuid.UUID) error {
	delete(s.transfers, id)
	return nil
}

func (s *stubTransferRepo) InsertMembership(ctx context.Context, record *models.TransferPackage) error {
	for _, existing := range s.memberships {
		if existing.TransferID == record.TransferID && existing.PackageID == record.PackageID {
			return errors.New(`duplicate key value violates unique constraint "uidx_transfer_packages_membership"`)
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	s.memberships = append(s.memberships, record)
	return nil
}

func (s *stubTransferRepo) FindMembership(ctx context.Context, transferID, packageID uuid.UUID) (*models.TransferPackage, error) {
	for _, membership := range s.memberships {
		if membership.TransferID == transferID && membership.PackageID == packageID {
			copied := *membership
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubTransferRepo) ListMemberships(ctx context.Context, transferID uuid.UUID) ([]ManifestEntry, error) {
	var entries []ManifestEntry
	for _, membership := range s.memberships {
		if membership.TransferID == transferID {
			entries = append(entries, ManifestEntry{Membership: *membership})
		}
	}
	return entries, nil
}

func (s *stubTransferRepo) UpdateMembership(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	for _, membership := range s.memberships {
		if membership.ID != id {
			continue
		}
		if v, ok := updates["checked_off"]; ok {
			membership.CheckedOff = v.(bool)
		}
		if v, ok := updates["checked_off_by"]; ok {
			if v == nil {
				membership.CheckedOffBy = nil
			} else {
				by := v.(uuid.UUID)
				membership.CheckedOffBy = &by
			}
		}
		return nil
	}
	return gorm.ErrRecordNotFound
}

func (s *stubTransferRepo) DeleteMembership(ctx context.Context, transferID, packageID uuid.UUID) (int64, error) {
	for i, membership := range s.memberships {
		if membership.TransferID == transferID && membership.PackageID == packageID {
			s.memberships = append(s.memberships[:i], s.memberships[i+1:]...)
			return 1, nil
		}
	}
	return 0, nil
}

func (s *stubTransferRepo) DeleteMemberships(ctx context.Context, transferID uuid.UUID) error {
	kept := s.memberships[:0]
	for _, membership := range s.memberships {
		if membership.TransferID != transferID {
			kept = append(kept, membership)
		}
	}
	s.memberships = kept
	return nil
}

func (s *stubTransferRepo) ActiveMemberships(ctx context.Context, packageIDs []uuid.UUID, excludeTransferID *uuid.UUID) ([]uuid.UUID, error) {
	wanted := map[uuid.UUID]struct{}{}
	for _, id := range packageIDs {
		wanted[id] = struct{}{}
	}
	var claimed []uuid.UUID
	for _, membership := range s.memberships {
		if excludeTransferID != nil && membership.TransferID == *excludeTransferID {
			continue
		}
		transfer, ok := s.transfers[membership.TransferID]
		if !ok || !transfer.Status.IsActive() {
			continue
		}
		if _, ok := wanted[membership.PackageID]; ok {
			claimed = append(claimed, membership.PackageID)
		}
	}
	return claimed, nil
}

func (s *stubTransferRepo) CountUnchecked(ctx context.Context, transferID uuid.UUID) (int64, error) {
	var count int64
	for _, membership := range s.memberships {
		if membership.TransferID == transferID && !membership.CheckedOff {
			count++
		}
	}
	return count, nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type stubOutbox struct {
	events []outbox.DomainEvent
}

func (s *stubOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubTransitioner struct {
	transitioned map[uuid.UUID]enums.PackageStatus
	failFor      map[uuid.UUID]bool
}

func (s *stubTransitioner) TransitionStatus(ctx context.Context, id uuid.UUID, input packages.TransitionInput, actor packages.Actor) (*models.Package, error) {
	if s.failFor[id] {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status cannot move backward")
	}
	if s.transitioned == nil {
		s.transitioned = map[uuid.UUID]enums.PackageStatus{}
	}
	s.transitioned[id] = input.NewStatus
	return &models.Package{ID: id, Status: input.NewStatus}, nil
}

type stubTransferStats struct {
	created int
}

func (s *stubTransferStats) TransferCreated(ctx context.Context, staffID, transferID uuid.UUID) {
	s.created++
}

type transfersFixture struct {
	repo         *stubTransferRepo
	transitioner *stubTransitioner
	events       *stubOutbox
	stats        *stubTransferStats
	svc          Service
}

func newTransfersFixture(t *testing.T) *transfersFixture {
	t.Helper()
	f := &transfersFixture{
		repo:         newStubTransferRepo(),
		transitioner: &stubTransitioner{failFor: map[uuid.UUID]bool{}},
		events:       &stubOutbox{},
		stats:        &stubTransferStats{},
	}
	svc, err := NewService(f.repo, stubTxRunner{}, f.transitioner, f.events, f.stats, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func transferActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleTransferPersonnel}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func (f *transfersFixture) seedTransfer(t *testing.T, packageIDs ...uuid.UUID) *models.Transfer {
	t.Helper()
	record, err := f.svc.Create(context.Background(), CreateInput{
		DestinationBranch: "Montego Bay",
		PackageIDs:        packageIDs,
	}, transferActor())
	require.NoError(t, err)
	return record
}

func (f *transfersFixture) checkOffAll(t *testing.T, transferID uuid.UUID, actor Actor) {
	t.Helper()
	for _, membership := range f.repo.memberships {
		if membership.TransferID == transferID {
			require.NoError(t, f.svc.SetCheckedOff(context.Background(), transferID, membership.PackageID, true, actor))
		}
	}
}

func TestCreateValidationAndMembership(t *testing.T) {
	f := newTransfersFixture(t)

	_, err := f.svc.Create(context.Background(), CreateInput{PackageIDs: []uuid.UUID{uuid.New()}}, transferActor())
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), CreateInput{DestinationBranch: "Montego Bay"}, transferActor())
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.Create(context.Background(), CreateInput{
		DestinationBranch: "Montego Bay",
		PackageIDs:        []uuid.UUID{uuid.New()},
	}, Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	pkgA, pkgB := uuid.New(), uuid.New()
	record := f.seedTransfer(t, pkgA, pkgB, pkgA)
	assert.Equal(t, enums.TransferStatusCreated, record.Status)
	assert.Len(t, f.repo.memberships, 2)
	assert.Equal(t, 1, f.stats.created)
}

func TestCreateRejectsActivelyClaimedPackages(t *testing.T) {
	f := newTransfersFixture(t)
	pkg := uuid.New()
	f.seedTransfer(t, pkg)

	_, err := f.svc.Create(context.Background(), CreateInput{
		DestinationBranch: "Ocho Rios",
		PackageIDs:        []uuid.UUID{pkg},
	}, transferActor())
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestAddPackagesIdempotent(t *testing.T) {
	f := newTransfersFixture(t)
	existing := uuid.New()
	record := f.seedTransfer(t, existing)

	fresh := uuid.New()
	added, err := f.svc.AddPackages(context.Background(), record.ID, []uuid.UUID{existing, fresh}, transferActor())
	require.NoError(t, err)
	assert.Equal(t, 1, added)
	assert.Len(t, f.repo.memberships, 2)

	added, err = f.svc.AddPackages(context.Background(), record.ID, []uuid.UUID{existing, fresh}, transferActor())
	require.NoError(t, err)
	assert.Equal(t, 0, added)
}

func TestRemovePackage(t *testing.T) {
	f := newTransfersFixture(t)
	pkg := uuid.New()
	record := f.seedTransfer(t, pkg)

	err := f.svc.RemovePackage(context.Background(), record.ID, uuid.New(), transferActor())
	assertCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, f.svc.RemovePackage(context.Background(), record.ID, pkg, transferActor()))
	assert.Empty(t, f.repo.memberships)
}

func TestSetCheckedOffTogglesPair(t *testing.T) {
	f := newTransfersFixture(t)
	pkg := uuid.New()
	record := f.seedTransfer(t, pkg)
	actor := transferActor()

	err := f.svc.SetCheckedOff(context.Background(), record.ID, uuid.New(), true, actor)
	assertCode(t, err, pkgerrors.CodeNotFound)

	require.NoError(t, f.svc.SetCheckedOff(context.Background(), record.ID, pkg, true, actor))
	membership, err := f.repo.FindMembership(context.Background(), record.ID, pkg)
	require.NoError(t, err)
	assert.True(t, membership.CheckedOff)
	require.NotNil(t, membership.CheckedOffBy)
	assert.Equal(t, actor.UserID, *membership.CheckedOffBy)

	require.NoError(t, f.svc.SetCheckedOff(context.Background(), record.ID, pkg, false, actor))
	membership, err = f.repo.FindMembership(context.Background(), record.ID, pkg)
	require.NoError(t, err)
	assert.False(t, membership.CheckedOff)
	assert.Nil(t, membership.CheckedOffBy)
}

func TestDispatchRequiresAllCheckedOff(t *testing.T) {
	f := newTransfersFixture(t)
	pkgA, pkgB := uuid.New(), uuid.New()
	record := f.seedTransfer(t, pkgA, pkgB)
	actor := transferActor()

	_, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusInTransit, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	f.checkOffAll(t, record.ID, actor)

	updated, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusInTransit, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusInTransit, updated.Status)
	require.NotNil(t, updated.DispatchedBy)
	assert.Equal(t, actor.UserID, *updated.DispatchedBy)

	require.Len(t, f.events.events, 1)
	assert.Equal(t, enums.EventTransferDispatched, f.events.events[0].EventType)
}

func TestDeliveredMarksPackagesArrived(t *testing.T) {
	f := newTransfersFixture(t)
	pkgA, pkgB := uuid.New(), uuid.New()
	record := f.seedTransfer(t, pkgA, pkgB)
	actor := transferActor()
	f.checkOffAll(t, record.ID, actor)

	_, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusInTransit, actor)
	require.NoError(t, err)

	// One package fails its own transition; the transfer must still complete.
	f.transitioner.failFor[pkgB] = true

	updated, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusDelivered, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusDelivered, updated.Status)
	require.NotNil(t, updated.ArrivedAt)

	assert.Equal(t, enums.PackageStatusArrivedAtBranch, f.transitioner.transitioned[pkgA])
	_, moved := f.transitioner.transitioned[pkgB]
	assert.False(t, moved)

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, enums.EventTransferArrived, last.EventType)

	_, err = f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusCancelled, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCancelPaths(t *testing.T) {
	f := newTransfersFixture(t)
	actor := transferActor()

	record := f.seedTransfer(t, uuid.New())
	cancelled, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusCancelled, actor)
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	other := f.seedTransfer(t, uuid.New())
	f.checkOffAll(t, other.ID, actor)
	_, err = f.svc.UpdateStatus(context.Background(), other.ID, enums.TransferStatusInTransit, actor)
	require.NoError(t, err)
	_, err = f.svc.UpdateStatus(context.Background(), other.ID, enums.TransferStatusCancelled, actor)
	require.NoError(t, err)

	// Skipping in_transit entirely is not a legal move.
	third := f.seedTransfer(t, uuid.New())
	_, err = f.svc.UpdateStatus(context.Background(), third.ID, enums.TransferStatusDelivered, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestAddAndRemoveBlockedAfterDispatch(t *testing.T) {
	f := newTransfersFixture(t)
	pkg := uuid.New()
	record := f.seedTransfer(t, pkg)
	actor := transferActor()
	f.checkOffAll(t, record.ID, actor)

	_, err := f.svc.UpdateStatus(context.Background(), record.ID, enums.TransferStatusInTransit, actor)
	require.NoError(t, err)

	_, err = f.svc.AddPackages(context.Background(), record.ID, []uuid.UUID{uuid.New()}, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)

	err = f.svc.RemovePackage(context.Background(), record.ID, pkg, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestDeleteRemovesJoinRows(t *testing.T) {
	f := newTransfersFixture(t)
	record := f.seedTransfer(t, uuid.New(), uuid.New())
	actor := transferActor()

	require.NoError(t, f.svc.Delete(context.Background(), record.ID, actor))
	assert.Empty(t, f.repo.memberships)
	assert.Empty(t, f.repo.transfers)

	other := f.seedTransfer(t, uuid.New())
	f.checkOffAll(t, other.ID, actor)
	_, err := f.svc.UpdateStatus(context.Background(), other.ID, enums.TransferStatusInTransit, actor)
	require.NoError(t, err)
	err = f.svc.Delete(context.Background(), other.ID, actor)
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestUpdateDetails(t *testing.T) {
	f := newTransfersFixture(t)
	record := f.seedTransfer(t, uuid.New())
	actor := transferActor()

	_, err := f.svc.UpdateDetails(context.Background(), record.ID, UpdateDetailsInput{}, actor)
	assertCode(t, err, pkgerrors.CodeValidation)

	destination := "Negril"
	updated, err := f.svc.UpdateDetails(context.Background(), record.ID, UpdateDetailsInput{DestinationBranch: &destination}, actor)
	require.NoError(t, err)
	assert.Equal(t, "Negril", updated.DestinationBranch)
}
