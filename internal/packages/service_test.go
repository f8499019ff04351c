package packages

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/internal/prealerts"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type stubPackageRepo struct {
	records    map[uuid.UUID]*models.Package
	events     []models.PackageTrackingEvent
	notices    []models.PackageNotice
	delivered  map[uuid.UUID]bool
	createErrs []error
	creates    int
	deleted    []uuid.UUID

	bumpBeforeUpdate bool
}

func newStubPackageRepo() *stubPackageRepo {
	return &stubPackageRepo{
		records:   map[uuid.UUID]*models.Package{},
		delivered: map[uuid.UUID]bool{},
	}
}

func (s *stubPackageRepo) WithTx(tx *gorm.DB) Repository {
	return s
}

func (s *stubPackageRepo) Create(ctx context.Context, record *models.Package) (*models.Package, error) {
	s.creates++
	if len(s.createErrs) > 0 {
		err := s.createErrs[0]
		s.createErrs = s.createErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	record.CreatedAt = time.Now()
	s.records[record.ID] = record
	return record, nil
}

func (s *stubPackageRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *record
	return &copied, nil
}

func (s *stubPackageRepo) FindByTracking(ctx context.Context, trackingNumber string) (*models.Package, error) {
	for _, record := range s.records {
		if record.TrackingNumber == trackingNumber {
			copied := *record
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubPackageRepo) List(ctx context.Context, params pagination.Params, filters ListFilters) (*PackageList, error) {
	list := &PackageList{}
	for _, record := range s.records {
		if filters.UserID != nil && record.UserID != *filters.UserID {
			continue
		}
		if filters.Status != nil && record.Status != *filters.Status {
			continue
		}
		if filters.Branch != nil && record.Branch != *filters.Branch {
			continue
		}
		list.Items = append(list.Items, *record)
	}
	return list, nil
}

func (s *stubPackageRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	record, ok := s.records[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if v, ok := updates["description"]; ok {
		record.Description = v.(string)
	}
	if v, ok := updates["branch"]; ok {
		record.Branch = v.(string)
	}
	if v, ok := updates["cost"]; ok {
		record.Cost = v.(decimal.Decimal)
	}
	if v, ok := updates["weight_lbs"]; ok {
		record.WeightLbs = v.(decimal.Decimal)
	}
	return nil
}

func (s *stubPackageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, version int, updates map[string]any) (int64, error) {
	if s.bumpBeforeUpdate {
		// A concurrent writer moved the row between read and write.
		s.records[id].Version++
		s.bumpBeforeUpdate = false
	}
	record, ok := s.records[id]
	if !ok || record.Version != version {
		return 0, nil
	}
	record.Status = updates["status"].(enums.PackageStatus)
	record.Version = updates["version"].(int)
	if v, ok := updates["final_cost"]; ok {
		cost := v.(decimal.Decimal)
		record.FinalCost = &cost
	}
	return 1, nil
}

func (s *stubPackageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	delete(s.records, id)
	s.deleted = append(s.deleted, id)
	return nil
}

func (s *stubPackageRepo) InsertTrackingEvent(ctx context.Context, event *models.PackageTrackingEvent) error {
	s.events = append(s.events, *event)
	return nil
}

func (s *stubPackageRepo) ListTrackingEvents(ctx context.Context, packageID uuid.UUID) ([]models.PackageTrackingEvent, error) {
	var out []models.PackageTrackingEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		if s.events[i].PackageID == packageID {
			out = append(out, s.events[i])
		}
	}
	return out, nil
}

func (s *stubPackageRepo) InsertNotice(ctx context.Context, notice *models.PackageNotice) error {
	s.notices = append(s.notices, *notice)
	return nil
}

func (s *stubPackageRepo) HasDelivery(ctx context.Context, packageID uuid.UUID) (bool, error) {
	return s.delivered[packageID], nil
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

func (s *stubOutbox) EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	for _, existing := range s.events {
		if existing.EventType == event.EventType &&
			existing.AggregateType == event.AggregateType &&
			existing.AggregateID == event.AggregateID {
			return nil
		}
	}
	return s.Emit(ctx, tx, event)
}

type stubPrealertGateway struct {
	records map[uuid.UUID]*models.PreAlert
}

func (s *stubPrealertGateway) Get(ctx context.Context, id uuid.UUID, actor prealerts.Actor) (*models.PreAlert, error) {
	record, ok := s.records[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert not found")
	}
	copied := *record
	return &copied, nil
}

func (s *stubPrealertGateway) ConfirmTx(ctx context.Context, tx *gorm.DB, id, packageID, staffID uuid.UUID) error {
	record, ok := s.records[id]
	if !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert not found")
	}
	if record.Status == enums.PreAlertStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeConflict, "pre-alert already confirmed")
	}
	record.Status = enums.PreAlertStatusConfirmed
	record.PackageID = &packageID
	record.ConfirmedBy = &staffID
	return nil
}

type stubActivityRecorder struct {
	prealertsConfirmed int
	packagesProcessed  int
}

func (s *stubActivityRecorder) PreAlertConfirmed(ctx context.Context, staffID, packageID uuid.UUID) {
	s.prealertsConfirmed++
}

func (s *stubActivityRecorder) PackageProcessed(ctx context.Context, staffID, packageID uuid.UUID, status enums.PackageStatus) {
	s.packagesProcessed++
}

type packagesFixture struct {
	repo    *stubPackageRepo
	gateway *stubPrealertGateway
	events  *stubOutbox
	stats   *stubActivityRecorder
	svc     Service
}

func newPackagesFixture(t *testing.T) *packagesFixture {
	t.Helper()
	f := &packagesFixture{
		repo:    newStubPackageRepo(),
		gateway: &stubPrealertGateway{records: map[uuid.UUID]*models.PreAlert{}},
		events:  &stubOutbox{},
		stats:   &stubActivityRecorder{},
	}
	svc, err := NewService(f.repo, stubTxRunner{}, f.gateway, f.events, f.stats, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func adminActor() Actor {
	return Actor{UserID: uuid.New(), Role: enums.RoleAdmin}
}

func assertCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed, "expected typed error, got %v", err)
	assert.Equal(t, code, typed.Code())
}

func validCreateInput() CreateInput {
	return CreateInput{
		UserID:      uuid.New(),
		Description: "Laptop",
		WeightLbs:   decimal.NewFromFloat(4.5),
		Cost:        decimal.NewFromInt(1200),
		Branch:      "Kingston",
	}
}

func (f *packagesFixture) seedPackage(t *testing.T, status enums.PackageStatus) *models.Package {
	t.Helper()
	record, err := f.svc.Create(context.Background(), validCreateInput(), adminActor())
	require.NoError(t, err)
	f.repo.records[record.ID].Status = status
	return f.repo.records[record.ID]
}

func TestCreateValidationAndRole(t *testing.T) {
	f := newPackagesFixture(t)

	_, err := f.svc.Create(context.Background(), validCreateInput(), Actor{UserID: uuid.New(), Role: enums.RoleCustomer})
	assertCode(t, err, pkgerrors.CodeForbidden)

	input := validCreateInput()
	input.Description = " "
	_, err = f.svc.Create(context.Background(), input, adminActor())
	assertCode(t, err, pkgerrors.CodeValidation)

	input = validCreateInput()
	input.WeightLbs = decimal.Zero
	_, err = f.svc.Create(context.Background(), input, adminActor())
	assertCode(t, err, pkgerrors.CodeValidation)

	input = validCreateInput()
	input.Cost = decimal.Zero
	_, err = f.svc.Create(context.Background(), input, adminActor())
	assertCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateGeneratesIdentifiers(t *testing.T) {
	f := newPackagesFixture(t)

	record, err := f.svc.Create(context.Background(), validCreateInput(), adminActor())
	require.NoError(t, err)

	assert.Regexp(t, `^PKG\d{6}$`, record.PackageID)
	assert.Regexp(t, `^TRK[0-9A-F]{8}$`, record.TrackingNumber)
	assert.Equal(t, enums.PackageStatusProcessing, record.Status)
	assert.Equal(t, 1, record.Version)

	require.Len(t, f.repo.events, 1)
	assert.Nil(t, f.repo.events[0].FromStatus)
	assert.Equal(t, enums.PackageStatusProcessing, f.repo.events[0].ToStatus)
}

func TestCreateRetriesOnIdentifierCollision(t *testing.T) {
	f := newPackagesFixture(t)
	f.repo.createErrs = []error{
		errors.New(`duplicate key value violates unique constraint "uidx_packages_tracking_number"`),
	}

	record, err := f.svc.Create(context.Background(), validCreateInput(), adminActor())
	require.NoError(t, err)
	assert.Equal(t, 2, f.repo.creates)
	assert.NotEmpty(t, record.TrackingNumber)
}

func TestCreateFromPreAlertConfirmsAndEmits(t *testing.T) {
	f := newPackagesFixture(t)
	customer := uuid.New()
	prealertID := uuid.New()
	f.gateway.records[prealertID] = &models.PreAlert{
		ID:            prealertID,
		UserID:        customer,
		Courier:       "FedEx",
		Description:   "Sneakers",
		DeclaredValue: decimal.NewFromInt(80),
		Status:        enums.PreAlertStatusUnconfirmed,
	}

	record, err := f.svc.CreateFromPreAlert(context.Background(), CreateFromPreAlertInput{
		PreAlertID: prealertID,
		WeightLbs:  decimal.NewFromFloat(2.2),
		Branch:     "Montego Bay",
	}, adminActor())
	require.NoError(t, err)

	assert.Equal(t, customer, record.UserID)
	assert.Equal(t, "Sneakers", record.Description)
	assert.True(t, record.Cost.Equal(decimal.NewFromInt(80)))
	require.NotNil(t, record.PreAlertID)
	assert.Equal(t, prealertID, *record.PreAlertID)

	assert.Equal(t, enums.PreAlertStatusConfirmed, f.gateway.records[prealertID].Status)
	require.Len(t, f.events.events, 1)
	assert.Equal(t, enums.EventPreAlertConfirmed, f.events.events[0].EventType)
	assert.Equal(t, 1, f.stats.prealertsConfirmed)

	_, err = f.svc.CreateFromPreAlert(context.Background(), CreateFromPreAlertInput{
		PreAlertID: prealertID,
		WeightLbs:  decimal.NewFromFloat(2.2),
		Branch:     "Montego Bay",
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeConflict)
}

func TestTransitionForwardOnly(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusInTransit)

	_, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusProcessing,
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeStateConflict)

	note := "mislabelled at the warehouse"
	updated, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus:       enums.PackageStatusProcessing,
		AllowRegression: true,
		Note:            &note,
	}, adminActor())
	require.NoError(t, err)
	assert.Equal(t, enums.PackageStatusProcessing, updated.Status)

	last := f.repo.events[len(f.repo.events)-1]
	assert.True(t, last.Regression)
	require.NotNil(t, last.Note)
	assert.Equal(t, note, *last.Note)
}

func TestTransitionCorrectionFlagRequiresAdmin(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusInTransit)

	_, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus:       enums.PackageStatusProcessing,
		AllowRegression: true,
	}, Actor{UserID: uuid.New(), Role: enums.RoleFrontDesk})
	assertCode(t, err, pkgerrors.CodeForbidden)
}

func TestTransitionFinalCostOverwriteRequiresCorrection(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusInTransit)

	first := decimal.NewFromInt(45)
	updated, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusArrivedInJamaica,
		FinalCost: &first,
	}, adminActor())
	require.NoError(t, err)

	// Re-asserting arrival with a different cost needs the correction flag.
	second := decimal.NewFromInt(60)
	_, err = f.svc.TransitionStatus(context.Background(), updated.ID, TransitionInput{
		NewStatus: enums.PackageStatusArrivedInJamaica,
		FinalCost: &second,
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeStateConflict)

	corrected, err := f.svc.TransitionStatus(context.Background(), updated.ID, TransitionInput{
		NewStatus:       enums.PackageStatusArrivedInJamaica,
		FinalCost:       &second,
		AllowRegression: true,
	}, adminActor())
	require.NoError(t, err)
	require.NotNil(t, corrected.FinalCost)
	assert.True(t, corrected.FinalCost.Equal(second))
}

func TestTransitionStaleVersionConflicts(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusProcessing)

	f.repo.bumpBeforeUpdate = true

	_, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusOverseasWarehouse,
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeStateConflict)
}

func TestTransitionFinalCostRules(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusInTransit)

	cost := decimal.NewFromInt(45)
	_, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusOverseasWarehouse,
		FinalCost: &cost,
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusReadyForPickup,
	}, adminActor())
	assertCode(t, err, pkgerrors.CodeStateConflict)

	updated, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusArrivedInJamaica,
		FinalCost: &cost,
	}, adminActor())
	require.NoError(t, err)
	require.NotNil(t, updated.FinalCost)
	assert.True(t, updated.FinalCost.Equal(cost))

	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, enums.EventPackageArrivedWithCost, last.EventType)

	emitted := len(f.events.events)
	_, err = f.svc.TransitionStatus(context.Background(), updated.ID, TransitionInput{
		NewStatus:            enums.PackageStatusArrivedAtBranch,
		SuppressNotification: true,
	}, adminActor())
	require.NoError(t, err)
	assert.Len(t, f.events.events, emitted)
}

func TestDeleteRefusedOnceDelivered(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusDelivered)
	f.repo.delivered[record.ID] = true

	err := f.svc.Delete(context.Background(), record.ID, adminActor())
	assertCode(t, err, pkgerrors.CodeConflict)

	other := f.seedPackage(t, enums.PackageStatusProcessing)
	require.NoError(t, f.svc.Delete(context.Background(), other.ID, adminActor()))
	assert.Contains(t, f.repo.deleted, other.ID)
}

func TestFindByTrackingReturnsHistory(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusProcessing)

	_, err := f.svc.TransitionStatus(context.Background(), record.ID, TransitionInput{
		NewStatus: enums.PackageStatusOverseasWarehouse,
	}, adminActor())
	require.NoError(t, err)

	result, err := f.svc.FindByTracking(context.Background(), record.TrackingNumber)
	require.NoError(t, err)
	require.Len(t, result.Events, 2)
	assert.Equal(t, enums.PackageStatusOverseasWarehouse, result.Events[0].ToStatus)

	_, err = f.svc.FindByTracking(context.Background(), "TRK00000000")
	assertCode(t, err, pkgerrors.CodeNotFound)
}

func TestRecordMissingPreAlertNotice(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusProcessing)

	notice, err := f.svc.RecordMissingPreAlertNotice(context.Background(), record.ID, "no pre-alert on file", adminActor())
	require.NoError(t, err)
	assert.Equal(t, enums.NotificationTypeMissingPreAlert, notice.Type)

	require.Len(t, f.repo.notices, 1)
	last := f.events.events[len(f.events.events)-1]
	assert.Equal(t, enums.EventMissingPreAlertNotice, last.EventType)
}

func TestRecordMissingPreAlertNoticeNotifiesOnce(t *testing.T) {
	f := newPackagesFixture(t)
	record := f.seedPackage(t, enums.PackageStatusProcessing)

	_, err := f.svc.RecordMissingPreAlertNotice(context.Background(), record.ID, "no pre-alert on file", adminActor())
	require.NoError(t, err)
	_, err = f.svc.RecordMissingPreAlertNotice(context.Background(), record.ID, "second reminder", adminActor())
	require.NoError(t, err)

	// Both notices are on record, but the customer is only notified once.
	require.Len(t, f.repo.notices, 2)
	count := 0
	for _, event := range f.events.events {
		if event.EventType == enums.EventMissingPreAlertNotice && event.AggregateID == record.ID {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestListScopesCustomerToOwnPackages(t *testing.T) {
	f := newPackagesFixture(t)
	mine := f.seedPackage(t, enums.PackageStatusProcessing)
	f.seedPackage(t, enums.PackageStatusProcessing)

	list, err := f.svc.List(context.Background(), Actor{UserID: mine.UserID, Role: enums.RoleCustomer}, pagination.Params{}, ListFilters{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, mine.UserID, list.Items[0].UserID)
}
