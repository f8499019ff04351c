package packages

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/internal/prealerts"
	dbpkg "github.com/pongshipping/forwarding-backend/pkg/db"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// maxIDAttempts bounds retries when a generated identifier collides.
const maxIDAttempts = 3

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type prealertGateway interface {
	Get(ctx context.Context, id uuid.UUID, actor prealerts.Actor) (*models.PreAlert, error)
	ConfirmTx(ctx context.Context, tx *gorm.DB, id, packageID, staffID uuid.UUID) error
}

// activityRecorder receives best-effort staff activity signals. Implementations
// must never return errors into the request path.
type activityRecorder interface {
	PreAlertConfirmed(ctx context.Context, staffID, packageID uuid.UUID)
	PackageProcessed(ctx context.Context, staffID, packageID uuid.UUID, status enums.PackageStatus)
}

// Service defines package operations.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor Actor) (*models.Package, error)
	CreateFromPreAlert(ctx context.Context, input CreateFromPreAlertInput, actor Actor) (*models.Package, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Package, error)
	List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*PackageList, error)
	TransitionStatus(ctx context.Context, id uuid.UUID, input TransitionInput, actor Actor) (*models.Package, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdateInput, actor Actor) (*models.Package, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
	FindByTracking(ctx context.Context, trackingNumber string) (*TrackingResult, error)
	History(ctx context.Context, id uuid.UUID, actor Actor) ([]models.PackageTrackingEvent, error)
	RecordMissingPreAlertNotice(ctx context.Context, packageID uuid.UUID, message string, actor Actor) (*models.PackageNotice, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	prealerts prealertGateway
	events    outboxPublisher
	stats     activityRecorder
	logg      *logger.Logger
}

// NewService builds a package service with the required dependencies.
func NewService(repo Repository, tx txRunner, prealertSvc prealertGateway, events outboxPublisher, stats activityRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("packages repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if prealertSvc == nil {
		return nil, fmt.Errorf("pre-alert gateway required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		prealerts: prealertSvc,
		events:    events,
		stats:     stats,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor Actor) (*models.Package, error) {
	if !roleIn(actor.Role, enums.PackageAdminRoles()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot create packages")
	}
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if !input.WeightLbs.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	if !input.Cost.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be positive")
	}
	if strings.TrimSpace(input.Branch) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch required")
	}

	initial := enums.PackageStatusProcessing
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown package status")
		}
		initial = *input.Status
	}

	record := &models.Package{
		UserID:      input.UserID,
		Description: strings.TrimSpace(input.Description),
		Dimensions:  input.Dimensions,
		WeightLbs:   input.WeightLbs,
		Cost:        input.Cost,
		Status:      initial,
		Branch:      strings.TrimSpace(input.Branch),
		Version:     1,
		CreatedBy:   actor.UserID,
	}

	created, err := s.insertWithFreshIDs(ctx, record, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).InsertTrackingEvent(ctx, &models.PackageTrackingEvent{
			PackageID: record.ID,
			ToStatus:  initial,
			ActorID:   &actor.UserID,
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *service) CreateFromPreAlert(ctx context.Context, input CreateFromPreAlertInput, actor Actor) (*models.Package, error) {
	if !roleIn(actor.Role, enums.PreAlertConfirmationRoles()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot confirm pre-alerts")
	}
	if !input.WeightLbs.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
	}
	if strings.TrimSpace(input.Branch) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch required")
	}
	if input.Cost != nil && input.Cost.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be non-negative")
	}

	prealert, err := s.prealerts.Get(ctx, input.PreAlertID, prealerts.Actor{
		UserID: actor.UserID,
		Role:   actor.Role,
		Branch: actor.Branch,
	})
	if err != nil {
		return nil, err
	}
	if prealert.Status == enums.PreAlertStatusConfirmed {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "pre-alert already confirmed")
	}

	cost := prealert.DeclaredValue
	if input.Cost != nil {
		cost = *input.Cost
	}

	record := &models.Package{
		UserID:      prealert.UserID,
		PreAlertID:  &prealert.ID,
		Description: prealert.Description,
		Dimensions:  input.Dimensions,
		WeightLbs:   input.WeightLbs,
		Cost:        cost,
		Status:      enums.PackageStatusProcessing,
		Branch:      strings.TrimSpace(input.Branch),
		Version:     1,
		CreatedBy:   actor.UserID,
	}

	created, err := s.insertWithFreshIDs(ctx, record, func(tx *gorm.DB) error {
		if err := s.prealerts.ConfirmTx(ctx, tx, prealert.ID, record.ID, actor.UserID); err != nil {
			return err
		}
		repo := s.repo.WithTx(tx)
		if err := repo.InsertTrackingEvent(ctx, &models.PackageTrackingEvent{
			PackageID: record.ID,
			ToStatus:  enums.PackageStatusProcessing,
			Note:      input.Note,
			ActorID:   &actor.UserID,
		}); err != nil {
			return err
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPreAlertConfirmed,
			AggregateType: enums.AggregatePreAlert,
			AggregateID:   prealert.ID,
			Actor:         actor.ref(),
			Data: map[string]any{
				"prealertId":     prealert.ID,
				"userId":         prealert.UserID,
				"packageId":      record.PackageID,
				"trackingNumber": record.TrackingNumber,
				"description":    record.Description,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.stats != nil {
		s.stats.PreAlertConfirmed(ctx, actor.UserID, created.ID)
	}
	return created, nil
}

// insertWithFreshIDs creates the package row plus the caller's companion writes
// in one transaction, regenerating identifiers when a unique index rejects them.
func (s *service) insertWithFreshIDs(ctx context.Context, record *models.Package, companion func(tx *gorm.DB) error) (*models.Package, error) {
	var lastErr error
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		record.ID = uuid.Nil
		record.PackageID = NewPackageID(time.Now())
		record.TrackingNumber = NewTrackingNumber()

		lastErr = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			if _, err := s.repo.WithTx(tx).Create(ctx, record); err != nil {
				return err
			}
			return companion(tx)
		})
		if lastErr == nil {
			return record, nil
		}
		if typed := pkgerrors.As(lastErr); typed != nil {
			return nil, lastErr
		}
		if !dbpkg.IsUniqueViolation(lastErr, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "create package")
		}
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, lastErr, "allocate package identifiers")
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.Package, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && record.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "package does not belong to caller")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*PackageList, error) {
	if !actor.Role.IsStaff() {
		owner := actor.UserID
		filters.UserID = &owner
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list packages")
	}
	return list, nil
}

func (s *service) TransitionStatus(ctx context.Context, id uuid.UUID, input TransitionInput, actor Actor) (*models.Package, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot update package status")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown package status")
	}

	if input.AllowRegression && !roleIn(actor.Role, enums.PackageAdminRoles()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only admins may force a status correction")
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	current := record.Status
	regression := input.NewStatus.Index() < current.Index()
	if regression && !input.AllowRegression {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("status cannot move backward from %q to %q", current, input.NewStatus))
	}

	if input.FinalCost != nil {
		if input.NewStatus != enums.PackageStatusArrivedInJamaica {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "final cost is recorded on arrival in Jamaica")
		}
		if input.FinalCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "final cost must be non-negative")
		}
		if record.FinalCost != nil && !input.AllowRegression {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
				"final cost is already recorded, overwriting it requires the correction flag")
		}
	}

	effectiveFinal := record.FinalCost
	if input.FinalCost != nil {
		effectiveFinal = input.FinalCost
	}
	if input.NewStatus.Index() >= enums.PackageStatusReadyForPickup.Index() && effectiveFinal == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "final cost must be recorded before pickup stages")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		updates := map[string]any{
			"status":  input.NewStatus,
			"version": record.Version + 1,
		}
		if input.FinalCost != nil {
			updates["final_cost"] = *input.FinalCost
		}
		rows, err := repo.UpdateStatus(ctx, id, record.Version, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "package was modified concurrently")
		}

		from := current
		if err := repo.InsertTrackingEvent(ctx, &models.PackageTrackingEvent{
			PackageID:  id,
			FromStatus: &from,
			ToStatus:   input.NewStatus,
			Regression: regression,
			Note:       input.Note,
			ActorID:    &actor.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		if input.SuppressNotification {
			return nil
		}
		eventType := enums.EventPackageStatusChanged
		if input.NewStatus == enums.PackageStatusArrivedInJamaica && effectiveFinal != nil {
			eventType = enums.EventPackageArrivedWithCost
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregatePackage,
			AggregateID:   id,
			Actor:         actor.ref(),
			Data: map[string]any{
				"packageId":      record.PackageID,
				"trackingNumber": record.TrackingNumber,
				"userId":         record.UserID,
				"fromStatus":     current,
				"toStatus":       input.NewStatus,
				"finalCost":      effectiveFinal,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "transition package status")
	}

	if s.stats != nil {
		s.stats.PackageProcessed(ctx, actor.UserID, id, input.NewStatus)
	}
	return s.load(ctx, id)
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch UpdateInput, actor Actor) (*models.Package, error) {
	if !roleIn(actor.Role, enums.PackageAdminRoles()) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot update packages")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Dimensions != nil {
		updates["dimensions"] = *patch.Dimensions
	}
	if patch.WeightLbs != nil {
		if !patch.WeightLbs.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "weight must be positive")
		}
		updates["weight_lbs"] = *patch.WeightLbs
	}
	if patch.Cost != nil {
		if !patch.Cost.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost must be positive")
		}
		updates["cost"] = *patch.Cost
	}
	if patch.Branch != nil {
		if strings.TrimSpace(*patch.Branch) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "branch cannot be empty")
		}
		updates["branch"] = strings.TrimSpace(*patch.Branch)
	}
	if len(updates) == 0 {
		return record, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package")
	}
	return s.load(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if !roleIn(actor.Role, enums.PackageAdminRoles()) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot delete packages")
	}
	if _, err := s.load(ctx, id); err != nil {
		return err
	}

	delivered, err := s.repo.HasDelivery(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check delivery record")
	}
	if delivered {
		return pkgerrors.New(pkgerrors.CodeConflict, "package has a recorded delivery")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).Delete(ctx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete package")
	}
	return nil
}

func (s *service) FindByTracking(ctx context.Context, trackingNumber string) (*TrackingResult, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required")
	}

	record, err := s.repo.FindByTracking(ctx, trackingNumber)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find package by tracking")
	}

	events, err := s.repo.ListTrackingEvents(ctx, record.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking history")
	}
	return &TrackingResult{Package: record, Events: events}, nil
}

func (s *service) History(ctx context.Context, id uuid.UUID, actor Actor) ([]models.PackageTrackingEvent, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && record.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "package does not belong to caller")
	}

	events, err := s.repo.ListTrackingEvents(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tracking history")
	}
	return events, nil
}

func (s *service) RecordMissingPreAlertNotice(ctx context.Context, packageID uuid.UUID, message string, actor Actor) (*models.PackageNotice, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot record package notices")
	}
	if strings.TrimSpace(message) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "message required")
	}

	record, err := s.load(ctx, packageID)
	if err != nil {
		return nil, err
	}

	notice := &models.PackageNotice{
		PackageID: packageID,
		Type:      enums.NotificationTypeMissingPreAlert,
		Message:   strings.TrimSpace(message),
		CreatedBy: actor.UserID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.InsertNotice(ctx, notice); err != nil {
			return err
		}
		// Staff may file the notice more than once while chasing the
		// customer; only the first one should reach the notifier.
		return s.events.EmitIfNotExists(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMissingPreAlertNotice,
			AggregateType: enums.AggregatePackage,
			AggregateID:   packageID,
			Actor:         actor.ref(),
			Data: map[string]any{
				"packageId":      record.PackageID,
				"trackingNumber": record.TrackingNumber,
				"userId":         record.UserID,
				"message":        notice.Message,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record missing pre-alert notice")
	}
	return notice, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Package, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	return record, nil
}

func roleIn(role enums.StaffRole, allowed []enums.StaffRole) bool {
	for _, candidate := range allowed {
		if candidate == role {
			return true
		}
	}
	return false
}
