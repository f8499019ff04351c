package transfers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/internal/packages"
	dbpkg "github.com/pongshipping/forwarding-backend/pkg/db"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type packageTransitioner interface {
	TransitionStatus(ctx context.Context, id uuid.UUID, input packages.TransitionInput, actor packages.Actor) (*models.Package, error)
}

// activityRecorder receives best-effort staff activity signals.
type activityRecorder interface {
	TransferCreated(ctx context.Context, staffID, transferID uuid.UUID)
}

// allowedTransitions encodes the manifest state machine. Terminal states carry
// no entry.
var allowedTransitions = map[enums.TransferStatus][]enums.TransferStatus{
	enums.TransferStatusCreated:   {enums.TransferStatusInTransit, enums.TransferStatusCancelled},
	enums.TransferStatusInTransit: {enums.TransferStatusDelivered, enums.TransferStatusCancelled},
}

// Service defines transfer manifest operations.
type Service interface {
	Create(ctx context.Context, input CreateInput, actor Actor) (*models.Transfer, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*TransferDetail, error)
	List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*TransferList, error)
	AddPackages(ctx context.Context, id uuid.UUID, packageIDs []uuid.UUID, actor Actor) (int, error)
	RemovePackage(ctx context.Context, id, packageID uuid.UUID, actor Actor) error
	SetCheckedOff(ctx context.Context, id, packageID uuid.UUID, checked bool, actor Actor) error
	UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.TransferStatus, actor Actor) (*models.Transfer, error)
	UpdateDetails(ctx context.Context, id uuid.UUID, patch UpdateDetailsInput, actor Actor) (*models.Transfer, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
}

type service struct {
	repo     Repository
	tx       txRunner
	packages packageTransitioner
	events   outboxPublisher
	stats    activityRecorder
	logg     *logger.Logger
}

// NewService builds a transfer service with the required dependencies.
func NewService(repo Repository, tx txRunner, packageSvc packageTransitioner, events outboxPublisher, stats activityRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transfers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if packageSvc == nil {
		return nil, fmt.Errorf("package transitioner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:     repo,
		tx:       tx,
		packages: packageSvc,
		events:   events,
		stats:    stats,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput, actor Actor) (*models.Transfer, error) {
	if err := requireTransferRole(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.DestinationBranch) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination branch required")
	}
	packageIDs := dedupe(input.PackageIDs)
	if len(packageIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one package required")
	}

	claimed, err := s.repo.ActiveMemberships(ctx, packageIDs, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active manifests")
	}
	if len(claimed) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "packages already on an active manifest").
			WithDetails(map[string]any{"packageIds": claimed})
	}

	record := &models.Transfer{
		DestinationBranch: strings.TrimSpace(input.DestinationBranch),
		Status:            enums.TransferStatusCreated,
		Notes:             input.Notes,
		CreatedBy:         actor.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if _, err := repo.CreateTransfer(ctx, record); err != nil {
			return err
		}
		for _, packageID := range packageIDs {
			membership := &models.TransferPackage{
				TransferID: record.ID,
				PackageID:  packageID,
			}
			if err := repo.InsertMembership(ctx, membership); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "uidx_transfer_packages_membership") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "packages already on an active manifest")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create transfer")
	}

	if s.stats != nil {
		s.stats.TransferCreated(ctx, actor.UserID, record.ID)
	}
	return record, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*TransferDetail, error) {
	if err := requireTransferRole(actor); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.repo.ListMemberships(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manifest packages")
	}
	return &TransferDetail{Transfer: *record, Entries: entries}, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*TransferList, error) {
	if err := requireTransferRole(actor); err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfers")
	}
	return list, nil
}

func (s *service) AddPackages(ctx context.Context, id uuid.UUID, packageIDs []uuid.UUID, actor Actor) (int, error) {
	if err := requireTransferRole(actor); err != nil {
		return 0, err
	}
	packageIDs = dedupe(packageIDs)
	if len(packageIDs) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "at least one package required")
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return 0, err
	}
	if record.Status != enums.TransferStatusCreated {
		return 0, pkgerrors.New(pkgerrors.CodeStateConflict, "manifest packages can only change before dispatch")
	}

	claimed, err := s.repo.ActiveMemberships(ctx, packageIDs, &id)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active manifests")
	}
	if len(claimed) > 0 {
		return 0, pkgerrors.New(pkgerrors.CodeConflict, "packages already on an active manifest").
			WithDetails(map[string]any{"packageIds": claimed})
	}

	added := 0
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		for _, packageID := range packageIDs {
			_, err := repo.FindMembership(ctx, id, packageID)
			if err == nil {
				continue
			}
			if err != gorm.ErrRecordNotFound {
				return err
			}
			insertErr := repo.InsertMembership(ctx, &models.TransferPackage{
				TransferID: id,
				PackageID:  packageID,
			})
			if insertErr != nil {
				if dbpkg.IsUniqueViolation(insertErr, "uidx_transfer_packages_membership") {
					continue
				}
				return insertErr
			}
			added++
		}
		return nil
	})
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add manifest packages")
	}
	return added, nil
}

func (s *service) RemovePackage(ctx context.Context, id, packageID uuid.UUID, actor Actor) error {
	if err := requireTransferRole(actor); err != nil {
		return err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if record.Status != enums.TransferStatusCreated {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "manifest packages can only change before dispatch")
	}

	rows, err := s.repo.DeleteMembership(ctx, id, packageID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove manifest package")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "package is not on this manifest")
	}
	return nil
}

func (s *service) SetCheckedOff(ctx context.Context, id, packageID uuid.UUID, checked bool, actor Actor) error {
	if err := requireTransferRole(actor); err != nil {
		return err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !record.Status.IsActive() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "manifest is final")
	}

	membership, err := s.repo.FindMembership(ctx, id, packageID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "package is not on this manifest")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load manifest package")
	}

	updates := map[string]any{"checked_off": checked}
	if checked {
		now := time.Now()
		updates["checked_off_by"] = actor.UserID
		updates["checked_off_at"] = now
	} else {
		updates["checked_off_by"] = nil
		updates["checked_off_at"] = nil
	}
	if err := s.repo.UpdateMembership(ctx, membership.ID, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update manifest package")
	}
	return nil
}

func (s *service) UpdateStatus(ctx context.Context, id uuid.UUID, newStatus enums.TransferStatus, actor Actor) (*models.Transfer, error) {
	if err := requireTransferRole(actor); err != nil {
		return nil, err
	}
	if !newStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown transfer status")
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "manifest is final")
	}
	if !transitionAllowed(record.Status, newStatus) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict,
			fmt.Sprintf("manifest cannot move from %q to %q", record.Status, newStatus))
	}

	if newStatus == enums.TransferStatusInTransit {
		unchecked, err := s.repo.CountUnchecked(ctx, id)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unchecked packages")
		}
		if unchecked > 0 {
			return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "all packages must be checked off before dispatch").
				WithDetails(map[string]any{"unchecked": unchecked})
		}
	}

	now := time.Now()
	updates := map[string]any{"status": newStatus}
	var eventType enums.OutboxEventType
	switch newStatus {
	case enums.TransferStatusInTransit:
		updates["dispatched_by"] = actor.UserID
		updates["dispatched_at"] = now
		eventType = enums.EventTransferDispatched
	case enums.TransferStatusDelivered:
		updates["arrived_at"] = now
		eventType = enums.EventTransferArrived
	case enums.TransferStatusCancelled:
		updates["cancelled_at"] = now
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.UpdateTransfer(ctx, id, updates); err != nil {
			return err
		}
		if eventType == "" {
			return nil
		}
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     eventType,
			AggregateType: enums.AggregateTransfer,
			AggregateID:   id,
			Actor:         actor.ref(),
			Data: map[string]any{
				"transferId":        id,
				"destinationBranch": record.DestinationBranch,
				"status":            newStatus,
			},
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transfer status")
	}

	if newStatus == enums.TransferStatusDelivered {
		s.markPackagesArrived(ctx, id, record.DestinationBranch, actor)
	}
	return s.load(ctx, id)
}

// markPackagesArrived advances each manifest package after the transfer is
// recorded as delivered. The transfer state is already durable, so per-package
// failures are logged and skipped rather than unwound.
func (s *service) markPackagesArrived(ctx context.Context, transferID uuid.UUID, branch string, actor Actor) {
	entries, err := s.repo.ListMemberships(ctx, transferID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(ctx, "loading manifest packages for arrival failed")
		}
		return
	}

	note := fmt.Sprintf("arrived via transfer to %s", branch)
	for _, entry := range entries {
		_, err := s.packages.TransitionStatus(ctx, entry.Membership.PackageID, packages.TransitionInput{
			NewStatus: enums.PackageStatusArrivedAtBranch,
			Note:      &note,
		}, packages.Actor{UserID: actor.UserID, Role: actor.Role, Branch: actor.Branch})
		if err != nil && s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"transfer_id": transferID.String(),
				"package_id":  entry.Membership.PackageID.String(),
			})
			s.logg.Warn(logCtx, "marking package arrived at branch failed")
		}
	}
}

func (s *service) UpdateDetails(ctx context.Context, id uuid.UUID, patch UpdateDetailsInput, actor Actor) (*models.Transfer, error) {
	if err := requireTransferRole(actor); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if record.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "manifest is final")
	}

	updates := map[string]any{}
	if patch.DestinationBranch != nil {
		if strings.TrimSpace(*patch.DestinationBranch) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination branch cannot be empty")
		}
		updates["destination_branch"] = strings.TrimSpace(*patch.DestinationBranch)
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one field required")
	}

	if err := s.repo.UpdateTransfer(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update transfer")
	}
	return s.load(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	if err := requireTransferRole(actor); err != nil {
		return err
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == enums.TransferStatusInTransit {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "manifest cannot be deleted while in transit")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteMemberships(ctx, id); err != nil {
			return err
		}
		return repo.DeleteTransfer(ctx, id)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete transfer")
	}
	return nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "transfer id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer")
	}
	return record, nil
}

func transitionAllowed(from, to enums.TransferStatus) bool {
	for _, candidate := range allowedTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

func requireTransferRole(actor Actor) error {
	for _, candidate := range enums.TransferManagementRoles() {
		if candidate == actor.Role {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot manage transfers")
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
