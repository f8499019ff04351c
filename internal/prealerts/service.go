package prealerts

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/config"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type receiptStore interface {
	Upload(ctx context.Context, objectPath, contentType string, body io.Reader) error
	Delete(ctx context.Context, objectPath string) error
	SignedURL(objectPath string, expiry time.Duration) (string, error)
}

// Service defines pre-alert operations beyond repository reads.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.PreAlert, error)
	Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.PreAlert, error)
	List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*PreAlertList, error)
	Update(ctx context.Context, id uuid.UUID, patch UpdateInput, actor Actor) (*models.PreAlert, error)
	Delete(ctx context.Context, id uuid.UUID, actor Actor) error
	ConfirmTx(ctx context.Context, tx *gorm.DB, id, packageID, staffID uuid.UUID) error
	AttachReceipt(ctx context.Context, id uuid.UUID, actor Actor, filename, contentType string, body io.Reader) (*models.PreAlert, error)
	DeleteReceipt(ctx context.Context, id uuid.UUID, actor Actor) error
	ReceiptDownloadURL(ctx context.Context, id uuid.UUID, actor Actor) (string, error)
}

type service struct {
	repo     Repository
	receipts receiptStore
	gcsCfg   config.GCSConfig
	logg     *logger.Logger
}

// NewService builds a pre-alert service with the required dependencies.
func NewService(repo Repository, receipts receiptStore, gcsCfg config.GCSConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("prealerts repository required")
	}
	return &service{
		repo:     repo,
		receipts: receipts,
		gcsCfg:   gcsCfg,
		logg:     logg,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.PreAlert, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer reference required")
	}
	if strings.TrimSpace(input.Description) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "description required")
	}
	if input.DeclaredValue.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "declared value must be non-negative")
	}

	// The carrier is often unknown when the customer files the alert; it can
	// be filled in later or left blank entirely.
	record := &models.PreAlert{
		UserID:          input.UserID,
		Courier:         strings.TrimSpace(input.Courier),
		CarrierTracking: strings.TrimSpace(input.CarrierTracking),
		Description:     strings.TrimSpace(input.Description),
		DeclaredValue:   input.DeclaredValue,
		Status:          enums.PreAlertStatusUnconfirmed,
	}

	created, err := s.repo.Create(ctx, record)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pre-alert")
	}
	return created, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor Actor) (*models.PreAlert, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() && record.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
	}
	return record, nil
}

func (s *service) List(ctx context.Context, actor Actor, params pagination.Params, filters ListFilters) (*PreAlertList, error) {
	if !actor.Role.IsStaff() {
		owner := actor.UserID
		filters.UserID = &owner
	}
	list, err := s.repo.List(ctx, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pre-alerts")
	}
	return list, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, patch UpdateInput, actor Actor) (*models.PreAlert, error) {
	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		if record.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
		}
		if record.Status == enums.PreAlertStatusConfirmed {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "confirmed pre-alerts cannot be edited")
		}
	}

	updates := map[string]any{}
	if patch.Courier != nil {
		updates["courier"] = strings.TrimSpace(*patch.Courier)
	}
	if patch.CarrierTracking != nil {
		updates["carrier_tracking"] = strings.TrimSpace(*patch.CarrierTracking)
	}
	if patch.Description != nil {
		if strings.TrimSpace(*patch.Description) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "description cannot be empty")
		}
		updates["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.DeclaredValue != nil {
		if patch.DeclaredValue.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "declared value must be non-negative")
		}
		updates["declared_value"] = *patch.DeclaredValue
	}
	if len(updates) == 0 {
		return record, nil
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pre-alert")
	}
	return s.load(ctx, id)
}

func (s *service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if record.Status == enums.PreAlertStatusConfirmed && !actor.Role.IsStaff() {
		return pkgerrors.New(pkgerrors.CodeForbidden, "confirmed pre-alerts cannot be deleted")
	}
	if !actor.Role.IsStaff() && record.UserID != actor.UserID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete pre-alert")
	}

	if record.ReceiptObjectPath != nil && s.receipts != nil {
		if err := s.receipts.Delete(ctx, *record.ReceiptObjectPath); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "deleting pre-alert receipt object failed")
		}
	}
	return nil
}

// ConfirmTx marks the pre-alert confirmed and links the created package. It is
// the sole transition into the confirmed state and must run inside the caller's
// transaction alongside the package insert.
func (s *service) ConfirmTx(ctx context.Context, tx *gorm.DB, id, packageID, staffID uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction required")
	}
	repo := s.repo.WithTx(tx)

	record, err := repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pre-alert")
	}
	if record.Status == enums.PreAlertStatusConfirmed {
		return pkgerrors.New(pkgerrors.CodeConflict, "pre-alert already confirmed")
	}

	now := time.Now()
	updates := map[string]any{
		"status":       enums.PreAlertStatusConfirmed,
		"package_id":   packageID,
		"confirmed_by": staffID,
		"confirmed_at": now,
	}
	if err := repo.Update(ctx, id, updates); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "confirm pre-alert")
	}
	return nil
}

func (s *service) AttachReceipt(ctx context.Context, id uuid.UUID, actor Actor, filename, contentType string, body io.Reader) (*models.PreAlert, error) {
	if s.receipts == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "receipt storage is not configured")
	}
	if strings.TrimSpace(filename) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "filename required")
	}

	record, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Role.IsStaff() {
		if record.UserID != actor.UserID {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
		}
		if record.Status == enums.PreAlertStatusConfirmed {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "confirmed pre-alerts cannot be edited")
		}
	}

	objectPath := path.Join(s.gcsCfg.ReceiptFolder, id.String(), uuid.NewString()+"_"+path.Base(filename))
	if err := s.receipts.Upload(ctx, objectPath, contentType, body); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upload receipt")
	}

	previous := record.ReceiptObjectPath
	if err := s.repo.Update(ctx, id, map[string]any{"receipt_object_path": objectPath}); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store receipt reference")
	}

	// The replaced object is removed best-effort once the row points elsewhere.
	if previous != nil && *previous != objectPath {
		if err := s.receipts.Delete(ctx, *previous); err != nil && s.logg != nil {
			s.logg.Warn(ctx, "deleting replaced receipt object failed")
		}
	}
	return s.load(ctx, id)
}

func (s *service) DeleteReceipt(ctx context.Context, id uuid.UUID, actor Actor) error {
	if s.receipts == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "receipt storage is not configured")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Role.IsStaff() {
		if record.UserID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
		}
		if record.Status == enums.PreAlertStatusConfirmed {
			return pkgerrors.New(pkgerrors.CodeForbidden, "confirmed pre-alerts cannot be edited")
		}
	}
	if record.ReceiptObjectPath == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert has no receipt")
	}

	if err := s.repo.Update(ctx, id, map[string]any{"receipt_object_path": nil}); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear receipt reference")
	}
	if err := s.receipts.Delete(ctx, *record.ReceiptObjectPath); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "deleting receipt object failed")
	}
	return nil
}

func (s *service) ReceiptDownloadURL(ctx context.Context, id uuid.UUID, actor Actor) (string, error) {
	if s.receipts == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "receipt storage is not configured")
	}
	record, err := s.load(ctx, id)
	if err != nil {
		return "", err
	}
	if !actor.Role.IsStaff() && record.UserID != actor.UserID {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "pre-alert does not belong to caller")
	}
	if record.ReceiptObjectPath == nil {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert has no receipt")
	}

	url, err := s.receipts.SignedURL(*record.ReceiptObjectPath, s.gcsCfg.DownloadURLExpiry)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign receipt url")
	}
	return url, nil
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.PreAlert, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pre-alert id required")
	}
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pre-alert not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pre-alert")
	}
	return record, nil
}
