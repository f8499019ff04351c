package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a transfer repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateTransfer(ctx context.Context, record *models.Transfer) (*models.Transfer, error) {
	if err := r.db.WithContext(ctx).Create(record).Error; err != nil {
		return nil, err
	}
	return record, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Transfer, error) {
	var record models.Transfer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

type membershipCount struct {
	TransferID uuid.UUID
	Total      int
	Checked    int
}

func (r *repository) List(ctx context.Context, params pagination.Params, filters ListFilters) (*TransferList, error) {
	limit := pagination.NormalizeLimit(params.Limit)
	query := r.db.WithContext(ctx).Model(&models.Transfer{})

	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.DestinationBranch != nil {
		query = query.Where("destination_branch = ?", *filters.DestinationBranch)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}

	var rows []models.Transfer
	err = query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit + 1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	list := &TransferList{}
	page := rows
	if len(rows) > limit {
		page = rows[:limit]
		last := page[limit-1]
		list.NextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	counts, err := r.countMemberships(ctx, page)
	if err != nil {
		return nil, err
	}
	for _, transfer := range page {
		summary := TransferSummary{Transfer: transfer}
		if count, ok := counts[transfer.ID]; ok {
			summary.Packages = count.Total
			summary.CheckedOff = count.Checked
		}
		list.Items = append(list.Items, summary)
	}
	return list, nil
}

func (r *repository) countMemberships(ctx context.Context, page []models.Transfer) (map[uuid.UUID]membershipCount, error) {
	counts := map[uuid.UUID]membershipCount{}
	if len(page) == 0 {
		return counts, nil
	}
	ids := make([]uuid.UUID, 0, len(page))
	for _, transfer := range page {
		ids = append(ids, transfer.ID)
	}

	var rows []membershipCount
	err := r.db.WithContext(ctx).
		Model(&models.TransferPackage{}).
		Select("transfer_id, COUNT(*) AS total, SUM(CASE WHEN checked_off THEN 1 ELSE 0 END) AS checked").
		Where("transfer_id IN ?", ids).
		Group("transfer_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		counts[row.TransferID] = row
	}
	return counts, nil
}

func (r *repository) UpdateTransfer(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Transfer{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteTransfer(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.Transfer{}).Error
}

func (r *repository) InsertMembership(ctx context.Context, record *models.TransferPackage) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *repository) FindMembership(ctx context.Context, transferID, packageID uuid.UUID) (*models.TransferPackage, error) {
	var record models.TransferPackage
	err := r.db.WithContext(ctx).
		Where("transfer_id = ? AND package_id = ?", transferID, packageID).
		First(&record).Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *repository) ListMemberships(ctx context.Context, transferID uuid.UUID) ([]ManifestEntry, error) {
	var memberships []models.TransferPackage
	err := r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Order("created_at ASC").
		Find(&memberships).Error
	if err != nil {
		return nil, err
	}
	if len(memberships) == 0 {
		return nil, nil
	}

	packageIDs := make([]uuid.UUID, 0, len(memberships))
	for _, membership := range memberships {
		packageIDs = append(packageIDs, membership.PackageID)
	}

	var pkgs []models.Package
	if err := r.db.WithContext(ctx).Where("id IN ?", packageIDs).Find(&pkgs).Error; err != nil {
		return nil, err
	}
	packagesByID := map[uuid.UUID]models.Package{}
	userIDs := make([]uuid.UUID, 0, len(pkgs))
	for _, pkg := range pkgs {
		packagesByID[pkg.ID] = pkg
		userIDs = append(userIDs, pkg.UserID)
	}

	var users []models.User
	if len(userIDs) > 0 {
		if err := r.db.WithContext(ctx).Where("id IN ?", userIDs).Find(&users).Error; err != nil {
			return nil, err
		}
	}
	usersByID := map[uuid.UUID]models.User{}
	for _, user := range users {
		usersByID[user.ID] = user
	}

	entries := make([]ManifestEntry, 0, len(memberships))
	for _, membership := range memberships {
		entry := ManifestEntry{Membership: membership}
		if pkg, ok := packagesByID[membership.PackageID]; ok {
			entry.Package = pkg
			if user, ok := usersByID[pkg.UserID]; ok {
				entry.CustomerName = user.FirstName + " " + user.LastName
				entry.CustomerEmail = user.Email
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (r *repository) UpdateMembership(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.TransferPackage{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) DeleteMembership(ctx context.Context, transferID, packageID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("transfer_id = ? AND package_id = ?", transferID, packageID).
		Delete(&models.TransferPackage{})
	return res.RowsAffected, res.Error
}

func (r *repository) DeleteMemberships(ctx context.Context, transferID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("transfer_id = ?", transferID).
		Delete(&models.TransferPackage{}).Error
}

func (r *repository) ActiveMemberships(ctx context.Context, packageIDs []uuid.UUID, excludeTransferID *uuid.UUID) ([]uuid.UUID, error) {
	if len(packageIDs) == 0 {
		return nil, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.TransferPackage{}).
		Joins("JOIN transfers ON transfers.id = transfer_packages.transfer_id").
		Where("transfer_packages.package_id IN ?", packageIDs).
		Where("transfers.status IN ?", []enums.TransferStatus{
			enums.TransferStatusCreated,
			enums.TransferStatusInTransit,
		})
	if excludeTransferID != nil {
		query = query.Where("transfer_packages.transfer_id <> ?", *excludeTransferID)
	}

	var claimed []uuid.UUID
	err := query.Pluck("transfer_packages.package_id", &claimed).Error
	if err != nil {
		return nil, err
	}
	return claimed, nil
}

func (r *repository) CountUnchecked(ctx context.Context, transferID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.TransferPackage{}).
		Where("transfer_id = ? AND checked_off = ?", transferID, false).
		Count(&count).Error
	return count, err
}
