package deliveries

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// activityRecorder receives best-effort staff activity signals.
type activityRecorder interface {
	DeliveryCompleted(ctx context.Context, staffID, packageID uuid.UUID, amount decimal.Decimal)
}

// Service defines delivery and settlement operations.
type Service interface {
	Deliver(ctx context.Context, input DeliverInput, actor Actor) (*DeliveryReceipt, error)
	ReadyForPickupRoster(ctx context.Context, branch *string, actor Actor) ([]CustomerGroup, error)
	TodaySummary(ctx context.Context, actor Actor) (*DaySummary, error)
	ByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time, actor Actor) ([]DeliveryRecord, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	events outboxPublisher
	stats  activityRecorder
	logg   *logger.Logger
}

// NewService builds a delivery service with the required dependencies.
func NewService(repo Repository, tx txRunner, events outboxPublisher, stats activityRecorder, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("deliveries repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if events == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		events: events,
		stats:  stats,
		logg:   logg,
	}, nil
}

// Deliver settles a package at the counter. The status flip, delivery row,
// tracking event, payment and allocation all commit together; the customer
// notification rides the outbox and is attempted only after commit.
func (s *service) Deliver(ctx context.Context, input DeliverInput, actor Actor) (*DeliveryReceipt, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot record deliveries")
	}
	if input.PackageID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "package id required")
	}
	if strings.TrimSpace(input.ReceivedBy) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "recipient name required")
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	pkg, err := s.repo.FindPackage(ctx, input.PackageID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "package not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load package")
	}
	if pkg.Status != enums.PackageStatusReadyForPickup {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("package is %q, delivery requires %q", pkg.Status, enums.PackageStatusReadyForPickup))
	}
	if pkg.FinalCost == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "package has no final cost on record")
	}

	now := time.Now()
	amount := *pkg.FinalCost
	transactionID := fmt.Sprintf("DEL-%s-%d", pkg.PackageID, now.UnixMilli())

	delivery := &models.Delivery{
		PackageID:   pkg.ID,
		DeliveredBy: actor.UserID,
		ReceivedBy:  strings.TrimSpace(input.ReceivedBy),
		Notes:       input.Notes,
		DeliveredAt: now,
	}
	payment := &models.Payment{
		TransactionID: transactionID,
		CustomerID:    pkg.UserID,
		Amount:        amount,
		Method:        input.Method,
		Status:        enums.PaymentStatusCompleted,
		ProcessedBy:   actor.UserID,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		rows, err := repo.UpdatePackageStatus(ctx, pkg.ID, pkg.Version, map[string]any{
			"status":  enums.PackageStatusDelivered,
			"version": pkg.Version + 1,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update package status")
		}
		if rows == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "package was modified concurrently")
		}

		if err := repo.InsertDelivery(ctx, delivery); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert delivery")
		}

		from := enums.PackageStatusReadyForPickup
		if err := repo.InsertTrackingEvent(ctx, &models.PackageTrackingEvent{
			PackageID:  pkg.ID,
			FromStatus: &from,
			ToStatus:   enums.PackageStatusDelivered,
			Note:       input.Notes,
			ActorID:    &actor.UserID,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append tracking event")
		}

		if err := repo.InsertPayment(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert payment")
		}
		if err := repo.InsertPackagePayment(ctx, &models.PackagePayment{
			PackageID: pkg.ID,
			PaymentID: payment.ID,
			Amount:    amount,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocate payment")
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPackageDelivered,
			AggregateType: enums.AggregateDelivery,
			AggregateID:   delivery.ID,
			Actor:         actor.ref(),
			Data: map[string]any{
				"packageId":      pkg.PackageID,
				"trackingNumber": pkg.TrackingNumber,
				"userId":         pkg.UserID,
				"receivedBy":     delivery.ReceivedBy,
				"amount":         amount,
				"transactionId":  transactionID,
			},
		})
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record delivery")
	}

	if s.stats != nil {
		s.stats.DeliveryCompleted(ctx, actor.UserID, pkg.ID, amount)
	}

	return &DeliveryReceipt{
		DeliveryID:      delivery.ID,
		PackageID:       pkg.ID,
		PackageRef:      pkg.PackageID,
		TransactionID:   transactionID,
		DeliveredAt:     now,
		ReceivedBy:      delivery.ReceivedBy,
		AmountCollected: amount,
	}, nil
}

func (s *service) ReadyForPickupRoster(ctx context.Context, branch *string, actor Actor) ([]CustomerGroup, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot view the pickup roster")
	}

	pkgs, err := s.repo.ReadyForPickup(ctx, branch)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pickup roster")
	}
	if len(pkgs) == 0 {
		return nil, nil
	}

	groupsByUser := map[uuid.UUID]*CustomerGroup{}
	order := []uuid.UUID{}
	for _, pkg := range pkgs {
		group, ok := groupsByUser[pkg.UserID]
		if !ok {
			group = &CustomerGroup{CustomerID: pkg.UserID}
			groupsByUser[pkg.UserID] = group
			order = append(order, pkg.UserID)
		}
		group.Packages = append(group.Packages, pkg)
		if pkg.FinalCost != nil {
			group.TotalDue = group.TotalDue.Add(*pkg.FinalCost)
		}
	}

	users, err := s.repo.ListUsers(ctx, order)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load roster customers")
	}
	for _, user := range users {
		if group, ok := groupsByUser[user.ID]; ok {
			group.CustomerName = user.FirstName + " " + user.LastName
			group.CustomerEmail = user.Email
		}
	}

	groups := make([]CustomerGroup, 0, len(order))
	for _, userID := range order {
		groups = append(groups, *groupsByUser[userID])
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].CustomerName < groups[j].CustomerName
	})
	return groups, nil
}

func (s *service) TodaySummary(ctx context.Context, actor Actor) (*DaySummary, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot view delivery summaries")
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	records, err := s.repo.DeliveriesBetween(ctx, start, start.Add(24*time.Hour), nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load today's deliveries")
	}

	summary := &DaySummary{Date: start, Records: records, Count: len(records)}
	for _, record := range records {
		summary.Collected = summary.Collected.Add(record.Amount)
	}
	return summary, nil
}

func (s *service) ByStaff(ctx context.Context, staffID uuid.UUID, from, to time.Time, actor Actor) ([]DeliveryRecord, error) {
	if !actor.Role.IsStaff() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller cannot view delivery reports")
	}
	if staffID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "staff id required")
	}
	if !to.After(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date range is empty")
	}

	records, err := s.repo.DeliveriesBetween(ctx, from, to, &staffID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load staff deliveries")
	}
	return records, nil
}
