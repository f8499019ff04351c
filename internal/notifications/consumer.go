package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/mailer"
	"github.com/pongshipping/forwarding-backend/pkg/outbox"
)

const (
	consumerScope  = "customer-notifications"
	idempotencyTTL = 24 * time.Hour
)

// idempotencyGuard dedupes event deliveries across worker restarts and
// redeliveries.
type idempotencyGuard interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	IdempotencyKey(scope, id string) string
	Del(ctx context.Context, keys ...string) error
}

// activityRecorder credits the staff member whose action produced the
// notification.
type activityRecorder interface {
	NotificationSent(ctx context.Context, staffID uuid.UUID)
}

// Consumer fans customer-facing domain events into in-app notification rows
// and best-effort emails.
type Consumer struct {
	repo         Repository
	subscription *pubsub.Subscriber
	idempotency  idempotencyGuard
	mail         mailer.Sender
	stats        activityRecorder
	logg         *logger.Logger
}

// NewConsumer builds a notification consumer. The mail sender and activity
// recorder are optional.
func NewConsumer(repo Repository, subscription *pubsub.Subscriber, guard idempotencyGuard, mail mailer.Sender, stats activityRecorder, logg *logger.Logger) (*Consumer, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("notification subscription required")
	}
	if guard == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         repo,
		subscription: subscription,
		idempotency:  guard,
		mail:         mail,
		stats:        stats,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

// eventPayload is the union of the customer-facing event payloads written by
// the domain services.
type eventPayload struct {
	UserID         uuid.UUID           `json:"userId"`
	PackageID      string              `json:"packageId"`
	TrackingNumber string              `json:"trackingNumber"`
	Description    string              `json:"description,omitempty"`
	ToStatus       enums.PackageStatus `json:"toStatus,omitempty"`
	FinalCost      *decimal.Decimal    `json:"finalCost,omitempty"`
	Amount         *decimal.Decimal    `json:"amount,omitempty"`
	ReceivedBy     string              `json:"receivedBy,omitempty"`
	Message        string              `json:"message,omitempty"`
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType := enums.OutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	}
	logCtx := c.logg.WithFields(ctx, fields)

	kind, handled := notificationTypeFor(eventType)
	if !handled {
		c.logg.Info(logCtx, "skipping event with no customer notification")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	key := c.idempotency.IdempotencyKey(consumerScope, envelope.EventID)
	fresh, err := c.idempotency.SetNX(ctx, key, "1", idempotencyTTL)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if !fresh {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	var payload eventPayload
	if err := json.Unmarshal(envelope.Data, &payload); err != nil {
		c.logg.Error(logCtx, "failed to parse payload", err)
		_ = c.idempotency.Del(ctx, key)
		return processResult{nack: true}
	}
	if payload.UserID == uuid.Nil {
		c.logg.Warn(c.logg.WithFields(logCtx, map[string]any{"package_id": payload.PackageID}), "event payload has no target user")
		return processResult{ack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"user_id":    payload.UserID.String(),
		"package_id": payload.PackageID,
	})

	notification := buildNotification(kind, payload, msg.Attributes)
	if err := c.repo.Insert(ctx, notification); err != nil {
		c.logg.Error(logCtx, "failed to insert notification", err)
		_ = c.idempotency.Del(ctx, key)
		return processResult{nack: true}
	}

	c.sendEmail(ctx, logCtx, notification)
	c.creditActor(ctx, envelope.Actor)

	return processResult{ack: true}
}

// sendEmail attempts the outbound email for a stored notification. Failures
// are logged and never block the in-app row.
func (c *Consumer) sendEmail(ctx context.Context, logCtx context.Context, notification *models.Notification) {
	if c.mail == nil {
		return
	}

	user, err := c.repo.FindUser(ctx, notification.UserID)
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "could not load notification recipient")
		return
	}

	err = c.mail.Send(ctx, mailer.Message{
		ToEmail:  user.Email,
		ToName:   user.FirstName + " " + user.LastName,
		Subject:  notification.Title,
		HTMLBody: fmt.Sprintf("<p>Hi %s,</p><p>%s</p>", user.FirstName, notification.Message),
	})
	if err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "notification email failed")
		return
	}

	if err := c.repo.MarkEmailSent(ctx, notification.ID); err != nil {
		c.logg.Warn(c.logg.WithField(logCtx, "error", err.Error()), "could not flag email as sent")
	}
}

func (c *Consumer) creditActor(ctx context.Context, actor *outbox.ActorRef) {
	if c.stats == nil || actor == nil || actor.UserID == uuid.Nil {
		return
	}
	role, err := enums.ParseStaffRole(actor.Role)
	if err != nil || !role.IsStaff() {
		return
	}
	c.stats.NotificationSent(ctx, actor.UserID)
}

func notificationTypeFor(eventType enums.OutboxEventType) (enums.NotificationType, bool) {
	switch eventType {
	case enums.EventPreAlertConfirmed:
		return enums.NotificationTypePreAlertConfirmed, true
	case enums.EventPackageStatusChanged:
		return enums.NotificationTypeStatusUpdate, true
	case enums.EventPackageArrivedWithCost:
		return enums.NotificationTypeArrivedWithCost, true
	case enums.EventPackageDelivered:
		return enums.NotificationTypePackageDelivered, true
	case enums.EventMissingPreAlertNotice:
		return enums.NotificationTypeMissingPreAlert, true
	default:
		return "", false
	}
}

func buildNotification(kind enums.NotificationType, payload eventPayload, attributes map[string]string) *models.Notification {
	notification := &models.Notification{
		ID:     uuid.New(),
		UserID: payload.UserID,
		Type:   kind,
	}
	if attributes["aggregate_type"] == string(enums.AggregatePackage) {
		if packageUUID, err := uuid.Parse(attributes["aggregate_id"]); err == nil {
			notification.PackageID = &packageUUID
		}
	}

	switch kind {
	case enums.NotificationTypePreAlertConfirmed:
		notification.Title = "Pre-alert confirmed"
		notification.Message = fmt.Sprintf(
			"Your pre-alert has been matched to package %s (tracking %s).",
			payload.PackageID, payload.TrackingNumber)
	case enums.NotificationTypeStatusUpdate:
		notification.Title = "Package status updated"
		notification.Message = fmt.Sprintf(
			"Package %s is now %q.", payload.PackageID, payload.ToStatus)
	case enums.NotificationTypeArrivedWithCost:
		notification.Title = "Package arrived in Jamaica"
		notification.Message = fmt.Sprintf(
			"Package %s has arrived in Jamaica.", payload.PackageID)
		if payload.FinalCost != nil {
			notification.Message = fmt.Sprintf(
				"Package %s has arrived in Jamaica. Amount due at pickup: $%s JMD.",
				payload.PackageID, payload.FinalCost.StringFixed(2))
		}
	case enums.NotificationTypePackageDelivered:
		notification.Title = "Package delivered"
		notification.Message = fmt.Sprintf(
			"Package %s was delivered and received by %s.",
			payload.PackageID, payload.ReceivedBy)
	case enums.NotificationTypeMissingPreAlert:
		notification.Title = "Pre-alert needed"
		notification.Message = payload.Message
		if notification.Message == "" {
			notification.Message = fmt.Sprintf(
				"A package addressed to you (%s) arrived without a pre-alert. Please submit one.",
				payload.PackageID)
		}
	}
	return notification
}
