package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// Service defines the in-app notification operations. Every operation is
// scoped to the caller's own notifications.
type Service interface {
	List(ctx context.Context, params pagination.Params, filters ListFilters, actor Actor) (*NotificationList, error)
	MarkRead(ctx context.Context, id uuid.UUID, actor Actor) error
	MarkAllRead(ctx context.Context, actor Actor) (int64, error)
	UnreadCount(ctx context.Context, actor Actor) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
}

// NewService builds a notification service.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params pagination.Params, filters ListFilters, actor Actor) (*NotificationList, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "caller identity required")
	}
	list, err := s.repo.List(ctx, actor.UserID, params, filters)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return list, nil
}

func (s *service) MarkRead(ctx context.Context, id uuid.UUID, actor Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "caller identity required")
	}
	if id == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "notification id required")
	}

	rows, err := s.repo.MarkRead(ctx, id, actor.UserID, time.Now())
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notification read")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "notification not found")
	}
	return nil
}

func (s *service) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	if actor.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "caller identity required")
	}
	rows, err := s.repo.MarkAllRead(ctx, actor.UserID, time.Now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return rows, nil
}

func (s *service) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	if actor.UserID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeForbidden, "caller identity required")
	}
	count, err := s.repo.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count unread notifications")
	}
	return count, nil
}
