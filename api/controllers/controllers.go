package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/api/middleware"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/pagination"
)

// callerIdentity is the authenticated caller as seeded by the auth middleware.
type callerIdentity struct {
	UserID uuid.UUID
	Role   enums.StaffRole
	Branch *string
}

func identityFromContext(ctx context.Context) (callerIdentity, error) {
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return callerIdentity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return callerIdentity{}, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid caller identity")
	}

	identity := callerIdentity{UserID: userID}
	if role, roleErr := enums.ParseStaffRole(middleware.RoleFromContext(ctx)); roleErr == nil {
		identity.Role = role
	}
	if branch := middleware.BranchFromContext(ctx); branch != "" {
		identity.Branch = &branch
	}
	return identity, nil
}

func paginationFromQuery(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	}, nil
}

func parseDecimal(value, field string) (decimal.Decimal, error) {
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, pkgerrors.New(pkgerrors.CodeValidation, field+" must be a decimal number").
			WithDetails(map[string]any{"field": field})
	}
	return parsed, nil
}

func parseDateQuery(r *http.Request, key string) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, key+" query parameter required").
			WithDetails(map[string]any{"field": key})
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, key+" must be formatted YYYY-MM-DD").
			WithDetails(map[string]any{"field": key})
	}
	return parsed, nil
}
