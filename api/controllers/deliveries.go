package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/api/responses"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/internal/deliveries"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

type deliverPackageRequest struct {
	PackageID  string  `json:"packageId" validate:"required"`
	ReceivedBy string  `json:"receivedBy" validate:"required,min=2,max=200"`
	Method     string  `json:"method" validate:"required"`
	Notes      *string `json:"notes" validate:"omitempty,max=500"`
}

func (req deliverPackageRequest) toInput() (deliveries.DeliverInput, error) {
	packageID, err := uuid.Parse(req.PackageID)
	if err != nil {
		return deliveries.DeliverInput{}, pkgerrors.New(pkgerrors.CodeValidation, "packageId must be a uuid")
	}
	method, err := enums.ParsePaymentMethod(req.Method)
	if err != nil {
		return deliveries.DeliverInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}
	return deliveries.DeliverInput{
		PackageID:  packageID,
		ReceivedBy: req.ReceivedBy,
		Method:     method,
		Notes:      req.Notes,
	}, nil
}

type deliveryReceiptResponse struct {
	DeliveryID      uuid.UUID       `json:"deliveryId"`
	PackageID       uuid.UUID       `json:"packageId"`
	PackageRef      string          `json:"packageRef"`
	TransactionID   string          `json:"transactionId"`
	DeliveredAt     time.Time       `json:"deliveredAt"`
	ReceivedBy      string          `json:"receivedBy"`
	AmountCollected decimal.Decimal `json:"amountCollected"`
}

type customerGroupResponse struct {
	CustomerID    uuid.UUID         `json:"customerId"`
	CustomerName  string            `json:"customerName"`
	CustomerEmail string            `json:"customerEmail"`
	Packages      []packageResponse `json:"packages"`
	TotalDue      decimal.Decimal   `json:"totalDue"`
}

type deliveryRecordResponse struct {
	DeliveryID  uuid.UUID       `json:"deliveryId"`
	DeliveredAt time.Time       `json:"deliveredAt"`
	ReceivedBy  string          `json:"receivedBy"`
	Package     packageResponse `json:"package"`
	Amount      decimal.Decimal `json:"amount"`
}

func deliveryRecordsFromDTO(records []deliveries.DeliveryRecord) []deliveryRecordResponse {
	out := make([]deliveryRecordResponse, 0, len(records))
	for i := range records {
		record := &records[i]
		out = append(out, deliveryRecordResponse{
			DeliveryID:  record.Delivery.ID,
			DeliveredAt: record.Delivery.DeliveredAt,
			ReceivedBy:  record.Delivery.ReceivedBy,
			Package:     packageFromModel(&record.Package),
			Amount:      record.Amount,
		})
	}
	return out
}

// DeliverPackage hands over a package and settles its payment in one step.
func DeliverPackage(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req deliverPackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		receipt, err := svc.Deliver(ctx, input, deliveryActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, deliveryReceiptResponse{
			DeliveryID:      receipt.DeliveryID,
			PackageID:       receipt.PackageID,
			PackageRef:      receipt.PackageRef,
			TransactionID:   receipt.TransactionID,
			DeliveredAt:     receipt.DeliveredAt,
			ReceivedBy:      receipt.ReceivedBy,
			AmountCollected: receipt.AmountCollected,
		})
	}
}

// ReadyForPickupRoster lists ready packages grouped per customer with the
// amount owed, optionally scoped to one branch.
func ReadyForPickupRoster(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var branch *string
		if raw := r.URL.Query().Get("branch"); raw != "" {
			branch = &raw
		}

		groups, err := svc.ReadyForPickupRoster(ctx, branch, deliveryActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := make([]customerGroupResponse, 0, len(groups))
		for i := range groups {
			group := &groups[i]
			pkgs := make([]packageResponse, 0, len(group.Packages))
			for j := range group.Packages {
				pkgs = append(pkgs, packageFromModel(&group.Packages[j]))
			}
			resp = append(resp, customerGroupResponse{
				CustomerID:    group.CustomerID,
				CustomerName:  group.CustomerName,
				CustomerEmail: group.CustomerEmail,
				Packages:      pkgs,
				TotalDue:      group.TotalDue,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// TodayDeliverySummary reports the calling branch's deliveries for the current day.
func TodayDeliverySummary(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		summary, err := svc.TodaySummary(ctx, deliveryActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"date":      summary.Date.Format("2006-01-02"),
			"count":     summary.Count,
			"collected": summary.Collected,
			"records":   deliveryRecordsFromDTO(summary.Records),
		})
	}
}

// DeliveriesByStaff lists one staff member's deliveries inside a date range.
func DeliveriesByStaff(svc deliveries.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		staffID, err := validators.ParsePathUUID(chi.URLParam(r, "staffId"), "staffId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		from, err := parseDateQuery(r, "from")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		to, err := parseDateQuery(r, "to")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		records, err := svc.ByStaff(ctx, staffID, from, to.AddDate(0, 0, 1), deliveryActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, deliveryRecordsFromDTO(records))
	}
}

func deliveryActor(identity callerIdentity) deliveries.Actor {
	return deliveries.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
}
