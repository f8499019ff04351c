package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/api/responses"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/internal/prealerts"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

const maxReceiptUploadBytes = 10 << 20

type createPreAlertRequest struct {
	Courier         string `json:"courier" validate:"omitempty,max=120"`
	CarrierTracking string `json:"carrierTracking" validate:"required,min=3,max=120"`
	Description     string `json:"description" validate:"required,min=3,max=500"`
	DeclaredValue   string `json:"declaredValue" validate:"required"`
}

func (req createPreAlertRequest) toInput(userID uuid.UUID) (prealerts.CreateInput, error) {
	declared, err := parseDecimal(req.DeclaredValue, "declaredValue")
	if err != nil {
		return prealerts.CreateInput{}, err
	}
	return prealerts.CreateInput{
		UserID:          userID,
		Courier:         req.Courier,
		CarrierTracking: req.CarrierTracking,
		Description:     req.Description,
		DeclaredValue:   declared,
	}, nil
}

type updatePreAlertRequest struct {
	Courier         *string `json:"courier" validate:"omitempty,max=120"`
	CarrierTracking *string `json:"carrierTracking" validate:"omitempty,min=3,max=120"`
	Description     *string `json:"description" validate:"omitempty,min=3,max=500"`
	DeclaredValue   *string `json:"declaredValue"`
}

func (req updatePreAlertRequest) toInput() (prealerts.UpdateInput, error) {
	patch := prealerts.UpdateInput{
		Courier:         req.Courier,
		CarrierTracking: req.CarrierTracking,
		Description:     req.Description,
	}
	if req.DeclaredValue != nil {
		declared, err := parseDecimal(*req.DeclaredValue, "declaredValue")
		if err != nil {
			return prealerts.UpdateInput{}, err
		}
		patch.DeclaredValue = &declared
	}
	return patch, nil
}

type preAlertResponse struct {
	ID              uuid.UUID            `json:"id"`
	UserID          uuid.UUID            `json:"userId"`
	Courier         string               `json:"courier"`
	CarrierTracking string               `json:"carrierTracking"`
	Description     string               `json:"description"`
	DeclaredValue   decimal.Decimal      `json:"declaredValue"`
	Status          enums.PreAlertStatus `json:"status"`
	HasReceipt      bool                 `json:"hasReceipt"`
	PackageID       *uuid.UUID           `json:"packageId,omitempty"`
	ConfirmedAt     *time.Time           `json:"confirmedAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

func preAlertFromModel(record *models.PreAlert) preAlertResponse {
	return preAlertResponse{
		ID:              record.ID,
		UserID:          record.UserID,
		Courier:         record.Courier,
		CarrierTracking: record.CarrierTracking,
		Description:     record.Description,
		DeclaredValue:   record.DeclaredValue,
		Status:          record.Status,
		HasReceipt:      record.ReceiptObjectPath != nil,
		PackageID:       record.PackageID,
		ConfirmedAt:     record.ConfirmedAt,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

type preAlertListResponse struct {
	Items      []preAlertResponse `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// CreatePreAlert registers a customer's inbound shipment notice.
func CreatePreAlert(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createPreAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input, err := req.toInput(identity.UserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, preAlertFromModel(record))
	}
}

// GetPreAlert returns one pre-alert visible to the caller.
func GetPreAlert(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Get(ctx, id, prealertActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preAlertFromModel(record))
	}
}

// ListPreAlerts pages through pre-alerts. Customers see their own; staff can
// filter by user and status.
func ListPreAlerts(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		params, err := paginationFromQuery(r)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var filters prealerts.ListFilters
		if raw := r.URL.Query().Get("userId"); raw != "" {
			userID, parseErr := validators.ParsePathUUID(raw, "userId")
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, parseErr)
				return
			}
			filters.UserID = &userID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParsePreAlertStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown prealert status"))
				return
			}
			filters.Status = &status
		}

		page, err := svc.List(ctx, prealertActor(identity), params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := preAlertListResponse{
			Items:      make([]preAlertResponse, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Items {
			resp.Items = append(resp.Items, preAlertFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// UpdatePreAlert applies a partial patch to an unconfirmed pre-alert.
func UpdatePreAlert(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updatePreAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		patch, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Update(ctx, id, patch, prealertActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preAlertFromModel(record))
	}
}

// DeletePreAlert removes an unconfirmed pre-alert.
func DeletePreAlert(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id, prealertActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// UploadPreAlertReceipt attaches a purchase receipt file to a pre-alert.
func UploadPreAlertReceipt(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := r.ParseMultipartForm(maxReceiptUploadBytes); err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "multipart form required"))
			return
		}
		file, header, err := r.FormFile("receipt")
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "receipt file required"))
			return
		}
		defer file.Close()

		record, err := svc.AttachReceipt(ctx, id, prealertActor(identity), header.Filename, header.Header.Get("Content-Type"), file)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, preAlertFromModel(record))
	}
}

// DeletePreAlertReceipt detaches and removes the stored receipt.
func DeletePreAlertReceipt(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.DeleteReceipt(ctx, id, prealertActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// PreAlertReceiptURL returns a short-lived signed download link for the receipt.
func PreAlertReceiptURL(svc prealerts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "prealert service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		url, err := svc.ReceiptDownloadURL(ctx, id, prealertActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"url": url})
	}
}

func prealertActor(identity callerIdentity) prealerts.Actor {
	return prealerts.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
}
