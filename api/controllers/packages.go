package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pongshipping/forwarding-backend/api/responses"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/internal/packages"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

type createPackageRequest struct {
	UserID      string  `json:"userId" validate:"required"`
	Description string  `json:"description" validate:"required,min=3,max=500"`
	Dimensions  *string `json:"dimensions" validate:"omitempty,max=120"`
	WeightLbs   string  `json:"weightLbs" validate:"required"`
	Cost        string  `json:"cost" validate:"required"`
	Branch      string  `json:"branch" validate:"required,min=2,max=120"`
	Status      *string `json:"status"`
}

func (req createPackageRequest) toInput() (packages.CreateInput, error) {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return packages.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "userId must be a uuid")
	}
	weight, err := parseDecimal(req.WeightLbs, "weightLbs")
	if err != nil {
		return packages.CreateInput{}, err
	}
	cost, err := parseDecimal(req.Cost, "cost")
	if err != nil {
		return packages.CreateInput{}, err
	}

	input := packages.CreateInput{
		UserID:      userID,
		Description: req.Description,
		Dimensions:  req.Dimensions,
		WeightLbs:   weight,
		Cost:        cost,
		Branch:      req.Branch,
	}
	if req.Status != nil {
		status, parseErr := enums.ParsePackageStatus(*req.Status)
		if parseErr != nil {
			return packages.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown package status")
		}
		input.Status = &status
	}
	return input, nil
}

type confirmPreAlertRequest struct {
	Dimensions *string `json:"dimensions" validate:"omitempty,max=120"`
	WeightLbs  string  `json:"weightLbs" validate:"required"`
	Cost       *string `json:"cost"`
	Branch     string  `json:"branch" validate:"required,min=2,max=120"`
	Note       *string `json:"note" validate:"omitempty,max=500"`
}

func (req confirmPreAlertRequest) toInput(preAlertID uuid.UUID) (packages.CreateFromPreAlertInput, error) {
	weight, err := parseDecimal(req.WeightLbs, "weightLbs")
	if err != nil {
		return packages.CreateFromPreAlertInput{}, err
	}
	input := packages.CreateFromPreAlertInput{
		PreAlertID: preAlertID,
		Dimensions: req.Dimensions,
		WeightLbs:  weight,
		Branch:     req.Branch,
		Note:       req.Note,
	}
	if req.Cost != nil {
		cost, parseErr := parseDecimal(*req.Cost, "cost")
		if parseErr != nil {
			return packages.CreateFromPreAlertInput{}, parseErr
		}
		input.Cost = &cost
	}
	return input, nil
}

type transitionPackageRequest struct {
	NewStatus            string  `json:"newStatus" validate:"required"`
	Note                 *string `json:"note" validate:"omitempty,max=500"`
	FinalCost            *string `json:"finalCost"`
	AllowRegression      bool    `json:"allowRegression"`
	SuppressNotification bool    `json:"suppressNotification"`
}

func (req transitionPackageRequest) toInput() (packages.TransitionInput, error) {
	status, err := enums.ParsePackageStatus(req.NewStatus)
	if err != nil {
		return packages.TransitionInput{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown package status")
	}
	input := packages.TransitionInput{
		NewStatus:            status,
		Note:                 req.Note,
		AllowRegression:      req.AllowRegression,
		SuppressNotification: req.SuppressNotification,
	}
	if req.FinalCost != nil {
		cost, parseErr := parseDecimal(*req.FinalCost, "finalCost")
		if parseErr != nil {
			return packages.TransitionInput{}, parseErr
		}
		input.FinalCost = &cost
	}
	return input, nil
}

type updatePackageRequest struct {
	Description *string `json:"description" validate:"omitempty,min=3,max=500"`
	Dimensions  *string `json:"dimensions" validate:"omitempty,max=120"`
	WeightLbs   *string `json:"weightLbs"`
	Cost        *string `json:"cost"`
	Branch      *string `json:"branch" validate:"omitempty,min=2,max=120"`
}

func (req updatePackageRequest) toInput() (packages.UpdateInput, error) {
	patch := packages.UpdateInput{
		Description: req.Description,
		Dimensions:  req.Dimensions,
		Branch:      req.Branch,
	}
	if req.WeightLbs != nil {
		weight, err := parseDecimal(*req.WeightLbs, "weightLbs")
		if err != nil {
			return packages.UpdateInput{}, err
		}
		patch.WeightLbs = &weight
	}
	if req.Cost != nil {
		cost, err := parseDecimal(*req.Cost, "cost")
		if err != nil {
			return packages.UpdateInput{}, err
		}
		patch.Cost = &cost
	}
	return patch, nil
}

type missingPreAlertRequest struct {
	Message string `json:"message" validate:"required,min=3,max=500"`
}

type packageResponse struct {
	ID             uuid.UUID           `json:"id"`
	PackageID      string              `json:"packageId"`
	TrackingNumber string              `json:"trackingNumber"`
	UserID         uuid.UUID           `json:"userId"`
	PreAlertID     *uuid.UUID          `json:"preAlertId,omitempty"`
	Description    string              `json:"description"`
	Dimensions     *string             `json:"dimensions,omitempty"`
	WeightLbs      decimal.Decimal     `json:"weightLbs"`
	Cost           decimal.Decimal     `json:"cost"`
	FinalCost      *decimal.Decimal    `json:"finalCost,omitempty"`
	Status         enums.PackageStatus `json:"status"`
	Branch         string              `json:"branch"`
	CreatedAt      time.Time           `json:"createdAt"`
	UpdatedAt      time.Time           `json:"updatedAt"`
}

func packageFromModel(record *models.Package) packageResponse {
	return packageResponse{
		ID:             record.ID,
		PackageID:      record.PackageID,
		TrackingNumber: record.TrackingNumber,
		UserID:         record.UserID,
		PreAlertID:     record.PreAlertID,
		Description:    record.Description,
		Dimensions:     record.Dimensions,
		WeightLbs:      record.WeightLbs,
		Cost:           record.Cost,
		FinalCost:      record.FinalCost,
		Status:         record.Status,
		Branch:         record.Branch,
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
	}
}

type packageListResponse struct {
	Items      []packageResponse `json:"items"`
	NextCursor string            `json:"nextCursor,omitempty"`
}

type trackingEventResponse struct {
	FromStatus *enums.PackageStatus `json:"fromStatus,omitempty"`
	ToStatus   enums.PackageStatus  `json:"toStatus"`
	Regression bool                 `json:"regression"`
	Note       *string              `json:"note,omitempty"`
	OccurredAt time.Time            `json:"occurredAt"`
}

func trackingEventsFromModels(events []models.PackageTrackingEvent) []trackingEventResponse {
	out := make([]trackingEventResponse, 0, len(events))
	for i := range events {
		out = append(out, trackingEventResponse{
			FromStatus: events[i].FromStatus,
			ToStatus:   events[i].ToStatus,
			Regression: events[i].Regression,
			Note:       events[i].Note,
			OccurredAt: events[i].CreatedAt,
		})
	}
	return out
}

type trackingResponse struct {
	PackageID      string                  `json:"packageId"`
	TrackingNumber string                  `json:"trackingNumber"`
	Description    string                  `json:"description"`
	Status         enums.PackageStatus     `json:"status"`
	Branch         string                  `json:"branch"`
	Events         []trackingEventResponse `json:"events"`
}

// CreatePackage intakes a package directly, without a matching pre-alert.
func CreatePackage(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createPackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Create(ctx, input, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, packageFromModel(record))
	}
}

// ConfirmPreAlert intakes a package against an existing pre-alert, confirming
// it in the same transaction.
func ConfirmPreAlert(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		preAlertID, err := validators.ParsePathUUID(chi.URLParam(r, "prealertId"), "prealertId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req confirmPreAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput(preAlertID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.CreateFromPreAlert(ctx, input, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, packageFromModel(record))
	}
}

// GetPackage returns one package visible to the caller.
func GetPackage(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Get(ctx, id, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, packageFromModel(record))
	}
}

// ListPackages pages through packages. Customers see their own; staff can
// filter by user, status, and branch.
func ListPackages(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
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

		var filters packages.ListFilters
		if raw := r.URL.Query().Get("userId"); raw != "" {
			userID, parseErr := validators.ParsePathUUID(raw, "userId")
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, parseErr)
				return
			}
			filters.UserID = &userID
		}
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParsePackageStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown package status"))
				return
			}
			filters.Status = &status
		}
		if raw := r.URL.Query().Get("branch"); raw != "" {
			filters.Branch = &raw
		}

		page, err := svc.List(ctx, packageActor(identity), params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := packageListResponse{
			Items:      make([]packageResponse, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Items {
			resp.Items = append(resp.Items, packageFromModel(&page.Items[i]))
		}
		responses.WriteSuccess(w, resp)
	}
}

// TransitionPackageStatus moves a package along the forwarding pipeline.
func TransitionPackageStatus(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req transitionPackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.TransitionStatus(ctx, id, input, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, packageFromModel(record))
	}
}

// UpdatePackage applies a partial patch to package intake details.
func UpdatePackage(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updatePackageRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		patch, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Update(ctx, id, patch, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, packageFromModel(record))
	}
}

// DeletePackage removes a package that has not been delivered.
func DeletePackage(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id, packageActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

// PackageHistory returns the full status event trail for one package.
func PackageHistory(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := svc.History(ctx, id, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, trackingEventsFromModels(events))
	}
}

// RecordMissingPreAlert files a notice that a received package has no
// matching pre-alert, nudging the customer to file one.
func RecordMissingPreAlert(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req missingPreAlertRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		notice, err := svc.RecordMissingPreAlertNotice(ctx, id, req.Message, packageActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"id":        notice.ID,
			"packageId": notice.PackageID,
			"message":   notice.Message,
			"createdAt": notice.CreatedAt,
		})
	}
}

// TrackPackage is the public, unauthenticated tracking lookup.
func TrackPackage(svc packages.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "package service unavailable"))
			return
		}

		trackingNumber := strings.TrimSpace(chi.URLParam(r, "trackingNumber"))
		if trackingNumber == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "tracking number required"))
			return
		}

		result, err := svc.FindByTracking(ctx, trackingNumber)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		responses.WriteSuccess(w, trackingResponse{
			PackageID:      result.Package.PackageID,
			TrackingNumber: result.Package.TrackingNumber,
			Description:    result.Package.Description,
			Status:         result.Package.Status,
			Branch:         result.Package.Branch,
			Events:         trackingEventsFromModels(result.Events),
		})
	}
}

func packageActor(identity callerIdentity) packages.Actor {
	return packages.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
}
