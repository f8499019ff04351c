package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/pongshipping/forwarding-backend/api/responses"
	"github.com/pongshipping/forwarding-backend/api/validators"
	"github.com/pongshipping/forwarding-backend/internal/transfers"
	"github.com/pongshipping/forwarding-backend/pkg/db/models"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	pkgerrors "github.com/pongshipping/forwarding-backend/pkg/errors"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
)

type createTransferRequest struct {
	DestinationBranch string   `json:"destinationBranch" validate:"required,min=2,max=120"`
	PackageIDs        []string `json:"packageIds" validate:"required,min=1"`
	Notes             *string  `json:"notes" validate:"omitempty,max=500"`
}

func (req createTransferRequest) toInput() (transfers.CreateInput, error) {
	ids := make([]uuid.UUID, 0, len(req.PackageIDs))
	for _, raw := range req.PackageIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return transfers.CreateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "packageIds must be uuids")
		}
		ids = append(ids, id)
	}
	return transfers.CreateInput{
		DestinationBranch: req.DestinationBranch,
		PackageIDs:        ids,
		Notes:             req.Notes,
	}, nil
}

type addTransferPackagesRequest struct {
	PackageIDs []string `json:"packageIds" validate:"required,min=1"`
}

type checkOffRequest struct {
	Checked bool `json:"checked"`
}

type updateTransferStatusRequest struct {
	NewStatus string `json:"newStatus" validate:"required"`
}

type updateTransferDetailsRequest struct {
	DestinationBranch *string `json:"destinationBranch" validate:"omitempty,min=2,max=120"`
	Notes             *string `json:"notes" validate:"omitempty,max=500"`
}

type transferResponse struct {
	ID                uuid.UUID            `json:"id"`
	DestinationBranch string               `json:"destinationBranch"`
	Status            enums.TransferStatus `json:"status"`
	Notes             *string              `json:"notes,omitempty"`
	DispatchedAt      *time.Time           `json:"dispatchedAt,omitempty"`
	ArrivedAt         *time.Time           `json:"arrivedAt,omitempty"`
	CancelledAt       *time.Time           `json:"cancelledAt,omitempty"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

func transferFromModel(record *models.Transfer) transferResponse {
	return transferResponse{
		ID:                record.ID,
		DestinationBranch: record.DestinationBranch,
		Status:            record.Status,
		Notes:             record.Notes,
		DispatchedAt:      record.DispatchedAt,
		ArrivedAt:         record.ArrivedAt,
		CancelledAt:       record.CancelledAt,
		CreatedAt:         record.CreatedAt,
		UpdatedAt:         record.UpdatedAt,
	}
}

type transferSummaryResponse struct {
	transferResponse
	Packages   int `json:"packages"`
	CheckedOff int `json:"checkedOff"`
}

type transferListResponse struct {
	Items      []transferSummaryResponse `json:"items"`
	NextCursor string                    `json:"nextCursor,omitempty"`
}

type manifestEntryResponse struct {
	Package       packageResponse `json:"package"`
	CustomerName  string          `json:"customerName"`
	CustomerEmail string          `json:"customerEmail"`
	CheckedOff    bool            `json:"checkedOff"`
	CheckedOffAt  *time.Time      `json:"checkedOffAt,omitempty"`
}

type transferDetailResponse struct {
	transferResponse
	Entries []manifestEntryResponse `json:"entries"`
}

// CreateTransfer opens a new branch transfer manifest.
func CreateTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req createTransferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		input, err := req.toInput()
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.Create(ctx, input, transferActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transferFromModel(record))
	}
}

// GetTransfer returns the full manifest with its package entries.
func GetTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.Get(ctx, id, transferActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := transferDetailResponse{
			transferResponse: transferFromModel(&detail.Transfer),
			Entries:          make([]manifestEntryResponse, 0, len(detail.Entries)),
		}
		for i := range detail.Entries {
			entry := &detail.Entries[i]
			resp.Entries = append(resp.Entries, manifestEntryResponse{
				Package:       packageFromModel(&entry.Package),
				CustomerName:  entry.CustomerName,
				CustomerEmail: entry.CustomerEmail,
				CheckedOff:    entry.Membership.CheckedOff,
				CheckedOffAt:  entry.Membership.CheckedOffAt,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// ListTransfers pages through manifests with optional status and branch filters.
func ListTransfers(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
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

		var filters transfers.ListFilters
		if raw := r.URL.Query().Get("status"); raw != "" {
			status, parseErr := enums.ParseTransferStatus(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown transfer status"))
				return
			}
			filters.Status = &status
		}
		if raw := r.URL.Query().Get("destinationBranch"); raw != "" {
			filters.DestinationBranch = &raw
		}

		page, err := svc.List(ctx, transferActor(identity), params, filters)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		resp := transferListResponse{
			Items:      make([]transferSummaryResponse, 0, len(page.Items)),
			NextCursor: page.NextCursor,
		}
		for i := range page.Items {
			item := &page.Items[i]
			resp.Items = append(resp.Items, transferSummaryResponse{
				transferResponse: transferFromModel(&item.Transfer),
				Packages:         item.Packages,
				CheckedOff:       item.CheckedOff,
			})
		}
		responses.WriteSuccess(w, resp)
	}
}

// AddTransferPackages appends packages to a manifest still in its created state.
func AddTransferPackages(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req addTransferPackagesRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		ids := make([]uuid.UUID, 0, len(req.PackageIDs))
		for _, raw := range req.PackageIDs {
			packageID, parseErr := uuid.Parse(raw)
			if parseErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "packageIds must be uuids"))
				return
			}
			ids = append(ids, packageID)
		}

		added, err := svc.AddPackages(ctx, id, ids, transferActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]int{"added": added})
	}
}

// RemoveTransferPackage drops a package from a manifest still in its created state.
func RemoveTransferPackage(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		packageID, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.RemovePackage(ctx, id, packageID, transferActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

// CheckOffTransferPackage toggles the loaded flag on a manifest entry.
func CheckOffTransferPackage(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		packageID, err := validators.ParsePathUUID(chi.URLParam(r, "packageId"), "packageId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req checkOffRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.SetCheckedOff(ctx, id, packageID, req.Checked, transferActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"checked": req.Checked})
	}
}

// UpdateTransferStatus moves a manifest through dispatch, arrival, or cancellation.
func UpdateTransferStatus(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateTransferStatusRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		status, err := enums.ParseTransferStatus(req.NewStatus)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "unknown transfer status"))
			return
		}

		record, err := svc.UpdateStatus(ctx, id, status, transferActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transferFromModel(record))
	}
}

// UpdateTransferDetails patches the destination branch or notes.
func UpdateTransferDetails(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateTransferDetailsRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		record, err := svc.UpdateDetails(ctx, id, transfers.UpdateDetailsInput{
			DestinationBranch: req.DestinationBranch,
			Notes:             req.Notes,
		}, transferActor(identity))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, transferFromModel(record))
	}
}

// DeleteTransfer removes a manifest that was never dispatched.
func DeleteTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}

		identity, err := identityFromContext(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		id, err := validators.ParsePathUUID(chi.URLParam(r, "transferId"), "transferId")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if err := svc.Delete(ctx, id, transferActor(identity)); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

func transferActor(identity callerIdentity) transfers.Actor {
	return transfers.Actor{UserID: identity.UserID, Role: identity.Role, Branch: identity.Branch}
}
