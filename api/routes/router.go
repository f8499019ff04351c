package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"github.com/pongshipping/forwarding-backend/api/controllers"
	"github.com/pongshipping/forwarding-backend/api/middleware"
	"github.com/pongshipping/forwarding-backend/internal/deliveries"
	"github.com/pongshipping/forwarding-backend/internal/notifications"
	"github.com/pongshipping/forwarding-backend/internal/packages"
	"github.com/pongshipping/forwarding-backend/internal/prealerts"
	"github.com/pongshipping/forwarding-backend/internal/staffstats"
	"github.com/pongshipping/forwarding-backend/internal/transfers"
	"github.com/pongshipping/forwarding-backend/pkg/config"
	"github.com/pongshipping/forwarding-backend/pkg/enums"
	"github.com/pongshipping/forwarding-backend/pkg/logger"
	pkgredis "github.com/pongshipping/forwarding-backend/pkg/redis"
)

// Dependencies carries everything the router needs to mount handlers.
type Dependencies struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *gorm.DB
	Redis  *pkgredis.Client

	PreAlerts     prealerts.Service
	Packages      packages.Service
	Transfers     transfers.Service
	Deliveries    deliveries.Service
	Notifications notifications.Service
	StaffStats    *staffstats.Recorder
}

// New assembles the HTTP router: health probes, the public tracking lookup,
// and the authenticated v1 API.
func New(deps Dependencies) http.Handler {
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(middleware.Recoverer(logg))
	r.Use(middleware.RequestID(logg))
	r.Use(middleware.Logging(logg))
	r.Use(middleware.CORS())

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive())
		r.Get("/ready", controllers.HealthReady(deps.DB, deps.Redis, logg))
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/public", func(r chi.Router) {
			r.Use(middleware.PublicRateLimit(deps.Redis, logg))
			r.Get("/track/{trackingNumber}", controllers.TrackPackage(deps.Packages, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(deps.Config.JWT, logg))
			r.Use(middleware.Idempotency(deps.Redis, logg))

			r.Route("/v1/prealerts", func(r chi.Router) {
				r.Post("/", controllers.CreatePreAlert(deps.PreAlerts, logg))
				r.Get("/", controllers.ListPreAlerts(deps.PreAlerts, logg))
				r.Route("/{prealertId}", func(r chi.Router) {
					r.Get("/", controllers.GetPreAlert(deps.PreAlerts, logg))
					r.Patch("/", controllers.UpdatePreAlert(deps.PreAlerts, logg))
					r.Delete("/", controllers.DeletePreAlert(deps.PreAlerts, logg))
					r.Post("/receipt", controllers.UploadPreAlertReceipt(deps.PreAlerts, logg))
					r.Delete("/receipt", controllers.DeletePreAlertReceipt(deps.PreAlerts, logg))
					r.Get("/receipt-url", controllers.PreAlertReceiptURL(deps.PreAlerts, logg))

					r.With(middleware.RequireAnyRole(logg, enums.PreAlertConfirmationRoles()...)).
						Post("/confirm", controllers.ConfirmPreAlert(deps.Packages, logg))
				})
			})

			r.Route("/v1/packages", func(r chi.Router) {
				r.With(middleware.RequireAnyRole(logg, enums.PackageAdminRoles()...)).
					Post("/", controllers.CreatePackage(deps.Packages, logg))
				r.Get("/", controllers.ListPackages(deps.Packages, logg))
				r.Route("/{packageId}", func(r chi.Router) {
					r.Get("/", controllers.GetPackage(deps.Packages, logg))
					r.Get("/history", controllers.PackageHistory(deps.Packages, logg))

					r.With(middleware.RequireAnyRole(logg, enums.PackageAdminRoles()...)).
						Patch("/", controllers.UpdatePackage(deps.Packages, logg))
					r.With(middleware.RequireAnyRole(logg, enums.PackageAdminRoles()...)).
						Delete("/", controllers.DeletePackage(deps.Packages, logg))

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireStaff(logg))
						r.Post("/status", controllers.TransitionPackageStatus(deps.Packages, logg))
						r.Post("/missing-prealert", controllers.RecordMissingPreAlert(deps.Packages, logg))
					})
				})
			})

			r.Route("/v1/transfers", func(r chi.Router) {
				r.Use(middleware.RequireAnyRole(logg, enums.TransferManagementRoles()...))

				r.Post("/", controllers.CreateTransfer(deps.Transfers, logg))
				r.Get("/", controllers.ListTransfers(deps.Transfers, logg))
				r.Route("/{transferId}", func(r chi.Router) {
					r.Get("/", controllers.GetTransfer(deps.Transfers, logg))
					r.Patch("/", controllers.UpdateTransferDetails(deps.Transfers, logg))
					r.Delete("/", controllers.DeleteTransfer(deps.Transfers, logg))
					r.Post("/status", controllers.UpdateTransferStatus(deps.Transfers, logg))
					r.Post("/packages", controllers.AddTransferPackages(deps.Transfers, logg))
					r.Delete("/packages/{packageId}", controllers.RemoveTransferPackage(deps.Transfers, logg))
					r.Post("/packages/{packageId}/check-off", controllers.CheckOffTransferPackage(deps.Transfers, logg))
				})
			})

			r.Route("/v1/deliveries", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))

				r.Post("/", controllers.DeliverPackage(deps.Deliveries, logg))
				r.Get("/ready", controllers.ReadyForPickupRoster(deps.Deliveries, logg))
				r.Get("/today", controllers.TodayDeliverySummary(deps.Deliveries, logg))
				r.Get("/staff/{staffId}", controllers.DeliveriesByStaff(deps.Deliveries, logg))
			})

			r.Route("/v1/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(deps.Notifications, logg))
				r.Get("/unread-count", controllers.UnreadNotificationCount(deps.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(deps.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(deps.Notifications, logg))
			})

			r.Route("/v1/staff/{staffId}", func(r chi.Router) {
				r.Use(middleware.RequireStaff(logg))

				r.Get("/performance", controllers.StaffPerformance(deps.StaffStats, logg))
				r.Get("/actions", controllers.StaffRecentActions(deps.StaffStats, logg))
			})
		})
	})

	return r
}
