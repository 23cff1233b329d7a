package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/stackwatch/stackwatch/internal/api/handlers"
	"github.com/stackwatch/stackwatch/internal/api/middleware"
	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/metrics"
)

type Handlers struct {
	Health        *handlers.HealthHandler
	Account       *handlers.AccountHandler
	Item          *handlers.ItemHandler
	Issue         *handlers.IssueHandler
	Chart         *handlers.ChartHandler
	GuardDuty     *handlers.GuardDutyHandler
	ScannerConfig *handlers.ScannerConfigHandler
	Report        *handlers.ReportHandler
}

func New(cfg *config.Config, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	r.Use(middleware.RateLimit(100, 200)) // 100 req/sec, burst of 200
	r.Use(metrics.Middleware)

	// Health checks and metrics
	r.Get("/health", h.Health.Healthz)
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	// Legacy surface, paths kept stable for CloudWatch Events delivery
	// and the existing dashboard.
	r.Route("/api/1", func(r chi.Router) {
		r.Post("/gde", h.GuardDuty.Ingest)
		r.Get("/vulnbytech", h.Chart.VulnerabilitiesByTechnology)
		r.Get("/vulnbyseverity", h.Chart.VulnerabilitiesBySeverity)
		r.Get("/issuescountbymonth", h.Chart.IssuesCountByMonth)
		r.Get("/poamitems", h.Report.Poam)
		r.Get("/worldmapguarddutydata", h.GuardDuty.WorldMap)
		r.Get("/top10countryguarddutydata", h.GuardDuty.TopCountries)
	})

	// Ticketing addressed by item, as the legacy dashboard links it
	r.Get("/servicenow/report/item/{id}", h.Issue.OpenIncidentForItem)

	r.Route("/api/v1", func(r chi.Router) {
		// Accounts
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.Account.List)
			r.Get("/{id}", h.Account.Get)
		})

		// Items
		r.Route("/items", func(r chi.Router) {
			r.Get("/", h.Item.List)
			r.Get("/{id}", h.Item.Get)
			r.Get("/{id}/revisions", h.Item.Revisions)
		})

		// Issues
		r.Route("/issues", func(r chi.Router) {
			r.Get("/", h.Issue.List)
			r.Get("/{id}", h.Issue.Get)
			r.Post("/{id}/justify", h.Issue.Justify)
			r.Delete("/{id}/justify", h.Issue.RemoveJustification)
			r.Post("/{id}/incident", h.Issue.OpenIncident)
		})

		// Auditor pairings
		r.Route("/auditorsettings", func(r chi.Router) {
			r.Get("/", h.Issue.ListAuditorSettings)
			r.Put("/{id}", h.Issue.SetAuditorDisabled)
		})

		// Charts
		r.Route("/charts", func(r chi.Router) {
			r.Get("/vulnbytech", h.Chart.VulnerabilitiesByTechnology)
			r.Get("/vulnbyseverity", h.Chart.VulnerabilitiesBySeverity)
			r.Get("/issuescountbymonth", h.Chart.IssuesCountByMonth)
		})

		// Threat detection views
		r.Route("/guardduty", func(r chi.Router) {
			r.Get("/worldmap", h.GuardDuty.WorldMap)
			r.Get("/top10country", h.GuardDuty.TopCountries)
		})

		// Scan engine configs
		r.Route("/scanners", func(r chi.Router) {
			r.Get("/", h.ScannerConfig.List)
			r.Post("/", h.ScannerConfig.Create)
			r.Get("/{id}", h.ScannerConfig.Get)
			r.Put("/{id}", h.ScannerConfig.Update)
			r.Delete("/{id}", h.ScannerConfig.Delete)
		})

		// Reports
		r.Get("/reports/feed", h.Report.Feed)
		r.Get("/reports/poam", h.Report.Poam)
		r.Post("/scan", h.Report.Scan)
	})

	return r
}
