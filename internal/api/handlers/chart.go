package handlers

import (
	"net/http"

	"github.com/stackwatch/stackwatch/internal/domain/report"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
	"github.com/stackwatch/stackwatch/internal/reporting"
)

// ChartHandler serves the aggregations behind the dashboard charts. All
// endpoints accept a comma-separated accounts parameter.
type ChartHandler struct {
	reports *reporting.Service
	logger  *logger.Logger
}

func NewChartHandler(reports *reporting.Service, log *logger.Logger) *ChartHandler {
	return &ChartHandler{reports: reports, logger: log}
}

// VulnerabilitiesByTechnology returns open issue counts per technology
// with their share of the total.
func (h *ChartHandler) VulnerabilitiesByTechnology(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reports.VulnerabilitiesByTechnology(r.Context(), accountsQuery(r))
	if err != nil {
		writeError(w, err, "Failed to aggregate issues by technology")
		return
	}
	utils.WriteList(w, 1, len(counts), int64(len(counts)), counts)
}

// VulnerabilitiesBySeverity returns open issue counts per severity band.
func (h *ChartHandler) VulnerabilitiesBySeverity(w http.ResponseWriter, r *http.Request) {
	counts, err := h.reports.VulnerabilitiesBySeverity(r.Context(), accountsQuery(r))
	if err != nil {
		writeError(w, err, "Failed to aggregate issues by severity")
		return
	}
	utils.WriteList(w, 1, len(counts), int64(len(counts)), counts)
}

// IssuesCountByMonth returns issue counts per month, optionally
// filtered by severity band and technology.
func (h *ChartHandler) IssuesCountByMonth(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := report.MonthFilter{
		Severity:   q.Get("severity"),
		Technology: q.Get("technology"),
		Accounts:   accountsQuery(r),
	}

	counts, err := h.reports.IssuesByMonth(r.Context(), filter)
	if err != nil {
		writeError(w, err, "Failed to aggregate issues by month")
		return
	}
	utils.WriteList(w, 1, len(counts), int64(len(counts)), counts)
}
