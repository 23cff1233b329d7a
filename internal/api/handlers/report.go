package handlers

import (
	"net/http"

	"github.com/stackwatch/stackwatch/internal/pipeline"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
	"github.com/stackwatch/stackwatch/internal/reporting"
)

// ReportHandler serves the open-issue feed and triggers scan cycles.
type ReportHandler struct {
	reports  *reporting.Service
	pipeline *pipeline.Pipeline
	logger   *logger.Logger
}

func NewReportHandler(reports *reporting.Service, p *pipeline.Pipeline, log *logger.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, pipeline: p, logger: log}
}

// Feed returns the open reportable issues.
func (h *ReportHandler) Feed(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePagination(r)

	feed, err := h.reports.Feed(r.Context(), accountsQuery(r), p.PageSize)
	if err != nil {
		writeError(w, err, "Failed to build issue feed")
		return
	}

	utils.WriteList(w, p.Page, feed.Count, int64(feed.Count), feed.Items)
}

// Poam returns open issues formatted as plan-of-action rows.
func (h *ReportHandler) Poam(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePagination(r)

	rows, err := h.reports.Poam(r.Context(), accountsQuery(r), p.PageSize, p.Offset)
	if err != nil {
		writeError(w, err, "Failed to build poam summary")
		return
	}

	utils.WriteList(w, p.Page, len(rows), int64(len(rows)), rows)
}

// Scan runs the slurp and audit cycle for one technology on demand.
func (h *ReportHandler) Scan(w http.ResponseWriter, r *http.Request) {
	technology := r.URL.Query().Get("technology")

	if technology == "" {
		summaries := h.pipeline.Run(r.Context())
		utils.WriteSuccess(w, http.StatusOK, summaries)
		return
	}

	summary, err := h.pipeline.RunTechnology(r.Context(), technology)
	if err != nil {
		writeError(w, err, "Scan failed")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, summary)
}
