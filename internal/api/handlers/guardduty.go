package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stackwatch/stackwatch/internal/ingest"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
	"github.com/stackwatch/stackwatch/internal/reporting"
)

// GuardDutyHandler accepts pushed findings and serves the probe
// aggregation views.
type GuardDutyHandler struct {
	ingest  *ingest.Service
	reports *reporting.Service
	logger  *logger.Logger
}

func NewGuardDutyHandler(svc *ingest.Service, reports *reporting.Service, log *logger.Logger) *GuardDutyHandler {
	return &GuardDutyHandler{ingest: svc, reports: reports, logger: log}
}

// ingestEnvelope is the CloudWatch Events payload shape: the finding
// sits under detail. The detail is kept raw so nothing the event
// carries is lost on storage.
type ingestEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

// Ingest stores one pushed finding as an item with a scored issue.
func (h *GuardDutyHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var envelope ingestEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid event payload"))
		return
	}
	if len(envelope.Detail) == 0 {
		utils.WriteError(w, errors.BadRequest("Invalid event payload"))
		return
	}

	it, err := h.ingest.GuardDuty(r.Context(), envelope.Detail)
	if err != nil {
		writeError(w, err, "Failed to store event")
		return
	}

	utils.WriteSuccess(w, http.StatusCreated, map[string]interface{}{
		"id":     it.ID,
		"config": envelope.Detail,
	})
}

// WorldMap aggregates open port probe findings by source coordinates.
func (h *GuardDutyHandler) WorldMap(w http.ResponseWriter, r *http.Request) {
	probes, err := h.reports.WorldMap(r.Context(), accountsQuery(r))
	if err != nil {
		writeError(w, err, "Failed to aggregate probe locations")
		return
	}
	utils.WriteList(w, 1, len(probes), int64(len(probes)), probes)
}

// TopCountries returns the ten most probing source countries.
func (h *GuardDutyHandler) TopCountries(w http.ResponseWriter, r *http.Request) {
	countries, err := h.reports.TopCountries(r.Context(), accountsQuery(r), 10)
	if err != nil {
		writeError(w, err, "Failed to aggregate probe countries")
		return
	}
	utils.WriteList(w, 1, len(countries), int64(len(countries)), countries)
}
