package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/stackwatch/stackwatch/internal/api/dto"
	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
	"github.com/stackwatch/stackwatch/internal/pkg/validator"
	"github.com/stackwatch/stackwatch/internal/ticketing"
)

// IssueHandler serves audit issues and their justification workflow.
type IssueHandler struct {
	audits     audit.Repository
	items      item.Repository
	servicenow *ticketing.ServiceNow
	logger     *logger.Logger
	validator  *validator.Validator
}

func NewIssueHandler(audits audit.Repository, items item.Repository, sn *ticketing.ServiceNow,
	log *logger.Logger, val *validator.Validator) *IssueHandler {
	return &IssueHandler{
		audits:     audits,
		items:      items,
		servicenow: sn,
		logger:     log,
		validator:  val,
	}
}

// List returns issues with pagination and filtering.
func (h *IssueHandler) List(w http.ResponseWriter, r *http.Request) {
	p := utils.ParsePagination(r)
	q := r.URL.Query()

	minScore, _ := strconv.Atoi(q.Get("min_score"))
	filter := audit.Filter{
		Technology: q.Get("technology"),
		Account:    q.Get("account"),
		Justified:  boolQuery(r, "justified"),
		Fixed:      boolQuery(r, "fixed"),
		MinScore:   minScore,
	}

	issues, total, err := h.audits.List(r.Context(), filter, p.PageSize, p.Offset)
	if err != nil {
		writeError(w, err, "Failed to list issues")
		return
	}

	utils.WriteList(w, p.Page, len(issues), total, issues)
}

// Get returns a single issue by ID.
func (h *IssueHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	issue, err := h.audits.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get issue")
		return
	}

	utils.WriteSuccess(w, http.StatusOK, issue)
}

// Justify marks an issue as an accepted risk.
func (h *IssueHandler) Justify(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	var req dto.JustifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return
	}

	if err := h.audits.Justify(r.Context(), id, req.User, req.Justification); err != nil {
		writeError(w, err, "Failed to justify issue")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"issue_id": id,
		"user":     req.User,
	}).Info("Issue justified")
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Issue justified", nil)
}

// RemoveJustification clears a previous justification.
func (h *IssueHandler) RemoveJustification(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	if err := h.audits.RemoveJustification(r.Context(), id); err != nil {
		writeError(w, err, "Failed to remove justification")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusOK, "Justification removed", nil)
}

// OpenIncidentForItem files a ticketing incident for an item's highest
// scoring open issue.
func (h *IssueHandler) OpenIncidentForItem(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	it, err := h.items.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get item")
		return
	}
	issues, err := h.audits.ListByItem(r.Context(), it.ID, false)
	if err != nil {
		writeError(w, err, "Failed to list issues")
		return
	}
	var worst *audit.Issue
	for _, issue := range issues {
		if worst == nil || issue.Score > worst.Score {
			worst = issue
		}
	}
	if worst == nil {
		utils.WriteError(w, errors.NotFound("Issue"))
		return
	}
	rev, err := h.items.GetLatestRevision(r.Context(), it.ID)
	if err != nil {
		writeError(w, err, "Failed to load item revision")
		return
	}

	message, err := h.servicenow.OpenIncident(r.Context(), it, worst, rev.Config)
	if err != nil {
		writeError(w, err, "Failed to open incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusCreated, message, nil)
}

// ListAuditorSettings returns every auditor pairing with its disabled
// flag.
func (h *IssueHandler) ListAuditorSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.audits.ListAuditorSettings(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list auditor settings")
		return
	}
	utils.WriteList(w, 1, len(settings), int64(len(settings)), settings)
}

// SetAuditorDisabled toggles one auditor pairing.
func (h *IssueHandler) SetAuditorDisabled(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	var req dto.AuditorSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return
	}

	if err := h.audits.SetAuditorDisabled(r.Context(), id, req.Disabled); err != nil {
		writeError(w, err, "Failed to update auditor settings")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Auditor settings updated", nil)
}

// OpenIncident files a ticketing incident for an issue.
func (h *IssueHandler) OpenIncident(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	issue, err := h.audits.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get issue")
		return
	}
	it, err := h.items.GetByID(r.Context(), issue.ItemID)
	if err != nil {
		writeError(w, err, "Failed to get item")
		return
	}
	rev, err := h.items.GetLatestRevision(r.Context(), it.ID)
	if err != nil {
		writeError(w, err, "Failed to load item revision")
		return
	}

	message, err := h.servicenow.OpenIncident(r.Context(), it, issue, rev.Config)
	if err != nil {
		writeError(w, err, "Failed to open incident")
		return
	}

	utils.WriteSuccessWithMessage(w, http.StatusCreated, message, nil)
}
