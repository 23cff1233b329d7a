package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/stackwatch/stackwatch/internal/api/dto"
	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/utils"
	"github.com/stackwatch/stackwatch/internal/pkg/validator"
)

// ScannerConfigHandler manages scan engine configurations.
type ScannerConfigHandler struct {
	configs   scanner.Repository
	logger    *logger.Logger
	validator *validator.Validator
}

func NewScannerConfigHandler(configs scanner.Repository, log *logger.Logger, val *validator.Validator) *ScannerConfigHandler {
	return &ScannerConfigHandler{configs: configs, logger: log, validator: val}
}

func toScannerDTO(c *scanner.Config) dto.ScannerConfigDTO {
	return dto.ScannerConfigDTO{
		ID:        c.ID,
		Name:      c.Name,
		Username:  c.Username,
		URL:       c.URL,
		SSLVerify: c.SSLVerify,
	}
}

// List returns the configured scan engines, passwords withheld.
func (h *ScannerConfigHandler) List(w http.ResponseWriter, r *http.Request) {
	configs, err := h.configs.List(r.Context())
	if err != nil {
		writeError(w, err, "Failed to list scanner configs")
		return
	}

	dtos := make([]dto.ScannerConfigDTO, len(configs))
	for i, c := range configs {
		dtos[i] = toScannerDTO(c)
	}
	utils.WriteList(w, 1, len(dtos), int64(len(dtos)), dtos)
}

// Get returns one scan engine configuration.
func (h *ScannerConfigHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	c, err := h.configs.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err, "Failed to get scanner config")
		return
	}
	utils.WriteSuccess(w, http.StatusOK, toScannerDTO(c))
}

// Create registers a new scan engine.
func (h *ScannerConfigHandler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	id, err := h.configs.Create(r.Context(), &scanner.Config{
		Name:      req.Name,
		Username:  req.Username,
		Password:  req.Password,
		URL:       req.URL,
		SSLVerify: req.SSLVerify,
	})
	if err != nil {
		writeError(w, err, "Failed to create scanner config")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"engine": req.Name,
	}).Info("Scanner config created")
	utils.WriteSuccess(w, http.StatusCreated, map[string]int64{"id": id})
}

// Update replaces a scan engine configuration.
func (h *ScannerConfigHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}

	if err := h.configs.Update(r.Context(), &scanner.Config{
		ID:        id,
		Name:      req.Name,
		Username:  req.Username,
		Password:  req.Password,
		URL:       req.URL,
		SSLVerify: req.SSLVerify,
	}); err != nil {
		writeError(w, err, "Failed to update scanner config")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Scanner config updated", nil)
}

// Delete removes a scan engine configuration.
func (h *ScannerConfigHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		writeError(w, err, "")
		return
	}

	if err := h.configs.Delete(r.Context(), id); err != nil {
		writeError(w, err, "Failed to delete scanner config")
		return
	}
	utils.WriteSuccessWithMessage(w, http.StatusOK, "Scanner config deleted", nil)
}

func (h *ScannerConfigHandler) decode(w http.ResponseWriter, r *http.Request) (dto.ScannerConfigRequest, bool) {
	var req dto.ScannerConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, errors.BadRequest("Invalid request body"))
		return req, false
	}
	if verrs := h.validator.Validate(req); len(verrs) > 0 {
		utils.WriteError(w, errors.ValidationError("Validation failed", verrs))
		return req, false
	}
	return req, true
}
