// Package ticketing opens incidents for audit issues in an external
// ticketing system.
package ticketing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
)

const requestTimeout = 30 * time.Second

// incidentPayload is the ServiceNow incident table record.
type incidentPayload struct {
	CausedBy         string `json:"caused_by"`
	ShortDescription string `json:"short_description"`
	Impact           int    `json:"impact"`
	Description      string `json:"description"`
}

type incidentResponse struct {
	Result struct {
		Number string `json:"number"`
	} `json:"result"`
}

// ServiceNow opens incidents over the table API with basic auth.
type ServiceNow struct {
	cfg    config.ServiceNowConfig
	client *http.Client
	logger *logger.Logger
}

func NewServiceNow(cfg config.ServiceNowConfig, log *logger.Logger) *ServiceNow {
	return &ServiceNow{
		cfg:    cfg,
		client: &http.Client{Timeout: requestTimeout},
		logger: log,
	}
}

// Enabled reports whether the ticketing endpoint is configured.
func (s *ServiceNow) Enabled() bool {
	return s.cfg.Enabled
}

// OpenIncident files one incident for an issue and returns a
// confirmation message carrying the incident number.
func (s *ServiceNow) OpenIncident(ctx context.Context, it *item.Item, issue *audit.Issue, itemConfig json.RawMessage) (string, error) {
	if !s.cfg.Enabled {
		return "", errors.BadRequest("ticketing is not configured")
	}

	payload := incidentPayload{
		CausedBy:         it.Technology,
		ShortDescription: fmt.Sprintf("%s,%s,%s", issue.Notes, it.Region, it.Name),
		Impact:           issue.Score,
		Description:      string(itemConfig),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode incident: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.UpstreamError("servicenow", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", errors.UpstreamError("servicenow",
			fmt.Errorf("status %d: %s", resp.StatusCode, string(respBody)))
	}

	var parsed incidentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", errors.UpstreamError("servicenow", fmt.Errorf("decode response: %w", err))
	}

	s.logger.WithFields(map[string]interface{}{
		"incident":   parsed.Result.Number,
		"technology": it.Technology,
		"item":       it.Name,
	}).Info("Opened ticketing incident")
	return fmt.Sprintf("Incident %s opened, successfully.", parsed.Result.Number), nil
}
