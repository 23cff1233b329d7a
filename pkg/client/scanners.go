package client

import (
	"context"
	"fmt"
)

// ScannerService handles scan engine configuration API calls.
type ScannerService struct {
	client *Client
}

// ScannerConfigRequest creates or updates a scan engine configuration.
type ScannerConfigRequest struct {
	Name      string `json:"name"`
	Username  string `json:"username"`
	Password  string `json:"password"`
	URL       string `json:"url"`
	SSLVerify bool   `json:"ssl_verify"`
}

// List retrieves the configured scan engines.
func (s *ScannerService) List(ctx context.Context) ([]ScannerConfig, error) {
	var configs []ScannerConfig
	if _, err := s.client.getList(ctx, "/api/v1/scanners", &configs); err != nil {
		return nil, err
	}
	return configs, nil
}

// Get retrieves one scan engine configuration.
func (s *ScannerService) Get(ctx context.Context, id int64) (*ScannerConfig, error) {
	var cfg ScannerConfig
	if err := s.client.getData(ctx, "GET", fmt.Sprintf("/api/v1/scanners/%d", id), nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Create registers a new scan engine and returns its id.
func (s *ScannerService) Create(ctx context.Context, req *ScannerConfigRequest) (int64, error) {
	var out struct {
		ID int64 `json:"id"`
	}
	if err := s.client.getData(ctx, "POST", "/api/v1/scanners", req, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// Update replaces a scan engine configuration.
func (s *ScannerService) Update(ctx context.Context, id int64, req *ScannerConfigRequest) error {
	return s.client.getData(ctx, "PUT", fmt.Sprintf("/api/v1/scanners/%d", id), req, nil)
}

// Delete removes a scan engine configuration.
func (s *ScannerService) Delete(ctx context.Context, id int64) error {
	return s.client.getData(ctx, "DELETE", fmt.Sprintf("/api/v1/scanners/%d", id), nil, nil)
}
