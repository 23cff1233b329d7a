package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stackwatch/stackwatch/internal/api/dto"
	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/validator"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func newScannerFixture(t *testing.T) (*ScannerConfigHandler, *testutil.MockScannerRepository) {
	t.Helper()
	configs := testutil.NewMockScannerRepository()
	return NewScannerConfigHandler(configs, testLogger(), validator.New()), configs
}

func TestScannerConfigCreate(t *testing.T) {
	handler, configs := newScannerFixture(t)

	body := strings.NewReader(`{
		"name": "prod-anchore",
		"username": "admin",
		"password": "secret",
		"url": "https://anchore.internal:8228",
		"ssl_verify": true
	}`)
	rec := httptest.NewRecorder()
	handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scanners", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201, body %s", rec.Code, rec.Body.String())
	}
	env := decodeSuccess(t, rec)

	var payload map[string]int64
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	stored, err := configs.GetByID(context.Background(), payload["id"])
	if err != nil {
		t.Fatalf("get stored config: %v", err)
	}
	if stored.Name != "prod-anchore" || stored.Password != "secret" || !stored.SSLVerify {
		t.Errorf("stored config = %+v", stored)
	}
}

func TestScannerConfigCreateValidation(t *testing.T) {
	handler, _ := newScannerFixture(t)

	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{
			name:     "missing name",
			body:     `{"username":"admin","password":"secret","url":"https://anchore.internal"}`,
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "invalid url",
			body:     `{"name":"prod","username":"admin","password":"secret","url":"not a url"}`,
			wantCode: errors.ErrCodeValidation,
		},
		{
			name:     "malformed body",
			body:     `{"name":`,
			wantCode: errors.ErrCodeBadRequest,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Create(rec, httptest.NewRequest(http.MethodPost, "/api/v1/scanners", strings.NewReader(tc.body)))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env := decodeError(t, rec); env.Error.Code != tc.wantCode {
				t.Errorf("code = %q, want %q", env.Error.Code, tc.wantCode)
			}
		})
	}
}

func TestScannerConfigListWithholdsPassword(t *testing.T) {
	handler, configs := newScannerFixture(t)
	if _, err := configs.Create(context.Background(), &scanner.Config{
		Name:     "prod-anchore",
		Username: "admin",
		Password: "secret",
		URL:      "https://anchore.internal:8228",
	}); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.List(rec, httptest.NewRequest(http.MethodGet, "/api/v1/scanners", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	env := decodeList(t, rec)
	if env.Count != 1 {
		t.Fatalf("count = %d, want 1", env.Count)
	}

	var dtos []dto.ScannerConfigDTO
	if err := json.Unmarshal(env.Items, &dtos); err != nil {
		t.Fatalf("decode items: %v", err)
	}
	if dtos[0].Name != "prod-anchore" || dtos[0].Username != "admin" {
		t.Errorf("dto = %+v", dtos[0])
	}
	if strings.Contains(string(env.Items), "secret") {
		t.Error("list response leaked the engine password")
	}
}

func TestScannerConfigUpdateAndDelete(t *testing.T) {
	handler, configs := newScannerFixture(t)
	id, err := configs.Create(context.Background(), &scanner.Config{
		Name:     "prod-anchore",
		Username: "admin",
		Password: "secret",
		URL:      "https://anchore.internal:8228",
	})
	if err != nil {
		t.Fatalf("seed config: %v", err)
	}

	body := strings.NewReader(`{
		"name": "prod-anchore",
		"username": "admin",
		"password": "rotated",
		"url": "https://anchore.internal:8443",
		"ssl_verify": true
	}`)
	rec := httptest.NewRecorder()
	handler.Update(rec, withID(httptest.NewRequest(http.MethodPut, "/api/v1/scanners/1", body), "1"))

	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d, want 200", rec.Code)
	}
	stored, err := configs.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("get stored config: %v", err)
	}
	if stored.Password != "rotated" || stored.URL != "https://anchore.internal:8443" {
		t.Errorf("stored config after update = %+v", stored)
	}

	rec = httptest.NewRecorder()
	handler.Delete(rec, withID(httptest.NewRequest(http.MethodDelete, "/api/v1/scanners/1", nil), "1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d, want 200", rec.Code)
	}
	if _, err := configs.GetByID(context.Background(), id); err == nil {
		t.Error("config still present after delete")
	}
}
