package anchore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

func fakeEngine(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/images", func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "admin" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode([]imageRecord{
			{
				ImageDigest:    "sha256:aaa",
				AnalysisStatus: "analyzed",
				ImageDetail:    []imageDetail{{FullTag: "registry/app:latest"}},
			},
			{
				ImageDigest:    "sha256:bbb",
				AnalysisStatus: "analyzing",
			},
		})
	})
	mux.HandleFunc("/v1/images/sha256:aaa/vuln/all", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(vulnReport{
			Vulnerabilities: []vulnRecord{
				{Vuln: "CVE-2024-0001", Package: "zlib-1.2.11", Severity: "High", Fix: "1.2.12", URL: "https://nvd.example/CVE-2024-0001"},
			},
		})
	})
	return httptest.NewServer(mux)
}

func engineConfig(t *testing.T, url string) *testutil.MockScannerRepository {
	t.Helper()
	repo := testutil.NewMockScannerRepository()
	if _, err := repo.Create(context.Background(), &scanner.Config{
		Name:     "prod-anchore",
		Username: "admin",
		Password: "secret",
		URL:      url,
	}); err != nil {
		t.Fatalf("create scanner config: %v", err)
	}
	return repo
}

func TestSlurp(t *testing.T) {
	srv := fakeEngine(t)
	defer srv.Close()

	w := NewWatcher(engineConfig(t, srv.URL), testLogger())

	items, exc, err := w.Slurp(context.Background())
	if err != nil {
		t.Fatalf("Slurp() error = %v", err)
	}
	if len(exc) != 0 {
		t.Errorf("exceptions = %v, want none", exc)
	}
	// Only the analyzed image is reported.
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	it := items[0]
	if it.Index != "anchore" || it.Account != "prod-anchore" || it.Region != item.RegionUniversal {
		t.Errorf("item scope = %+v", it)
	}
	if it.Name != "registry/app:latest" {
		t.Errorf("name = %q, want the full tag", it.Name)
	}

	cfg, ok := it.Config.(schema.AnchoreImage)
	if !ok {
		t.Fatalf("config type = %T", it.Config)
	}
	if cfg.Digest != "sha256:aaa" || len(cfg.Vulnerabilities) != 1 {
		t.Errorf("config = %+v", cfg)
	}
	if cfg.Vulnerabilities[0].ID != "CVE-2024-0001" || cfg.Vulnerabilities[0].Severity != "High" {
		t.Errorf("vulnerability = %+v", cfg.Vulnerabilities[0])
	}
}

func TestSlurpEngineFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "engine down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	w := NewWatcher(engineConfig(t, srv.URL), testLogger())

	items, exc, err := w.Slurp(context.Background())
	if err != nil {
		t.Fatalf("Slurp() error = %v", err)
	}
	if len(items) != 0 {
		t.Errorf("items = %d, want 0", len(items))
	}
	// The failure is scoped so stored items are not treated as deleted.
	if !exc.Covers("anchore", "prod-anchore", item.RegionUniversal) {
		t.Error("exception map does not cover the failed engine")
	}
}

func TestSlurpNoEngines(t *testing.T) {
	w := NewWatcher(testutil.NewMockScannerRepository(), testLogger())

	items, exc, err := w.Slurp(context.Background())
	if err != nil {
		t.Fatalf("Slurp() error = %v", err)
	}
	if len(items) != 0 || len(exc) != 0 {
		t.Errorf("items = %d, exceptions = %d, want none", len(items), len(exc))
	}
}
