// Package anchore slurps container image vulnerability reports from
// Anchore Engine instances configured in the scanner config store.
package anchore

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/domain/scanner"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

const requestTimeout = 60 * time.Second

// Engine v1 API payloads.
type imageRecord struct {
	ImageDigest    string        `json:"imageDigest"`
	AnalysisStatus string        `json:"analysis_status"`
	ImageDetail    []imageDetail `json:"image_detail"`
}

type imageDetail struct {
	FullTag string `json:"fulltag"`
}

type vulnReport struct {
	Vulnerabilities []vulnRecord `json:"vulnerabilities"`
}

type vulnRecord struct {
	Vuln     string `json:"vuln"`
	Package  string `json:"package"`
	Severity string `json:"severity"`
	Fix      string `json:"fix"`
	URL      string `json:"url"`
}

// Watcher fetches analyzed images and their vulnerabilities from every
// configured engine. Each engine maps to one account scope.
type Watcher struct {
	configs scanner.Repository
	logger  *logger.Logger
}

func NewWatcher(configs scanner.Repository, log *logger.Logger) *Watcher {
	return &Watcher{configs: configs, logger: log}
}

func (w *Watcher) Index() string { return "anchore" }

func (w *Watcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	engines, err := w.configs.List(ctx)
	if err != nil {
		return nil, nil, err
	}

	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	for _, engine := range engines {
		engineItems, err := w.slurpEngine(ctx, engine)
		if err != nil {
			w.logger.WithFields(map[string]interface{}{
				"engine": engine.Name,
				"error":  err.Error(),
			}).Error("Anchore engine slurp failed")
			exc.Add(w.Index(), engine.Name, item.RegionUniversal, err)
			continue
		}
		items = append(items, engineItems...)
	}

	return items, exc, nil
}

func (w *Watcher) slurpEngine(ctx context.Context, engine *scanner.Config) ([]watcher.ChangeItem, error) {
	client := newClient(engine)

	var images []imageRecord
	if err := w.get(ctx, client, engine, "/v1/images", &images); err != nil {
		return nil, fmt.Errorf("list images: %w", err)
	}

	var items []watcher.ChangeItem
	for _, img := range images {
		if img.AnalysisStatus != "analyzed" {
			continue
		}

		var report vulnReport
		path := fmt.Sprintf("/v1/images/%s/vuln/all", img.ImageDigest)
		if err := w.get(ctx, client, engine, path, &report); err != nil {
			return nil, fmt.Errorf("image %s: %w", img.ImageDigest, err)
		}

		tag := img.ImageDigest
		if len(img.ImageDetail) > 0 && img.ImageDetail[0].FullTag != "" {
			tag = img.ImageDetail[0].FullTag
		}

		cfg := schema.AnchoreImage{
			Digest: img.ImageDigest,
			Tag:    tag,
		}
		for _, v := range report.Vulnerabilities {
			cfg.Vulnerabilities = append(cfg.Vulnerabilities, schema.AnchoreVuln{
				ID:       v.Vuln,
				Package:  v.Package,
				Severity: v.Severity,
				Fix:      v.Fix,
				URL:      v.URL,
			})
		}

		items = append(items, watcher.ChangeItem{
			Index:   w.Index(),
			Account: engine.Name,
			Region:  item.RegionUniversal,
			Name:    tag,
			Config:  cfg,
		})
	}

	return items, nil
}

func (w *Watcher) get(ctx context.Context, client *http.Client, engine *scanner.Config, path string, out interface{}) error {
	endpoint := strings.TrimRight(engine.URL, "/") + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(engine.Username, engine.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("engine returned status %d: %s", resp.StatusCode, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func newClient(engine *scanner.Config) *http.Client {
	client := &http.Client{Timeout: requestTimeout}
	if !engine.SSLVerify {
		client.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return client
}
