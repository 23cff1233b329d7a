// Package auditor runs rule batteries against stored item
// configurations and reconciles the findings into the audit store.
package auditor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/metrics"
)

// Target bundles the item under audit with its latest stored
// configuration.
type Target struct {
	Item   *item.Item
	Config json.RawMessage
}

// Support gives auditors read access to the latest configurations of
// another technology, keyed by item name. Trail checks use it to look
// up the S3 buckets trails log into.
type Support interface {
	LatestConfigs(ctx context.Context, technology string) (map[string]json.RawMessage, error)
}

// Result collects the findings raised against one item. Every call is
// recorded; reconciliation collapses findings sharing the same
// (score, issue, notes) identity when they are persisted.
type Result struct {
	Support Support

	issues []*audit.Issue
}

// Add records a finding.
func (r *Result) Add(score int, issue, notes string) {
	r.issues = append(r.issues, &audit.Issue{Score: score, Issue: issue, Notes: notes})
}

// AddWithInstructions records a finding that carries remediation
// instructions alongside its notes.
func (r *Result) AddWithInstructions(score int, issue, notes, instructions string) {
	r.issues = append(r.issues, &audit.Issue{Score: score, Issue: issue, Notes: notes, ActionInstructions: instructions})
}

// Issues returns the collected findings.
func (r *Result) Issues() []*audit.Issue {
	return r.issues
}

// Auditor checks one technology's items.
type Auditor interface {
	// Index returns the technology this auditor checks.
	Index() string
	// Audit inspects one item and records findings on the result.
	Audit(ctx context.Context, t Target, res *Result) error
}

// Summary is the outcome of one audit pass over a technology.
type Summary struct {
	Technology string `json:"technology"`
	Items      int    `json:"items"`
	Issues     int    `json:"issues"`
	Created    int    `json:"created"`
	Fixed      int    `json:"fixed"`
}

// Runner drives registered auditors over the item store.
type Runner struct {
	items    item.Repository
	audits   audit.Repository
	logger   *logger.Logger
	auditors map[string]Auditor
	order    []string
}

func NewRunner(items item.Repository, audits audit.Repository, log *logger.Logger) *Runner {
	return &Runner{
		items:    items,
		audits:   audits,
		logger:   log,
		auditors: make(map[string]Auditor),
	}
}

// Register adds an auditor. Registering the same index twice is a
// programming error.
func (r *Runner) Register(a Auditor) error {
	if _, ok := r.auditors[a.Index()]; ok {
		return fmt.Errorf("auditor %q already registered", a.Index())
	}
	r.auditors[a.Index()] = a
	r.order = append(r.order, a.Index())
	return nil
}

// Technologies returns the registered indexes in registration order.
func (r *Runner) Technologies() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Run audits every active item of one technology and reconciles the
// findings. A failing item is logged and skipped so one broken config
// cannot stall the pass.
func (r *Runner) Run(ctx context.Context, technology string) (*Summary, error) {
	a, ok := r.auditors[technology]
	if !ok {
		return nil, fmt.Errorf("no auditor registered for %q", technology)
	}

	start := time.Now()
	items, err := r.items.ListByTechnology(ctx, technology)
	if err != nil {
		return nil, err
	}

	support := newSupportCache(r.items)
	summary := &Summary{Technology: technology}
	settingsByAccount := make(map[string]*audit.AuditorSettings)

	for _, it := range items {
		settings, ok := settingsByAccount[it.Account]
		if !ok {
			settings, err = r.audits.EnsureAuditorSettings(ctx, technology, technology, it.Account, "")
			if err != nil {
				r.logger.WithFields(map[string]interface{}{
					"technology": technology,
					"account":    it.Account,
					"error":      err.Error(),
				}).Error("Failed to load auditor settings")
				continue
			}
			settingsByAccount[it.Account] = settings
		}
		// The pairing can be switched off without unregistering the
		// auditor.
		if settings.Disabled {
			continue
		}

		rev, err := r.items.GetLatestRevision(ctx, it.ID)
		if err != nil {
			r.logger.WithFields(map[string]interface{}{
				"technology": technology,
				"item":       it.Name,
				"error":      err.Error(),
			}).Error("Failed to load item revision for audit")
			continue
		}
		if !rev.Active {
			continue
		}

		res := &Result{Support: support}
		if err := r.auditItem(ctx, a, Target{Item: it, Config: rev.Config}, res); err != nil {
			r.logger.WithFields(map[string]interface{}{
				"technology": technology,
				"item":       it.Name,
				"error":      err.Error(),
			}).Error("Audit check failed")
			continue
		}

		created, _, fixed, err := r.audits.Reconcile(ctx, it.ID, res.Issues())
		if err != nil {
			return nil, err
		}

		summary.Items++
		summary.Issues += len(res.Issues())
		summary.Created += created
		summary.Fixed += fixed
		for _, issue := range res.Issues() {
			metrics.RecordAuditIssue(technology, audit.Severity(issue.Score))
		}
	}

	metrics.RecordAuditRunDuration(time.Since(start))
	return summary, nil
}

// auditItem isolates a panicking check to the item that triggered it.
func (r *Runner) auditItem(ctx context.Context, a Auditor, t Target, res *Result) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("audit panicked: %v", rec)
		}
	}()
	return a.Audit(ctx, t, res)
}

// supportCache memoizes cross-technology lookups for one audit pass.
type supportCache struct {
	items  item.Repository
	loaded map[string]map[string]json.RawMessage
}

func newSupportCache(items item.Repository) *supportCache {
	return &supportCache{items: items, loaded: make(map[string]map[string]json.RawMessage)}
}

func (s *supportCache) LatestConfigs(ctx context.Context, technology string) (map[string]json.RawMessage, error) {
	if configs, ok := s.loaded[technology]; ok {
		return configs, nil
	}

	list, err := s.items.ListByTechnology(ctx, technology)
	if err != nil {
		return nil, err
	}
	configs := make(map[string]json.RawMessage, len(list))
	for _, it := range list {
		rev, err := s.items.GetLatestRevision(ctx, it.ID)
		if err != nil {
			continue
		}
		if !rev.Active {
			continue
		}
		configs[it.Name] = rev.Config
	}

	s.loaded[technology] = configs
	return configs, nil
}
