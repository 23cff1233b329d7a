// Package pipeline drives the slurp, diff and audit cycle: watchers
// fetch current configurations, the item store records structural
// changes, and the auditors re-score every changed technology.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/stackwatch/stackwatch/internal/auditor"
	"github.com/stackwatch/stackwatch/internal/config"
	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/metrics"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// RunSummary is the outcome of one slurp and audit cycle for a
// technology.
type RunSummary struct {
	Technology  string           `json:"technology"`
	Items       int              `json:"items"`
	Created     int              `json:"created"`
	Changed     int              `json:"changed"`
	Ephemeral   int              `json:"ephemeral"`
	Deactivated int              `json:"deactivated"`
	Audit       *auditor.Summary `json:"audit,omitempty"`
}

// Pipeline wires watchers, the item store and the audit runner.
type Pipeline struct {
	registry *watcher.Registry
	items    item.Repository
	accounts account.Repository
	runner   *auditor.Runner
	settings *config.Settings
	logger   *logger.Logger
}

func New(registry *watcher.Registry, items item.Repository, accounts account.Repository,
	runner *auditor.Runner, settings *config.Settings, log *logger.Logger) *Pipeline {
	return &Pipeline{
		registry: registry,
		items:    items,
		accounts: accounts,
		runner:   runner,
		settings: settings,
		logger:   log,
	}
}

// SyncAccounts upserts the accounts from the settings file into the
// account store. Existing accounts are matched by identifier.
func (p *Pipeline) SyncAccounts(ctx context.Context) error {
	for _, as := range p.settings.Accounts {
		existing, err := p.accounts.GetByIdentifier(ctx, as.Identifier)
		if err == nil {
			existing.Name = as.Name
			existing.Notes = as.Notes
			existing.Active = as.Active
			existing.ThirdParty = as.ThirdParty
			existing.NotifyEmails = as.NotifyEmails
			if err := p.accounts.Update(ctx, existing); err != nil {
				return fmt.Errorf("update account %s: %w", as.Identifier, err)
			}
			continue
		}

		acct := &account.Account{
			Name:         as.Name,
			Identifier:   as.Identifier,
			Notes:        as.Notes,
			Active:       as.Active,
			ThirdParty:   as.ThirdParty,
			NotifyEmails: as.NotifyEmails,
		}
		if _, err := p.accounts.Create(ctx, acct); err != nil {
			return fmt.Errorf("create account %s: %w", as.Identifier, err)
		}
	}
	return nil
}

// Run executes the full cycle for every enabled technology. A failing
// technology is logged and skipped so the rest of the cycle proceeds.
func (p *Pipeline) Run(ctx context.Context) []*RunSummary {
	var summaries []*RunSummary
	for _, tech := range p.settings.Technologies {
		summary, err := p.RunTechnology(ctx, tech)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"technology": tech,
				"error":      err.Error(),
			}).Error("Technology run failed")
			continue
		}
		summaries = append(summaries, summary)
	}
	return summaries
}

// RunTechnology slurps one technology, reconciles the item store
// against the fetched configurations and audits the result.
func (p *Pipeline) RunTechnology(ctx context.Context, technology string) (*RunSummary, error) {
	w, ok := p.registry.Get(technology)
	if !ok {
		return nil, fmt.Errorf("no watcher registered for %q", technology)
	}

	start := time.Now()
	fetched, exc, err := w.Slurp(ctx)
	if err != nil {
		metrics.RecordWatcherRun(technology, "error", time.Since(start))
		return nil, fmt.Errorf("slurp %s: %w", technology, err)
	}
	metrics.RecordWatcherRun(technology, "ok", time.Since(start))

	fetched = watcher.FilterIgnored(fetched, p.settings.IgnorePrefixes(technology))
	ephemeral := p.settings.EphemeralPaths(technology)

	summary := &RunSummary{Technology: technology, Items: len(fetched)}
	found := make(map[int64]bool, len(fetched))

	for _, ci := range fetched {
		it, change, err := p.storeItem(ctx, ci, ephemeral)
		if err != nil {
			p.logger.WithFields(map[string]interface{}{
				"technology": technology,
				"item":       ci.Name,
				"error":      err.Error(),
			}).Error("Failed to store item")
			continue
		}
		found[it.ID] = true

		switch change {
		case changeCreated:
			summary.Created++
			metrics.RecordItemChange(technology, "created")
		case changeRevised:
			summary.Changed++
			metrics.RecordItemChange(technology, "changed")
		case changeEphemeral:
			summary.Ephemeral++
			metrics.RecordItemChange(technology, "ephemeral")
		}
	}

	deactivated, err := p.deactivateMissing(ctx, technology, found, exc)
	if err != nil {
		return nil, err
	}
	summary.Deactivated = deactivated
	metrics.SetWatchedItems(technology, "all", float64(len(fetched)))

	auditSummary, err := p.runner.Run(ctx, technology)
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", technology, err)
	}
	summary.Audit = auditSummary
	return summary, nil
}

type changeKind int

const (
	changeNone changeKind = iota
	changeCreated
	changeRevised
	changeEphemeral
)

// storeItem persists one fetched configuration. A structural change
// creates a new revision; an ephemeral-only change stamps the latest
// revision instead.
func (p *Pipeline) storeItem(ctx context.Context, ci watcher.ChangeItem, ephemeral []string) (*item.Item, changeKind, error) {
	raw, err := schema.Encode(ci.Config)
	if err != nil {
		return nil, changeNone, err
	}

	it, err := p.items.Upsert(ctx, &item.Item{
		Technology: ci.Index,
		Account:    ci.Account,
		Region:     ci.Region,
		Name:       ci.Name,
		ARN:        ci.ARN,
	})
	if err != nil {
		return nil, changeNone, err
	}

	if it.LatestRevisionID == 0 {
		if _, err := p.items.AddRevision(ctx, it.ID, raw, true); err != nil {
			return nil, changeNone, err
		}
		return it, changeCreated, nil
	}

	latest, err := p.items.GetLatestRevision(ctx, it.ID)
	if err != nil {
		return nil, changeNone, err
	}

	// A previously deactivated item that shows up again gets a fresh
	// revision regardless of content.
	if !latest.Active {
		if _, err := p.items.AddRevision(ctx, it.ID, raw, true); err != nil {
			return nil, changeNone, err
		}
		return it, changeRevised, nil
	}

	identical, err := watcher.ConfigEqual(latest.Config, raw, nil)
	if err != nil {
		return nil, changeNone, err
	}
	if identical {
		return it, changeNone, nil
	}

	sameIgnoringEphemeral, err := watcher.ConfigEqual(latest.Config, raw, ephemeral)
	if err != nil {
		return nil, changeNone, err
	}
	if sameIgnoringEphemeral {
		if err := p.items.TouchEphemeral(ctx, latest.ID); err != nil {
			return nil, changeNone, err
		}
		return it, changeEphemeral, nil
	}

	if _, err := p.items.AddRevision(ctx, it.ID, raw, true); err != nil {
		return nil, changeNone, err
	}
	return it, changeRevised, nil
}

// deactivateMissing marks items absent from the slurp as gone, unless
// their scope failed during the slurp.
func (p *Pipeline) deactivateMissing(ctx context.Context, technology string, found map[int64]bool, exc watcher.ExceptionMap) (int, error) {
	existing, err := p.items.ListByTechnology(ctx, technology)
	if err != nil {
		return 0, err
	}

	identifiers, err := p.accountIdentifiers(ctx)
	if err != nil {
		return 0, err
	}

	deactivated := 0
	for _, it := range existing {
		if found[it.ID] {
			continue
		}
		identifier := identifiers[it.AccountID]
		if exc.Covers(technology, identifier, it.Region) {
			continue
		}
		rev, err := p.items.GetLatestRevision(ctx, it.ID)
		if err != nil || !rev.Active {
			continue
		}
		if err := p.items.Deactivate(ctx, it.ID); err != nil {
			return deactivated, err
		}
		deactivated++
		metrics.RecordItemChange(technology, "deleted")
	}
	return deactivated, nil
}

func (p *Pipeline) accountIdentifiers(ctx context.Context) (map[int64]string, error) {
	accounts, err := p.accounts.List(ctx, false)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]string, len(accounts))
	for _, a := range accounts {
		out[a.ID] = a.Identifier
	}
	return out, nil
}
