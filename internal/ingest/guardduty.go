// Package ingest accepts pushed detection events, storing them as items
// with scored audit issues without waiting for the next scan cycle.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/event"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
)

// Service stores pushed GuardDuty findings.
type Service struct {
	items    item.Repository
	audits   audit.Repository
	events   event.Repository
	accounts account.Repository
	logger   *logger.Logger
}

func NewService(items item.Repository, audits audit.Repository, events event.Repository,
	accounts account.Repository, log *logger.Logger) *Service {
	return &Service{
		items:    items,
		audits:   audits,
		events:   events,
		accounts: accounts,
		logger:   log,
	}
}

// GuardDuty stores one pushed finding. The raw detail is persisted
// untouched so enrichment data survives beyond the decoded fields. The
// account named in the detail must already be configured; unknown
// accounts are rejected.
func (s *Service) GuardDuty(ctx context.Context, raw json.RawMessage) (*item.Item, error) {
	var detail schema.GuardDutyDetail
	if err := schema.Decode(raw, &detail); err != nil {
		return nil, errors.BadRequest("Invalid finding detail")
	}

	if detail.AccountID == "" {
		return nil, errors.BadRequest("finding detail has no account id")
	}
	acct, err := s.accounts.GetByIdentifier(ctx, detail.AccountID)
	if err != nil {
		return nil, errors.BadRequest(fmt.Sprintf("account %s is not configured", detail.AccountID))
	}

	region := detail.Region
	if region == "" {
		region = item.RegionUniversal
	}
	// Events of one finding type collapse onto one item.
	name := detail.Type
	if name == "" {
		name = detail.Title
	}

	it, err := s.items.Upsert(ctx, &item.Item{
		Technology: "guardduty",
		Account:    acct.Identifier,
		Region:     region,
		Name:       name,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.items.AddRevision(ctx, it.ID, raw, true); err != nil {
		return nil, err
	}

	if _, err := s.audits.EnsureAuditorSettings(ctx, "GuardDuty", "guardduty", acct.Identifier, "Guard Duty"); err != nil {
		return nil, err
	}

	found := []*audit.Issue{{
		Score: int(detail.Severity),
		Issue: detail.Title,
		Notes: detail.Description,
	}}
	if _, _, _, err := s.audits.Reconcile(ctx, it.ID, found); err != nil {
		return nil, err
	}

	if _, err := s.events.Create(ctx, &event.GuardDutyEvent{
		ItemID: it.ID,
		Detail: raw,
	}); err != nil {
		return nil, err
	}

	s.logger.WithFields(map[string]interface{}{
		"account": acct.MaskedIdentifier(),
		"finding": detail.Type,
	}).Info("Stored pushed detection event")
	return it, nil
}
