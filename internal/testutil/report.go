package testutil

import (
	"context"
	"encoding/json"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/report"
)

// MockReportRepository serves canned aggregation results. The account
// filter of the last call is kept for assertions.
type MockReportRepository struct {
	FeedItems        []report.FeedItem
	PoamRows         []report.PoamItem
	Top              []report.TopIssue
	TopTech          []report.TechCount
	Changes          []report.FeedItem
	Resolved         []report.FeedItem
	TechCounts       []report.TechCount
	SeverityCounts   []report.SeverityCount
	MonthCounts      []report.MonthCount
	DetectionConfigs []json.RawMessage
	LastAccounts     []string
	Err              error
}

func (m *MockReportRepository) OpenIssues(ctx context.Context, accounts []string, limit int) ([]report.FeedItem, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	items := m.FeedItems
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items, nil
}

func (m *MockReportRepository) PoamItems(ctx context.Context, accounts []string, limit, offset int) ([]report.PoamItem, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.PoamRows, nil
}

func (m *MockReportRepository) TopIssues(ctx context.Context, accounts []string, n int) ([]report.TopIssue, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Top, nil
}

func (m *MockReportRepository) TopTechnologies(ctx context.Context, accounts []string, n int) ([]report.TechCount, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.TopTech, nil
}

func (m *MockReportRepository) RecentChanges(ctx context.Context, accounts []string, since time.Time, limit int) ([]report.FeedItem, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Changes, nil
}

func (m *MockReportRepository) RecentlyResolved(ctx context.Context, accounts []string, since time.Time, limit int) ([]report.FeedItem, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Resolved, nil
}

func (m *MockReportRepository) CountByTechnology(ctx context.Context, accounts []string) ([]report.TechCount, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.TechCounts, nil
}

func (m *MockReportRepository) CountBySeverity(ctx context.Context, accounts []string) ([]report.SeverityCount, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.SeverityCounts, nil
}

func (m *MockReportRepository) IssuesByMonth(ctx context.Context, filter report.MonthFilter) ([]report.MonthCount, error) {
	m.LastAccounts = filter.Accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.MonthCounts, nil
}

func (m *MockReportRepository) OpenDetectionConfigs(ctx context.Context, accounts []string) ([]json.RawMessage, error) {
	m.LastAccounts = accounts
	if m.Err != nil {
		return nil, m.Err
	}
	return m.DetectionConfigs, nil
}
