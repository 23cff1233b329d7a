package client

import (
	"context"
	"net/url"
	"strconv"
	"strings"
)

// ReportService handles reporting and scan API calls.
type ReportService struct {
	client *Client
}

// Feed retrieves the reportable issue feed.
func (s *ReportService) Feed(ctx context.Context, opts *ListOptions) ([]FeedItem, error) {
	query := url.Values{}
	if opts != nil {
		if opts.Page > 0 {
			query.Set("page", strconv.Itoa(opts.Page))
		}
		if opts.Count > 0 {
			query.Set("count", strconv.Itoa(opts.Count))
		}
	}

	path := "/api/v1/reports/feed"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}

	var items []FeedItem
	if _, err := s.client.getList(ctx, path, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// Poam retrieves open issues as plan-of-action rows, optionally
// filtered to the named accounts.
func (s *ReportService) Poam(ctx context.Context, accounts []string) ([]PoamItem, error) {
	path := "/api/v1/reports/poam"
	if len(accounts) > 0 {
		path += "?accounts=" + url.QueryEscape(strings.Join(accounts, ","))
	}

	var rows []PoamItem
	if _, err := s.client.getList(ctx, path, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Scan runs a slurp and audit cycle. With an empty technology every
// enabled technology is scanned.
func (s *ReportService) Scan(ctx context.Context, technology string) ([]RunSummary, error) {
	path := "/api/v1/scan"
	if technology != "" {
		path += "?technology=" + url.QueryEscape(technology)

		var summary RunSummary
		if err := s.client.getData(ctx, "POST", path, nil, &summary); err != nil {
			return nil, err
		}
		return []RunSummary{summary}, nil
	}

	var summaries []RunSummary
	if err := s.client.getData(ctx, "POST", path, nil, &summaries); err != nil {
		return nil, err
	}
	return summaries, nil
}

// VulnerabilitiesByTechnology retrieves open issue counts per technology.
func (s *ReportService) VulnerabilitiesByTechnology(ctx context.Context) ([]TechnologyCount, error) {
	var counts []TechnologyCount
	if _, err := s.client.getList(ctx, "/api/v1/charts/vulnbytech", &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// VulnerabilitiesBySeverity retrieves open issue counts per severity.
func (s *ReportService) VulnerabilitiesBySeverity(ctx context.Context) ([]SeverityCount, error) {
	var counts []SeverityCount
	if _, err := s.client.getList(ctx, "/api/v1/charts/vulnbyseverity", &counts); err != nil {
		return nil, err
	}
	return counts, nil
}

// IssuesByMonth retrieves monthly created issue counts.
func (s *ReportService) IssuesByMonth(ctx context.Context) ([]MonthCount, error) {
	var counts []MonthCount
	if _, err := s.client.getList(ctx, "/api/v1/charts/issuescountbymonth", &counts); err != nil {
		return nil, err
	}
	return counts, nil
}
