package report

import (
	"context"
	"encoding/json"
	"time"
)

// Repository defines the aggregation queries behind reports and charts.
// Every query takes an optional list of account names; an empty list
// covers all accounts.
type Repository interface {
	// OpenIssues returns unjustified, unfixed issues scoring above
	// ReportableScore, excluding egress-only findings.
	OpenIssues(ctx context.Context, accounts []string, limit int) ([]FeedItem, error)

	// PoamItems returns open issues as plan-of-action rows.
	PoamItems(ctx context.Context, accounts []string, limit, offset int) ([]PoamItem, error)

	// TopIssues returns the most frequent open reportable issues grouped
	// by technology and issue text.
	TopIssues(ctx context.Context, accounts []string, n int) ([]TopIssue, error)

	// TopTechnologies returns the technologies with the most open
	// reportable issues.
	TopTechnologies(ctx context.Context, accounts []string, n int) ([]TechCount, error)

	// RecentChanges returns open reportable issues whose item changed
	// within the window, highest score first.
	RecentChanges(ctx context.Context, accounts []string, since time.Time, limit int) ([]FeedItem, error)

	// RecentlyResolved returns reportable issues justified or fixed
	// within the window.
	RecentlyResolved(ctx context.Context, accounts []string, since time.Time, limit int) ([]FeedItem, error)

	// CountByTechnology aggregates open issues per technology with the
	// share of the total.
	CountByTechnology(ctx context.Context, accounts []string) ([]TechCount, error)

	// CountBySeverity aggregates open issues into severity bands.
	CountBySeverity(ctx context.Context, accounts []string) ([]SeverityCount, error)

	// IssuesByMonth aggregates issues by the month their item revision
	// was created.
	IssuesByMonth(ctx context.Context, filter MonthFilter) ([]MonthCount, error)

	// OpenDetectionConfigs returns the stored finding configs of threat
	// detection items that still have open issues.
	OpenDetectionConfigs(ctx context.Context, accounts []string) ([]json.RawMessage, error)
}
