package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/report"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
)

type ReportRepository struct {
	db *sql.DB
}

func NewReportRepository(db *sql.DB) report.Repository {
	return &ReportRepository{db: db}
}

// openJoin joins open issues to their item, technology and account.
const openJoin = `FROM item_audit au
JOIN item i ON i.id = au.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id
WHERE au.fixed = 0 AND au.justified = 0`

// reportableFilter keeps issues scoring above ReportableScore and drops
// egress-only findings. Takes report.ReportableScore as its argument.
const reportableFilter = `
AND au.score > ? AND au.notes NOT LIKE '%[egress:%'`

const feedColumns = `i.id, i.name, i.region, a.name, t.name, au.score, au.issue, au.notes`

// accountClause narrows a query to the named accounts. Empty accounts
// leave the query untouched.
func accountClause(accounts []string, args []interface{}) (string, []interface{}) {
	if len(accounts) == 0 {
		return "", args
	}
	clause := `
AND a.name IN (?` + strings.Repeat(", ?", len(accounts)-1) + `)`
	for _, a := range accounts {
		args = append(args, a)
	}
	return clause, args
}

func scanFeedItems(rows *sql.Rows) ([]report.FeedItem, error) {
	var out []report.FeedItem
	for rows.Next() {
		var f report.FeedItem
		if err := rows.Scan(&f.ItemID, &f.Name, &f.Region, &f.Account, &f.Technology, &f.Score, &f.Issue, &f.Notes); err != nil {
			return nil, errors.DatabaseError("Failed to scan feed item", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *ReportRepository) OpenIssues(ctx context.Context, accounts []string, limit int) ([]report.FeedItem, error) {
	args := []interface{}{report.ReportableScore}
	filter, args := accountClause(accounts, args)
	query := `SELECT ` + feedColumns + ` ` + openJoin + reportableFilter + filter + `
ORDER BY au.score DESC, i.id
LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query open issues", err)
	}
	defer rows.Close()

	return scanFeedItems(rows)
}

func (r *ReportRepository) PoamItems(ctx context.Context, accounts []string, limit, offset int) ([]report.PoamItem, error) {
	filter, args := accountClause(accounts, nil)
	query := `SELECT au.id, t.name, au.issue, au.notes, i.region, i.name, au.score, au.justification, au.date_created ` + openJoin + filter + `
ORDER BY au.score DESC, au.id
LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query poam items", err)
	}
	defer rows.Close()

	var out []report.PoamItem
	for rows.Next() {
		var p report.PoamItem
		var id int64
		var notes, region, name, created string
		if err := rows.Scan(&id, &p.Control, &p.WeaknessName, &notes, &region, &name, &p.Score, &p.Comments, &created); err != nil {
			return nil, errors.DatabaseError("Failed to scan poam item", err)
		}
		p.PoamID = fmt.Sprintf("sa_poam-%d", id)
		p.WeaknessDescription = fmt.Sprintf("%s, %s, %s", notes, region, name)
		p.CreateDate, _ = time.Parse(time.RFC3339, created)
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ReportRepository) TopIssues(ctx context.Context, accounts []string, n int) ([]report.TopIssue, error) {
	args := []interface{}{report.ReportableScore}
	filter, args := accountClause(accounts, args)
	query := `SELECT t.name, au.issue, COUNT(*) AS c ` + openJoin + reportableFilter + filter + `
GROUP BY t.name, au.issue
ORDER BY c DESC
LIMIT ?`
	args = append(args, n)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query top issues", err)
	}
	defer rows.Close()

	var out []report.TopIssue
	for rows.Next() {
		var ti report.TopIssue
		if err := rows.Scan(&ti.Technology, &ti.Issue, &ti.Count); err != nil {
			return nil, errors.DatabaseError("Failed to scan top issue", err)
		}
		out = append(out, ti)
	}
	return out, rows.Err()
}

func (r *ReportRepository) TopTechnologies(ctx context.Context, accounts []string, n int) ([]report.TechCount, error) {
	args := []interface{}{report.ReportableScore}
	filter, args := accountClause(accounts, args)
	query := `SELECT t.name, COUNT(*) AS c ` + openJoin + reportableFilter + filter + `
GROUP BY t.name
ORDER BY c DESC
LIMIT ?`
	args = append(args, n)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query top technologies", err)
	}
	defer rows.Close()

	var out []report.TechCount
	for rows.Next() {
		var tc report.TechCount
		if err := rows.Scan(&tc.Technology, &tc.Count); err != nil {
			return nil, errors.DatabaseError("Failed to scan technology count", err)
		}
		out = append(out, tc)
	}
	return out, rows.Err()
}

func (r *ReportRepository) RecentChanges(ctx context.Context, accounts []string, since time.Time, limit int) ([]report.FeedItem, error) {
	args := []interface{}{report.ReportableScore}
	filter, args := accountClause(accounts, args)
	query := `SELECT ` + feedColumns + ` ` + openJoin + reportableFilter + filter + `
AND EXISTS (
	SELECT 1 FROM item_revision rev
	WHERE rev.id = i.latest_revision_id AND rev.date_created >= ?
)
ORDER BY au.score DESC, i.id
LIMIT ?`
	args = append(args, since.UTC().Format(time.RFC3339), limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query recent changes", err)
	}
	defer rows.Close()

	return scanFeedItems(rows)
}

func (r *ReportRepository) RecentlyResolved(ctx context.Context, accounts []string, since time.Time, limit int) ([]report.FeedItem, error) {
	cutoff := since.UTC().Format(time.RFC3339)

	args := []interface{}{cutoff, report.ReportableScore}
	filter, args := accountClause(accounts, args)

	query := `SELECT ` + feedColumns + `
FROM item_audit au
JOIN item i ON i.id = au.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id
WHERE au.justified = 1 AND au.justified_date >= ?` + reportableFilter + filter + `
UNION
SELECT ` + feedColumns + `
FROM item_audit au
JOIN item i ON i.id = au.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id
JOIN item_revision rev ON rev.id = i.latest_revision_id
WHERE au.fixed = 1 AND rev.date_last_ephemeral_change >= ?` + reportableFilter + filter + `
LIMIT ?`
	args = append(args, cutoff, report.ReportableScore)
	if len(accounts) > 0 {
		for _, a := range accounts {
			args = append(args, a)
		}
	}
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query resolved issues", err)
	}
	defer rows.Close()

	return scanFeedItems(rows)
}

func (r *ReportRepository) CountByTechnology(ctx context.Context, accounts []string) ([]report.TechCount, error) {
	filter, args := accountClause(accounts, nil)
	query := `SELECT t.name, COUNT(*) AS c ` + openJoin + filter + `
GROUP BY t.name
ORDER BY c DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count issues by technology", err)
	}
	defer rows.Close()

	var out []report.TechCount
	var total int64
	for rows.Next() {
		var tc report.TechCount
		if err := rows.Scan(&tc.Technology, &tc.Count); err != nil {
			return nil, errors.DatabaseError("Failed to scan technology count", err)
		}
		total += tc.Count
		out = append(out, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if total > 0 {
		for i := range out {
			out[i].Percentage = float64(out[i].Count) / float64(total) * 100
		}
	}
	return out, nil
}

func (r *ReportRepository) CountBySeverity(ctx context.Context, accounts []string) ([]report.SeverityCount, error) {
	filter, args := accountClause(accounts, nil)
	query := `SELECT
CASE WHEN au.score < 5 THEN 'low' WHEN au.score <= 10 THEN 'medium' ELSE 'high' END AS severity,
COUNT(*) ` + openJoin + filter + `
GROUP BY severity`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count issues by severity", err)
	}
	defer rows.Close()

	var out []report.SeverityCount
	for rows.Next() {
		var sc report.SeverityCount
		if err := rows.Scan(&sc.Severity, &sc.Count); err != nil {
			return nil, errors.DatabaseError("Failed to scan severity count", err)
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (r *ReportRepository) IssuesByMonth(ctx context.Context, filter report.MonthFilter) ([]report.MonthCount, error) {
	query := `SELECT substr(rev.date_created, 1, 7) AS month, COUNT(*)
FROM item_audit au
JOIN item i ON i.id = au.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id
JOIN item_revision rev ON rev.id = i.latest_revision_id
WHERE 1 = 1`
	args := []interface{}{}

	switch filter.Severity {
	case audit.SeverityLow:
		query += ` AND au.score < 5`
	case audit.SeverityMedium:
		query += ` AND au.score >= 5 AND au.score <= 10`
	case audit.SeverityHigh:
		query += ` AND au.score > 10`
	}
	if filter.Technology != "" {
		query += ` AND t.name = ?`
		args = append(args, filter.Technology)
	}
	clause, args := accountClause(filter.Accounts, args)
	query += clause

	query += ` GROUP BY month ORDER BY month`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to count issues by month", err)
	}
	defer rows.Close()

	var out []report.MonthCount
	for rows.Next() {
		var month string
		var count int64
		if err := rows.Scan(&month, &count); err != nil {
			return nil, errors.DatabaseError("Failed to scan month count", err)
		}
		t, err := time.Parse("2006-01", month)
		if err != nil {
			continue
		}
		out = append(out, report.MonthCount{Month: t, Count: count})
	}
	return out, rows.Err()
}

func (r *ReportRepository) OpenDetectionConfigs(ctx context.Context, accounts []string) ([]json.RawMessage, error) {
	// Pull the latest config alongside each open issue's item.
	filter, args := accountClause(accounts, nil)
	query := `SELECT rev.config
FROM item_audit au
JOIN item i ON i.id = au.item_id
JOIN technology t ON t.id = i.tech_id
JOIN account a ON a.id = i.account_id
JOIN item_revision rev ON rev.id = i.latest_revision_id
WHERE au.fixed = 0 AND au.justified = 0 AND t.name = 'guardduty'` + filter

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.DatabaseError("Failed to query detection configs", err)
	}
	defer rows.Close()

	var out []json.RawMessage
	for rows.Next() {
		var config string
		if err := rows.Scan(&config); err != nil {
			return nil, errors.DatabaseError("Failed to scan detection config", err)
		}
		out = append(out, json.RawMessage(config))
	}
	return out, rows.Err()
}
