package sqldb_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stackwatch/stackwatch/internal/domain/audit"
	"github.com/stackwatch/stackwatch/internal/domain/report"
	"github.com/stackwatch/stackwatch/internal/repository/sqldb"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func TestReportOpenIssues(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")

	seed := []*audit.Issue{
		{ItemID: sg.ID, Score: 10, Issue: "open port 22", Notes: "[cidr:0.0.0.0/0] Access: [ingress:tcp:22]"},
		// Egress findings are excluded from the feed.
		{ItemID: sg.ID, Score: 10, Issue: "default group rule", Notes: "[cidr:0.0.0.0/0] Access: [egress:-1:all_ports]"},
		// Below the reportable threshold.
		{ItemID: sg.ID, Score: 3, Issue: "low finding"},
	}
	for _, issue := range seed {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}
	justifiedID, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 10, Issue: "justified finding"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := audits.Justify(ctx, justifiedID, "alice", "accepted"); err != nil {
		t.Fatalf("justify: %v", err)
	}

	feed, err := reports.OpenIssues(ctx, nil, 25)
	if err != nil {
		t.Fatalf("OpenIssues() error = %v", err)
	}
	if len(feed) != 1 {
		t.Fatalf("feed = %d items, want 1", len(feed))
	}
	if feed[0].Issue != "open port 22" || feed[0].Technology != "securitygroup" || feed[0].Account != "production" {
		t.Errorf("feed item = %+v", feed[0])
	}

	// The account filter matches on account name.
	if feed, err = reports.OpenIssues(ctx, []string{"production"}, 25); err != nil || len(feed) != 1 {
		t.Errorf("accounts filter: feed = %d err = %v, want 1", len(feed), err)
	}
	if feed, err = reports.OpenIssues(ctx, []string{"staging"}, 25); err != nil || len(feed) != 0 {
		t.Errorf("unknown account: feed = %d err = %v, want 0", len(feed), err)
	}
}

func TestReportCounts(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")
	iam := seedItem(t, items, "iamuser", "root")

	for _, issue := range []*audit.Issue{
		{ItemID: sg.ID, Score: 10, Issue: "open port 22"},
		{ItemID: sg.ID, Score: 10, Issue: "open port 3389"},
		{ItemID: sg.ID, Score: 3, Issue: "low finding"},
		{ItemID: iam.ID, Score: 12, Issue: "root usage"},
	} {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	byTech, err := reports.CountByTechnology(ctx, nil)
	if err != nil {
		t.Fatalf("CountByTechnology() error = %v", err)
	}
	if len(byTech) != 2 {
		t.Fatalf("technologies = %d, want 2", len(byTech))
	}
	if byTech[0].Technology != "securitygroup" || byTech[0].Count != 3 {
		t.Errorf("top technology = %+v", byTech[0])
	}
	if byTech[0].Percentage != 75 {
		t.Errorf("percentage = %v, want 75", byTech[0].Percentage)
	}

	bySeverity, err := reports.CountBySeverity(ctx, nil)
	if err != nil {
		t.Fatalf("CountBySeverity() error = %v", err)
	}
	counts := make(map[string]int64)
	for _, sc := range bySeverity {
		counts[sc.Severity] = sc.Count
	}
	if counts["low"] != 1 || counts["medium"] != 2 || counts["high"] != 1 {
		t.Errorf("severity counts = %v", counts)
	}

	top, err := reports.TopTechnologies(ctx, nil, 1)
	if err != nil {
		t.Fatalf("TopTechnologies() error = %v", err)
	}
	if len(top) != 1 || top[0].Technology != "securitygroup" {
		t.Errorf("top technologies = %+v", top)
	}
}

func TestReportCountBySeverityBands(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")

	// One issue on each side of the band boundaries.
	for i, score := range []int{4, 5, 8, 10, 11} {
		issue := &audit.Issue{ItemID: sg.ID, Score: score, Issue: fmt.Sprintf("finding %d", i)}
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	bySeverity, err := reports.CountBySeverity(ctx, nil)
	if err != nil {
		t.Fatalf("CountBySeverity() error = %v", err)
	}
	counts := make(map[string]int64)
	for _, sc := range bySeverity {
		counts[sc.Severity] = sc.Count
	}
	if counts["low"] != 1 {
		t.Errorf("low = %d, want 1 (score 4)", counts["low"])
	}
	if counts["medium"] != 3 {
		t.Errorf("medium = %d, want 3 (scores 5, 8, 10)", counts["medium"])
	}
	if counts["high"] != 1 {
		t.Errorf("high = %d, want 1 (score 11)", counts["high"])
	}
}

func TestReportTopIssues(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	web := seedItem(t, items, "securitygroup", "web-sg")
	dbsg := seedItem(t, items, "securitygroup", "db-sg")

	for _, issue := range []*audit.Issue{
		{ItemID: web.ID, Score: 10, Issue: "open port 22"},
		{ItemID: dbsg.ID, Score: 10, Issue: "open port 22"},
		{ItemID: web.ID, Score: 10, Issue: "open port 3389"},
	} {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	top, err := reports.TopIssues(ctx, nil, 5)
	if err != nil {
		t.Fatalf("TopIssues() error = %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("top issues = %d, want 2", len(top))
	}
	if top[0].Issue != "open port 22" || top[0].Count != 2 {
		t.Errorf("top issue = %+v", top[0])
	}
}

func TestReportSummaryQueriesSkipUnreportable(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")

	// Neither a sub-threshold score nor an egress finding is reportable.
	for _, issue := range []*audit.Issue{
		{ItemID: sg.ID, Score: 2, Issue: "minor finding"},
		{ItemID: sg.ID, Score: 10, Issue: "default group rule", Notes: "[cidr:0.0.0.0/0] Access: [egress:-1:all_ports]"},
	} {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	since := time.Now().Add(-time.Hour)

	if top, err := reports.TopIssues(ctx, nil, 5); err != nil || len(top) != 0 {
		t.Errorf("TopIssues = %+v err = %v, want none", top, err)
	}
	if top, err := reports.TopTechnologies(ctx, nil, 5); err != nil || len(top) != 0 {
		t.Errorf("TopTechnologies = %+v err = %v, want none", top, err)
	}
	if changes, err := reports.RecentChanges(ctx, nil, since, 25); err != nil || len(changes) != 0 {
		t.Errorf("RecentChanges = %+v err = %v, want none", changes, err)
	}

	lowID, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 2, Issue: "minor accepted"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := audits.Justify(ctx, lowID, "alice", "accepted"); err != nil {
		t.Fatalf("justify: %v", err)
	}
	if resolved, err := reports.RecentlyResolved(ctx, nil, since, 10); err != nil || len(resolved) != 0 {
		t.Errorf("RecentlyResolved = %+v err = %v, want none", resolved, err)
	}
}

func TestReportRecentChangesAndResolved(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")
	if _, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 10, Issue: "open port 22"}); err != nil {
		t.Fatalf("create issue: %v", err)
	}

	changes, err := reports.RecentChanges(ctx, nil, time.Now().Add(-time.Hour), 25)
	if err != nil {
		t.Fatalf("RecentChanges() error = %v", err)
	}
	if len(changes) != 1 {
		t.Errorf("recent changes = %d, want 1", len(changes))
	}

	// Nothing changed before the cutoff.
	changes, err = reports.RecentChanges(ctx, nil, time.Now().Add(time.Hour), 25)
	if err != nil {
		t.Fatalf("RecentChanges() error = %v", err)
	}
	if len(changes) != 0 {
		t.Errorf("recent changes = %d, want 0", len(changes))
	}

	justifiedID, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 10, Issue: "accepted finding"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := audits.Justify(ctx, justifiedID, "alice", "accepted"); err != nil {
		t.Fatalf("justify: %v", err)
	}

	resolved, err := reports.RecentlyResolved(ctx, nil, time.Now().Add(-time.Hour), 10)
	if err != nil {
		t.Fatalf("RecentlyResolved() error = %v", err)
	}
	if len(resolved) != 1 || resolved[0].Issue != "accepted finding" {
		t.Errorf("resolved = %+v, want the justified issue", resolved)
	}
}

func TestReportIssuesByMonth(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")
	for _, issue := range []*audit.Issue{
		{ItemID: sg.ID, Score: 10, Issue: "open port 22"},
		{ItemID: sg.ID, Score: 3, Issue: "low finding"},
	} {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	months, err := reports.IssuesByMonth(ctx, report.MonthFilter{})
	if err != nil {
		t.Fatalf("IssuesByMonth() error = %v", err)
	}
	if len(months) != 1 {
		t.Fatalf("months = %d, want 1", len(months))
	}
	if months[0].Count != 2 {
		t.Errorf("count = %d, want 2", months[0].Count)
	}
	wantMonth := time.Now().UTC().Format("2006-01")
	if months[0].Month.Format("2006-01") != wantMonth {
		t.Errorf("month = %s, want %s", months[0].Month.Format("2006-01"), wantMonth)
	}

	lows, err := reports.IssuesByMonth(ctx, report.MonthFilter{Severity: audit.SeverityLow})
	if err != nil {
		t.Fatalf("IssuesByMonth(low) error = %v", err)
	}
	if len(lows) != 1 || lows[0].Count != 1 {
		t.Errorf("low months = %+v", lows)
	}

	if months, err = reports.IssuesByMonth(ctx, report.MonthFilter{Accounts: []string{"staging"}}); err != nil || len(months) != 0 {
		t.Errorf("unknown account: months = %+v err = %v, want none", months, err)
	}
}

func TestReportOpenDetectionConfigs(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	// A detection item with an open issue and a non-detection item.
	detection := seedItem(t, items, "guardduty", "finding-1")
	other := seedItem(t, items, "securitygroup", "web-sg")

	raw, err := schema.Encode(schema.GuardDutyDetail{Type: "Recon:EC2/PortProbeUnprotectedPort", Severity: 5})
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if _, err := items.AddRevision(ctx, detection.ID, raw, true); err != nil {
		t.Fatalf("add revision: %v", err)
	}

	for _, issue := range []*audit.Issue{
		{ItemID: detection.ID, Score: 5, Issue: "probe"},
		{ItemID: other.ID, Score: 10, Issue: "open port"},
	} {
		if _, err := audits.Create(ctx, issue); err != nil {
			t.Fatalf("create issue: %v", err)
		}
	}

	configs, err := reports.OpenDetectionConfigs(ctx, nil)
	if err != nil {
		t.Fatalf("OpenDetectionConfigs() error = %v", err)
	}
	if len(configs) != 1 {
		t.Errorf("configs = %d, want only the detection item", len(configs))
	}
}

func TestReportPoamItems(t *testing.T) {
	db := testutil.NewTestDB(t)
	seedAccount(t, sqldb.NewAccountRepository(db))
	items := sqldb.NewItemRepository(db)
	audits := sqldb.NewAuditRepository(db)
	reports := sqldb.NewReportRepository(db)
	ctx := context.Background()

	sg := seedItem(t, items, "securitygroup", "web-sg")
	highID, err := audits.Create(ctx, &audit.Issue{
		ItemID: sg.ID, Score: 10, Issue: "open port 22",
		Notes: "[cidr:0.0.0.0/0] Access: [ingress:tcp:22]",
	})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if _, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 3, Issue: "low finding"}); err != nil {
		t.Fatalf("create issue: %v", err)
	}
	fixedID, err := audits.Create(ctx, &audit.Issue{ItemID: sg.ID, Score: 10, Issue: "stale finding"})
	if err != nil {
		t.Fatalf("create issue: %v", err)
	}
	if err := audits.Justify(ctx, fixedID, "alice", "accepted"); err != nil {
		t.Fatalf("justify: %v", err)
	}

	rows, err := reports.PoamItems(ctx, nil, 25, 0)
	if err != nil {
		t.Fatalf("PoamItems() error = %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2 open issues", len(rows))
	}
	first := rows[0]
	if first.PoamID != fmt.Sprintf("sa_poam-%d", highID) {
		t.Errorf("poam id = %q", first.PoamID)
	}
	if first.Control != "securitygroup" || first.WeaknessName != "open port 22" {
		t.Errorf("row = %+v", first)
	}
	want := "[cidr:0.0.0.0/0] Access: [ingress:tcp:22], " + sg.Region + ", web-sg"
	if first.WeaknessDescription != want {
		t.Errorf("weakness description = %q, want %q", first.WeaknessDescription, want)
	}
	if first.CreateDate.IsZero() {
		t.Error("create date not set")
	}

	if rows, err = reports.PoamItems(ctx, []string{"production"}, 25, 0); err != nil || len(rows) != 2 {
		t.Errorf("account filter: rows = %d err = %v, want 2", len(rows), err)
	}
	if rows, err = reports.PoamItems(ctx, []string{"staging"}, 25, 0); err != nil || len(rows) != 0 {
		t.Errorf("unknown account: rows = %d err = %v, want 0", len(rows), err)
	}
	if rows, err = reports.PoamItems(ctx, nil, 1, 1); err != nil || len(rows) != 1 {
		t.Errorf("pagination: rows = %d err = %v, want 1", len(rows), err)
	}
}
