package auditor

import (
	"context"
	"testing"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/testutil"
)

func TestResultRecordsEveryFinding(t *testing.T) {
	res := &Result{}
	res.Add(10, "Informational", "same note")
	res.Add(10, "Informational", "same note")
	res.Add(10, "Informational", "different note")
	res.Add(5, "Informational", "same note")

	if got := len(res.Issues()); got != 4 {
		t.Errorf("issues = %d, want every call recorded", got)
	}
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "console"})
}

func seedSecurityGroup(t *testing.T, items *testutil.MockItemRepository, name string, sg schema.SecurityGroup, active bool) *item.Item {
	t.Helper()
	it, err := items.Upsert(context.Background(), &item.Item{
		Technology: "securitygroup",
		Account:    "production",
		Region:     "us-east-1",
		Name:       name,
	})
	if err != nil {
		t.Fatalf("upsert item: %v", err)
	}
	raw, err := schema.Encode(sg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if _, err := items.AddRevision(context.Background(), it.ID, raw, active); err != nil {
		t.Fatalf("add revision: %v", err)
	}
	return it
}

func newRunnerFixture(t *testing.T) (*Runner, *testutil.MockItemRepository, *testutil.MockAuditRepository) {
	t.Helper()
	accounts := testutil.NewMockAccountRepository()
	if _, err := accounts.Create(context.Background(), &account.Account{
		Name: "production", Identifier: "123456789012", Active: true,
	}); err != nil {
		t.Fatalf("create account: %v", err)
	}
	items := testutil.NewMockItemRepository(accounts)
	audits := testutil.NewMockAuditRepository()
	return NewRunner(items, audits, testLogger()), items, audits
}

func TestRunnerRegisterDuplicate(t *testing.T) {
	runner, _, _ := newRunnerFixture(t)
	if err := runner.Register(&SecurityGroupAuditor{}); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := runner.Register(&SecurityGroupAuditor{}); err == nil {
		t.Error("second Register() expected error")
	}
}

func TestRunnerUnknownTechnology(t *testing.T) {
	runner, _, _ := newRunnerFixture(t)
	if _, err := runner.Run(context.Background(), "securitygroup"); err == nil {
		t.Error("Run() expected error for an unregistered technology")
	}
}

func TestRunnerRun(t *testing.T) {
	runner, items, audits := newRunnerFixture(t)
	if err := runner.Register(&SecurityGroupAuditor{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	open := schema.SecurityGroup{
		ID: "sg-1",
		Rules: []schema.SecurityGroupRule{
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(22), ToPort: i32(22), CIDR: "0.0.0.0/0"},
		},
	}
	clean := schema.SecurityGroup{ID: "sg-2"}

	flagged := seedSecurityGroup(t, items, "web", open, true)
	seedSecurityGroup(t, items, "db", clean, true)
	seedSecurityGroup(t, items, "old", open, false)

	summary, err := runner.Run(context.Background(), "securitygroup")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Items != 2 {
		t.Errorf("items = %d, want 2 (inactive skipped)", summary.Items)
	}
	if summary.Issues != 1 || summary.Created != 1 || summary.Fixed != 0 {
		t.Errorf("summary = %+v, want 1 issue created", summary)
	}

	// A second pass reconciles instead of duplicating.
	summary, err = runner.Run(context.Background(), "securitygroup")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.Created != 0 {
		t.Errorf("created = %d, want 0 on an unchanged pass", summary.Created)
	}

	// Closing the port fixes the issue on the next pass.
	raw, err := schema.Encode(schema.SecurityGroup{ID: "sg-1"})
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	if _, err := items.AddRevision(context.Background(), flagged.ID, raw, true); err != nil {
		t.Fatalf("add revision: %v", err)
	}
	summary, err = runner.Run(context.Background(), "securitygroup")
	if err != nil {
		t.Fatalf("third Run() error = %v", err)
	}
	if summary.Fixed != 1 {
		t.Errorf("fixed = %d, want 1", summary.Fixed)
	}

	open2, err := audits.ListByItem(context.Background(), flagged.ID, false)
	if err != nil {
		t.Fatalf("ListByItem() error = %v", err)
	}
	if len(open2) != 0 {
		t.Errorf("open issues after fix = %d, want 0", len(open2))
	}
}

func TestRunnerSkipsDisabledAuditor(t *testing.T) {
	runner, items, audits := newRunnerFixture(t)
	if err := runner.Register(&SecurityGroupAuditor{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	open := schema.SecurityGroup{
		ID: "sg-1",
		Rules: []schema.SecurityGroupRule{
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(22), ToPort: i32(22), CIDR: "0.0.0.0/0"},
		},
	}
	seedSecurityGroup(t, items, "web", open, true)

	summary, err := runner.Run(context.Background(), "securitygroup")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Issues != 1 {
		t.Fatalf("issues = %d, want 1 while the pairing is enabled", summary.Issues)
	}

	// The run registered the pairing; switch it off.
	settings, err := audits.EnsureAuditorSettings(context.Background(), "securitygroup", "securitygroup", "production", "")
	if err != nil {
		t.Fatalf("EnsureAuditorSettings() error = %v", err)
	}
	if err := audits.SetAuditorDisabled(context.Background(), settings.ID, true); err != nil {
		t.Fatalf("SetAuditorDisabled() error = %v", err)
	}

	summary, err = runner.Run(context.Background(), "securitygroup")
	if err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if summary.Items != 0 || summary.Issues != 0 {
		t.Errorf("summary = %+v, want the disabled pairing skipped", summary)
	}
}

type panickingAuditor struct{}

func (a *panickingAuditor) Index() string { return "panicky" }

func (a *panickingAuditor) Audit(_ context.Context, t Target, res *Result) error {
	panic("boom")
}

func TestRunnerSurvivesPanickingAuditor(t *testing.T) {
	runner, items, _ := newRunnerFixture(t)
	if err := runner.Register(&panickingAuditor{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	it, err := items.Upsert(context.Background(), &item.Item{
		Technology: "panicky",
		Account:    "production",
		Region:     "us-east-1",
		Name:       "unstable",
	})
	if err != nil {
		t.Fatalf("upsert item: %v", err)
	}
	if _, err := items.AddRevision(context.Background(), it.ID, []byte(`{}`), true); err != nil {
		t.Fatalf("add revision: %v", err)
	}

	summary, err := runner.Run(context.Background(), "panicky")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Items != 0 {
		t.Errorf("items = %d, want 0 when the only item panics", summary.Items)
	}
}

func TestRunnerTechnologiesOrder(t *testing.T) {
	runner, _, _ := newRunnerFixture(t)
	for _, a := range []Auditor{&SecurityGroupAuditor{}, &RouteTableAuditor{}, &EC2InstanceAuditor{}} {
		if err := runner.Register(a); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}

	want := []string{"securitygroup", "routetable", "ec2instance"}
	got := runner.Technologies()
	if len(got) != len(want) {
		t.Fatalf("technologies = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("technologies[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
