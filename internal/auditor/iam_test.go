package auditor

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stackwatch/stackwatch/internal/schema"
)

var auditNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func timePtr(t time.Time) *time.Time { return &t }

func TestIAMUserAuditorRootUsage(t *testing.T) {
	recent := auditNow.Add(-2 * time.Hour)
	stale := auditNow.Add(-72 * time.Hour)

	tests := []struct {
		name       string
		user       schema.IAMUser
		wantIssues int
		wantScore  int
	}{
		{
			name: "root password used recently",
			user: schema.IAMUser{
				ARN:              "arn:aws:iam::123456789012:root",
				PasswordLastUsed: timePtr(recent),
			},
			wantIssues: 1,
			wantScore:  1,
		},
		{
			name: "root key used recently",
			user: schema.IAMUser{
				ARN:              "arn:aws:iam::123456789012:root",
				PasswordLastUsed: timePtr(stale),
				AccessKeys: []schema.AccessKey{
					{ID: "AKIA1", Status: "Active", LastUsedDate: timePtr(recent)},
				},
			},
			wantIssues: 1,
			wantScore:  10,
		},
		{
			name: "root dormant",
			user: schema.IAMUser{
				ARN:              "arn:aws:iam::123456789012:root",
				PasswordLastUsed: timePtr(stale),
				AccessKeys: []schema.AccessKey{
					{ID: "AKIA1", Status: "Active", LastUsedDate: timePtr(stale)},
				},
			},
			wantIssues: 0,
		},
		{
			name: "never used falls back to key creation date",
			user: schema.IAMUser{
				ARN: "arn:aws:iam::123456789012:root",
				AccessKeys: []schema.AccessKey{
					{ID: "AKIA1", Status: "Active", CreateDate: timePtr(recent)},
				},
			},
			wantIssues: 1,
			wantScore:  10,
		},
		{
			name: "regular user is ignored",
			user: schema.IAMUser{
				ARN:              "arn:aws:iam::123456789012:user/alice",
				PasswordLastUsed: timePtr(recent),
			},
			wantIssues: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(tt.user)
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
			a := &IAMUserAuditor{Now: func() time.Time { return auditNow }}
			res := &Result{}
			if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
				t.Fatalf("Audit() error = %v", err)
			}
			issues := res.Issues()
			if len(issues) != tt.wantIssues {
				t.Fatalf("issues = %d, want %d", len(issues), tt.wantIssues)
			}
			if tt.wantIssues > 0 && issues[0].Score != tt.wantScore {
				t.Errorf("score = %d, want %d", issues[0].Score, tt.wantScore)
			}
		})
	}
}

func TestCredReportAuditorRoot(t *testing.T) {
	recent := auditNow.Add(-2 * time.Hour).Format(time.RFC3339)

	row := schema.CredReportRow{
		User:                   "<root_account>",
		ARN:                    "arn:aws:iam::123456789012:root",
		PasswordEnabled:        "not_supported",
		PasswordLastUsed:       recent,
		MFAActive:              "false",
		AccessKey1Active:       "true",
		AccessKey1LastUsedDate: recent,
		AccessKey2Active:       "false",
		AccessKey2LastUsedDate: "N/A",
	}
	raw, err := schema.Encode(row)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}

	a := &CredReportAuditor{Now: func() time.Time { return auditNow }}
	res := &Result{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	wantNotes := map[string]bool{
		"sa-iam-cis-1.1 - Root Account used in past 24hrs.":          false,
		"sa-iam-cis-1.12 - Root account has active access keys.":    false,
		"sa-iam-cis-1.13 - Root account does not have MFA enabled.": false,
	}
	for _, issue := range res.Issues() {
		if _, ok := wantNotes[issue.Notes]; ok {
			wantNotes[issue.Notes] = true
		}
	}
	for notes, seen := range wantNotes {
		if !seen {
			t.Errorf("missing issue with notes %q", notes)
		}
	}
	if len(res.Issues()) != 3 {
		t.Errorf("issues = %d, want 3", len(res.Issues()))
	}
}

func TestCredReportAuditorStaleCredentials(t *testing.T) {
	stale := auditNow.Add(-120 * 24 * time.Hour).Format(time.RFC3339)
	fresh := auditNow.Add(-10 * 24 * time.Hour).Format(time.RFC3339)

	tests := []struct {
		name       string
		row        schema.CredReportRow
		wantIssues int
	}{
		{
			name: "stale password",
			row: schema.CredReportRow{
				ARN:              "arn:aws:iam::123456789012:user/alice",
				PasswordEnabled:  "true",
				PasswordLastUsed: stale,
			},
			wantIssues: 1,
		},
		{
			name: "fresh password",
			row: schema.CredReportRow{
				ARN:              "arn:aws:iam::123456789012:user/alice",
				PasswordEnabled:  "true",
				PasswordLastUsed: fresh,
			},
			wantIssues: 0,
		},
		{
			name: "disabled password is not stale",
			row: schema.CredReportRow{
				ARN:              "arn:aws:iam::123456789012:user/alice",
				PasswordEnabled:  "false",
				PasswordLastUsed: stale,
			},
			wantIssues: 0,
		},
		{
			name: "active key never used counts as stale",
			row: schema.CredReportRow{
				ARN:                    "arn:aws:iam::123456789012:user/alice",
				PasswordEnabled:        "false",
				AccessKey1Active:       "true",
				AccessKey1LastUsedDate: "N/A",
			},
			wantIssues: 1,
		},
		{
			name: "both keys stale",
			row: schema.CredReportRow{
				ARN:                    "arn:aws:iam::123456789012:user/alice",
				PasswordEnabled:        "false",
				AccessKey1Active:       "true",
				AccessKey1LastUsedDate: stale,
				AccessKey2Active:       "true",
				AccessKey2LastUsedDate: stale,
			},
			wantIssues: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(tt.row)
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
			a := &CredReportAuditor{Now: func() time.Time { return auditNow }}
			res := &Result{}
			if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
				t.Fatalf("Audit() error = %v", err)
			}
			if got := len(res.Issues()); got != tt.wantIssues {
				t.Errorf("issues = %d, want %d", got, tt.wantIssues)
			}
		})
	}
}

func TestPasswordPolicyAuditor(t *testing.T) {
	compliant := schema.PasswordPolicy{
		MinimumPasswordLength:      14,
		RequireSymbols:             true,
		RequireNumbers:             true,
		RequireUppercaseCharacters: true,
		RequireLowercaseCharacters: true,
		ExpirePasswords:            true,
		MaxPasswordAge:             90,
		PasswordReusePrevention:    24,
	}

	t.Run("compliant policy", func(t *testing.T) {
		res := auditPasswordPolicy(t, compliant)
		if len(res.Issues()) != 0 {
			t.Errorf("issues = %d, want 0", len(res.Issues()))
		}
	})

	t.Run("missing policy fails every check", func(t *testing.T) {
		res := auditPasswordPolicy(t, schema.PasswordPolicy{})
		if len(res.Issues()) != 7 {
			t.Fatalf("issues = %d, want 7", len(res.Issues()))
		}
		for _, issue := range res.Issues() {
			if !strings.HasSuffix(issue.Notes, "Account has no password policy.") {
				t.Errorf("notes = %q, want missing policy note", issue.Notes)
			}
		}
	})

	t.Run("single failing rule", func(t *testing.T) {
		policy := compliant
		policy.MinimumPasswordLength = 8
		res := auditPasswordPolicy(t, policy)
		if len(res.Issues()) != 1 {
			t.Fatalf("issues = %d, want 1", len(res.Issues()))
		}
		want := "sa-iam-cis-1.9 - Password Policy should require at least 14 characters."
		if res.Issues()[0].Notes != want {
			t.Errorf("notes = %q, want %q", res.Issues()[0].Notes, want)
		}
	})

	t.Run("expiry over 90 days", func(t *testing.T) {
		policy := compliant
		policy.MaxPasswordAge = 180
		res := auditPasswordPolicy(t, policy)
		if len(res.Issues()) != 1 {
			t.Fatalf("issues = %d, want 1", len(res.Issues()))
		}
	})
}

func auditPasswordPolicy(t *testing.T, policy schema.PasswordPolicy) *Result {
	t.Helper()
	raw, err := schema.Encode(policy)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	res := &Result{}
	a := &PasswordPolicyAuditor{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	return res
}
