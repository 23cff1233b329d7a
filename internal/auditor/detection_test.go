package auditor

import (
	"context"
	"testing"

	"github.com/stackwatch/stackwatch/internal/schema"
)

func TestConfigRecorderAuditor(t *testing.T) {
	tests := []struct {
		name       string
		recorder   bool
		wantIssues int
	}{
		{name: "recorder enabled", recorder: true, wantIssues: 0},
		{name: "recorder missing", recorder: false, wantIssues: 1},
	}

	a := &ConfigRecorderAuditor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(schema.ConfigRecorder{
				Region:   "eu-west-1",
				Account:  "123456789012",
				Recorder: tt.recorder,
			})
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
			res := &Result{}
			if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
				t.Fatalf("Audit() error = %v", err)
			}
			if got := len(res.Issues()); got != tt.wantIssues {
				t.Fatalf("issues = %d, want %d", got, tt.wantIssues)
			}
			if tt.wantIssues == 1 {
				want := "AWS Config Recorder is not enabled on eu-west-1"
				if res.Issues()[0].Notes != want {
					t.Errorf("notes = %q, want %q", res.Issues()[0].Notes, want)
				}
			}
		})
	}
}

func TestGuardDutyAuditor(t *testing.T) {
	raw, err := schema.Encode(schema.GuardDutyDetail{
		Type:        "Recon:EC2/PortProbeUnprotectedPort",
		Title:       "Unprotected port on EC2 instance is being probed.",
		Description: "EC2 instance has an unprotected port which is being probed.",
		Severity:    5.3,
	})
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}

	a := &GuardDutyAuditor{}
	res := &Result{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	issues := res.Issues()
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	if issues[0].Score != 5 {
		t.Errorf("score = %d, want severity truncated to 5", issues[0].Score)
	}
	if issues[0].Issue != "Unprotected port on EC2 instance is being probed." {
		t.Errorf("issue = %q", issues[0].Issue)
	}
}

func TestInspectorAuditor(t *testing.T) {
	tests := []struct {
		name             string
		finding          schema.InspectorFinding
		wantInstructions string
	}{
		{
			name: "with recommendation",
			finding: schema.InspectorFinding{
				Title:           "CVE-2024-1234 in openssl",
				Description:     "The package is vulnerable.",
				Recommendation:  "Upgrade openssl.",
				NumericSeverity: 8,
			},
			wantInstructions: "Upgrade openssl.",
		},
		{
			name: "without recommendation",
			finding: schema.InspectorFinding{
				Title:           "CVE-2024-1234 in openssl",
				Description:     "The package is vulnerable.",
				NumericSeverity: 8,
			},
			wantInstructions: "",
		},
	}

	a := &InspectorAuditor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(tt.finding)
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
			res := &Result{}
			if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
				t.Fatalf("Audit() error = %v", err)
			}
			if len(res.Issues()) != 1 {
				t.Fatalf("issues = %d, want 1", len(res.Issues()))
			}
			issue := res.Issues()[0]
			// The remediation text rides alongside the notes, not in them.
			if issue.Notes != "The package is vulnerable." {
				t.Errorf("notes = %q", issue.Notes)
			}
			if issue.ActionInstructions != tt.wantInstructions {
				t.Errorf("action instructions = %q, want %q", issue.ActionInstructions, tt.wantInstructions)
			}
		})
	}
}

func TestAnchoreAuditor(t *testing.T) {
	raw, err := schema.Encode(schema.AnchoreImage{
		Digest: "sha256:abc",
		Tag:    "registry/app:latest",
		Vulnerabilities: []schema.AnchoreVuln{
			{ID: "CVE-2024-0001", Package: "zlib-1.2.11", Severity: "High", Fix: "1.2.12", URL: "https://nvd.example/CVE-2024-0001"},
			{ID: "CVE-2024-0002", Package: "bash-5.0", Severity: "Low", Fix: "None"},
		},
	})
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}

	a := &AnchoreAuditor{}
	res := &Result{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}

	issues := res.Issues()
	if len(issues) != 2 {
		t.Fatalf("issues = %d, want 2", len(issues))
	}
	if issues[0].Issue != "zlib-1.2.11/High/CVE-2024-0001" {
		t.Errorf("issue = %q", issues[0].Issue)
	}
	if issues[0].Score != 10 {
		t.Errorf("score = %d, want 10 for High", issues[0].Score)
	}
	if issues[0].Notes != "Info: [https://nvd.example/CVE-2024-0001], Fix: 1.2.12" {
		t.Errorf("notes = %q", issues[0].Notes)
	}
	if issues[1].Score != 3 {
		t.Errorf("score = %d, want 3 for Low", issues[1].Score)
	}
}
