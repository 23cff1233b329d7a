package auditor

import (
	"context"
	"testing"

	"github.com/stackwatch/stackwatch/internal/schema"
)

func i32(v int32) *int32 { return &v }

func auditSecurityGroup(t *testing.T, sg schema.SecurityGroup) *Result {
	t.Helper()
	raw, err := schema.Encode(sg)
	if err != nil {
		t.Fatalf("encode config: %v", err)
	}
	res := &Result{}
	a := &SecurityGroupAuditor{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	return res
}

func TestSecurityGroupAuditorWorldOpenPorts(t *testing.T) {
	tests := []struct {
		name       string
		rule       schema.SecurityGroupRule
		wantIssues int
	}{
		{
			name: "ssh open to the world",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: "tcp",
				FromPort: i32(22),
				ToPort:   i32(22),
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 1,
		},
		{
			name: "rdp open to the world",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: "tcp",
				FromPort: i32(3389),
				ToPort:   i32(3389),
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 1,
		},
		{
			name: "range covering ssh",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: "tcp",
				FromPort: i32(0),
				ToPort:   i32(1024),
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 1,
		},
		{
			name: "wildcard protocol open to the world flags both ports",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: schema.ProtocolAll,
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 2,
		},
		{
			name: "wildcard protocol with a private cidr is fine",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: schema.ProtocolAll,
				CIDR:     "10.0.0.0/8",
			},
			wantIssues: 0,
		},
		{
			name: "narrow cidr is fine",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: "tcp",
				FromPort: i32(22),
				ToPort:   i32(22),
				CIDR:     "192.168.1.0/24",
			},
			wantIssues: 0,
		},
		{
			name: "egress rules are not checked",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleEgress,
				Protocol: "tcp",
				FromPort: i32(22),
				ToPort:   i32(22),
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 0,
		},
		{
			name: "unrelated port open to the world",
			rule: schema.SecurityGroupRule{
				Type:     schema.RuleIngress,
				Protocol: "tcp",
				FromPort: i32(443),
				ToPort:   i32(443),
				CIDR:     "0.0.0.0/0",
			},
			wantIssues: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := auditSecurityGroup(t, schema.SecurityGroup{
				ID:    "sg-12345",
				Rules: []schema.SecurityGroupRule{tt.rule},
			})
			if got := len(res.Issues()); got != tt.wantIssues {
				t.Errorf("issues = %d, want %d", got, tt.wantIssues)
			}
		})
	}
}

func TestSecurityGroupAuditorDefaultGroup(t *testing.T) {
	res := auditSecurityGroup(t, schema.SecurityGroup{
		ID:        "sg-default",
		Name:      "default",
		IsDefault: true,
		Rules: []schema.SecurityGroupRule{
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(80), ToPort: i32(80), CIDR: "10.0.0.0/8"},
			{Type: schema.RuleEgress, Protocol: schema.ProtocolAll, CIDR: "0.0.0.0/0"},
		},
	})

	issues := res.Issues()
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want a single default-group issue", len(issues))
	}
	if issues[0].Issue != "CIS 4.4 Default Security Group carries ingress or egress rules" {
		t.Errorf("issue = %q", issues[0].Issue)
	}
	if issues[0].Score != 10 {
		t.Errorf("score = %d, want 10", issues[0].Score)
	}
}

func TestSecurityGroupAuditorOneIssuePerMatchingRule(t *testing.T) {
	res := auditSecurityGroup(t, schema.SecurityGroup{
		ID: "sg-12345",
		Rules: []schema.SecurityGroupRule{
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(22), ToPort: i32(22), CIDR: "0.0.0.0/0"},
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(0), ToPort: i32(65535), CIDR: "0.0.0.0/0"},
		},
	})
	if got := len(res.Issues()); got != 3 {
		t.Fatalf("issues = %d, want one per matching rule and port", got)
	}
}

func TestSecurityGroupAuditorEmptyDefaultGroup(t *testing.T) {
	res := auditSecurityGroup(t, schema.SecurityGroup{
		ID:        "sg-default",
		IsDefault: true,
	})
	if len(res.Issues()) != 0 {
		t.Errorf("issues = %d, want 0 for a default group with no rules", len(res.Issues()))
	}
}

func TestSecurityGroupAuditorNotes(t *testing.T) {
	res := auditSecurityGroup(t, schema.SecurityGroup{
		ID: "sg-12345",
		Rules: []schema.SecurityGroupRule{
			{Type: schema.RuleIngress, Protocol: "tcp", FromPort: i32(22), ToPort: i32(22), CIDR: "0.0.0.0/0"},
		},
	})

	issues := res.Issues()
	if len(issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(issues))
	}
	want := "[cidr:0.0.0.0/0] Access: [ingress:tcp:22]"
	if issues[0].Notes != want {
		t.Errorf("notes = %q, want %q", issues[0].Notes, want)
	}
	if issues[0].Score != 10 {
		t.Errorf("score = %d, want 10", issues[0].Score)
	}
}
