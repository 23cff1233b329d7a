package auditor

import (
	"context"
	"testing"

	"github.com/stackwatch/stackwatch/internal/schema"
)

func TestRouteTableAuditor(t *testing.T) {
	tests := []struct {
		name       string
		routes     []schema.Route
		wantIssues int
	}{
		{
			name: "wide block toward peer",
			routes: []schema.Route{
				{DestinationCIDR: "10.0.0.0/8", VpcPeeringConnectionID: "pcx-1234"},
			},
			wantIssues: 1,
		},
		{
			name: "narrow block toward peer",
			routes: []schema.Route{
				{DestinationCIDR: "10.1.2.0/24", VpcPeeringConnectionID: "pcx-1234"},
			},
			wantIssues: 0,
		},
		{
			name: "wide block toward gateway is not a peering route",
			routes: []schema.Route{
				{DestinationCIDR: "0.0.0.0/0", GatewayID: "igw-1234"},
			},
			wantIssues: 0,
		},
		{
			name: "malformed cidr is skipped",
			routes: []schema.Route{
				{DestinationCIDR: "not-a-cidr", VpcPeeringConnectionID: "pcx-1234"},
			},
			wantIssues: 0,
		},
		{
			name:       "no routes",
			routes:     nil,
			wantIssues: 0,
		},
	}

	a := &RouteTableAuditor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(schema.RouteTable{ID: "rtb-1", Routes: tt.routes})
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
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

func TestEC2InstanceAuditor(t *testing.T) {
	tests := []struct {
		name       string
		profile    *schema.InstanceProfile
		wantIssues int
	}{
		{name: "no profile", profile: nil, wantIssues: 1},
		{name: "profile without arn", profile: &schema.InstanceProfile{}, wantIssues: 1},
		{
			name:       "profile attached",
			profile:    &schema.InstanceProfile{ARN: "arn:aws:iam::123456789012:instance-profile/web"},
			wantIssues: 0,
		},
	}

	a := &EC2InstanceAuditor{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := schema.Encode(schema.EC2Instance{ID: "i-1234", IAMInstanceProfile: tt.profile})
			if err != nil {
				t.Fatalf("encode config: %v", err)
			}
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

func TestCIDRMask(t *testing.T) {
	tests := []struct {
		cidr   string
		mask   int
		wantOK bool
	}{
		{"10.0.0.0/8", 8, true},
		{"192.168.0.0/24", 24, true},
		{"10.0.0.1", 0, false},
		{"10.0.0.0/abc", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		mask, ok := cidrMask(tt.cidr)
		if ok != tt.wantOK || mask != tt.mask {
			t.Errorf("cidrMask(%q) = (%d, %v), want (%d, %v)", tt.cidr, mask, ok, tt.mask, tt.wantOK)
		}
	}
}
