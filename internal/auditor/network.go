package auditor

import (
	"context"
	"strconv"
	"strings"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// RouteTableAuditor checks that routes toward VPC peering connections
// stay narrowly scoped.
type RouteTableAuditor struct{}

func (a *RouteTableAuditor) Index() string { return "routetable" }

func (a *RouteTableAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var rt schema.RouteTable
	if err := schema.Decode(t.Config, &rt); err != nil {
		return err
	}

	for _, route := range rt.Routes {
		if route.VpcPeeringConnectionID == "" {
			continue
		}
		mask, ok := cidrMask(route.DestinationCIDR)
		if !ok {
			continue
		}
		if mask < 24 {
			res.Add(10, "Informational",
				"sa-cis-4.4 - Large CIDR block routed to peer discovered, please investigate.")
		}
	}
	return nil
}

func cidrMask(cidr string) (int, bool) {
	_, suffix, ok := strings.Cut(cidr, "/")
	if !ok {
		return 0, false
	}
	mask, err := strconv.Atoi(suffix)
	if err != nil {
		return 0, false
	}
	return mask, true
}

// EC2InstanceAuditor checks that instances reach AWS resources through
// instance roles instead of embedded credentials.
type EC2InstanceAuditor struct{}

func (a *EC2InstanceAuditor) Index() string { return "ec2instance" }

func (a *EC2InstanceAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var inst schema.EC2Instance
	if err := schema.Decode(t.Config, &inst); err != nil {
		return err
	}

	if inst.IAMInstanceProfile == nil || inst.IAMInstanceProfile.ARN == "" {
		res.Add(10, "Informational", "sa-iam-cis-1.21 - Instance not assigned IAM role for EC2.")
	}
	return nil
}
