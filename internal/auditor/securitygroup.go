package auditor

import (
	"context"
	"fmt"
	"strings"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// SecurityGroupAuditor checks EC2 security groups against the CIS 4.x
// network benchmarks.
type SecurityGroupAuditor struct{}

func (a *SecurityGroupAuditor) Index() string { return "securitygroup" }

func (a *SecurityGroupAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var sg schema.SecurityGroup
	if err := schema.Decode(t.Config, &sg); err != nil {
		return err
	}

	a.checkWorldOpenPort(sg, 22, "CIS 4.1 Security Group permits unrestricted ingress access to port 22", res)
	a.checkWorldOpenPort(sg, 3389, "CIS 4.2 Security Group permits unrestricted ingress access to port 3389", res)
	a.checkDefaultRestrictsTraffic(sg, res)
	return nil
}

// checkWorldOpenPort alerts when an ingress rule opens the port to the
// world. The wildcard protocol relaxes only the port condition; the
// rule's own CIDR must still be world-open.
func (a *SecurityGroupAuditor) checkWorldOpenPort(sg schema.SecurityGroup, port int32, tag string, res *Result) {
	for _, rule := range sg.Rules {
		if rule.Type != schema.RuleIngress {
			continue
		}
		if !strings.HasSuffix(rule.CIDR, "/0") {
			continue
		}
		if !rule.CoversPort(port) {
			continue
		}
		res.Add(10, tag, fmt.Sprintf("[cidr:%s] Access: [%s]", rule.CIDR, accessPhrase(rule)))
	}
}

// checkDefaultRestrictsTraffic alerts once when the VPC default group
// carries any ingress or egress rule.
func (a *SecurityGroupAuditor) checkDefaultRestrictsTraffic(sg schema.SecurityGroup, res *Result) {
	if !sg.IsDefault || len(sg.Rules) == 0 {
		return
	}
	res.Add(10, "CIS 4.4 Default Security Group carries ingress or egress rules",
		fmt.Sprintf("[group:%s] Rules: %d", sg.ID, len(sg.Rules)))
}

// accessPhrase renders a rule as direction:protocol:port_range.
func accessPhrase(rule schema.SecurityGroupRule) string {
	protocol := rule.Protocol
	var portRange string
	switch {
	case protocol == schema.ProtocolAll:
		protocol = "all_protocols"
		portRange = "all_ports"
	case rule.FromPort == nil || rule.ToPort == nil:
		portRange = "all_ports"
	case *rule.FromPort == *rule.ToPort:
		portRange = fmt.Sprintf("%d", *rule.FromPort)
	default:
		portRange = fmt.Sprintf("%d-%d", *rule.FromPort, *rule.ToPort)
	}
	return fmt.Sprintf("%s:%s:%s", rule.Type, protocol, portRange)
}
