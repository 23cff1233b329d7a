package schema

// SecurityGroup is the stored configuration of an EC2 security group.
type SecurityGroup struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	VpcID       string              `json:"vpc_id,omitempty"`
	IsDefault   bool                `json:"is_default"`
	Rules       []SecurityGroupRule `json:"rules"`
}

// Rule directions.
const (
	RuleIngress = "ingress"
	RuleEgress  = "egress"
)

// ProtocolAll is the wildcard protocol covering every port.
const ProtocolAll = "-1"

// SecurityGroupRule is a single ingress or egress permission.
type SecurityGroupRule struct {
	Type     string `json:"rule_type"`
	Protocol string `json:"ip_protocol,omitempty"`
	FromPort *int32 `json:"from_port,omitempty"`
	ToPort   *int32 `json:"to_port,omitempty"`
	CIDR     string `json:"cidr_ip,omitempty"`
	// Set when the rule references another security group instead of a
	// CIDR block.
	SourceGroupID string `json:"group_id,omitempty"`
	OwnerID       string `json:"owner_id,omitempty"`
}

// CoversPort reports whether the rule opens the given port. A nil port
// range or the wildcard protocol covers all ports.
func (r SecurityGroupRule) CoversPort(port int32) bool {
	if r.Protocol == ProtocolAll {
		return true
	}
	if r.FromPort == nil || r.ToPort == nil {
		return true
	}
	return *r.FromPort <= port && port <= *r.ToPort
}
