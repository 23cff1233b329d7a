package schema

// RouteTable is the stored configuration of a VPC route table.
type RouteTable struct {
	ID     string  `json:"id"`
	VpcID  string  `json:"vpc_id,omitempty"`
	Routes []Route `json:"routes"`
}

// Route is a single route table entry.
type Route struct {
	DestinationCIDR        string `json:"destination_cidr_block,omitempty"`
	GatewayID              string `json:"gateway_id,omitempty"`
	VpcPeeringConnectionID string `json:"vpc_peering_connection_id,omitempty"`
	State                  string `json:"state,omitempty"`
}

// EC2Instance is the stored configuration of an EC2 instance.
type EC2Instance struct {
	ID                 string            `json:"id"`
	InstanceType       string            `json:"instance_type,omitempty"`
	State              string            `json:"state,omitempty"`
	IAMInstanceProfile *InstanceProfile  `json:"iam_instance_profile,omitempty"`
	Tags               map[string]string `json:"tags,omitempty"`
}

// InstanceProfile is the IAM instance profile attached to an instance.
type InstanceProfile struct {
	ARN string `json:"arn"`
	ID  string `json:"id,omitempty"`
}
