package schema

// GuardDutyDetail is the finding detail stored for a threat detection
// item, either slurped from the API or delivered to the ingest endpoint.
type GuardDutyDetail struct {
	ID          string           `json:"id,omitempty"`
	AccountID   string           `json:"accountId"`
	Region      string           `json:"region"`
	Type        string           `json:"type"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Severity    float64          `json:"severity"`
	Service     *GuardDutyService `json:"service,omitempty"`
}

// GuardDutyService carries the action data of a finding.
type GuardDutyService struct {
	Action *GuardDutyAction `json:"action,omitempty"`
}

// GuardDutyAction holds the per-action-type payloads.
type GuardDutyAction struct {
	ActionType      string           `json:"actionType,omitempty"`
	PortProbeAction *PortProbeAction `json:"portProbeAction,omitempty"`
}

// PortProbeAction lists the individual probes of a port probe finding.
type PortProbeAction struct {
	PortProbeDetails []PortProbeDetail `json:"portProbeDetails"`
}

// PortProbeDetail describes one probe source and the local port it
// touched.
type PortProbeDetail struct {
	LocalPortDetails LocalPortDetails `json:"localPortDetails"`
	RemoteIPDetails  RemoteIPDetails  `json:"remoteIpDetails"`
}

// LocalPortDetails names the probed port.
type LocalPortDetails struct {
	Port     int32  `json:"port,omitempty"`
	PortName string `json:"portName,omitempty"`
}

// RemoteIPDetails locates the probing host.
type RemoteIPDetails struct {
	IPAddressV4  string          `json:"ipAddressV4,omitempty"`
	City         GeoCity         `json:"city"`
	Country      GeoCountry      `json:"country"`
	GeoLocation  GeoLocation     `json:"geoLocation"`
	Organization GeoOrganization `json:"organization"`
}

// GeoCity names the source city of a probe.
type GeoCity struct {
	CityName string `json:"cityName"`
}

// GeoCountry names the source country of a probe.
type GeoCountry struct {
	CountryName string `json:"countryName"`
}

// GeoOrganization identifies the network the probe came from.
type GeoOrganization struct {
	ASN    string `json:"asn,omitempty"`
	ASNOrg string `json:"asnOrg,omitempty"`
	ISP    string `json:"isp,omitempty"`
	Org    string `json:"org,omitempty"`
}

// GeoLocation holds the source coordinates of a probe.
type GeoLocation struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}
