package report

import "time"

// FeedItem is one row of the open-issue report feed.
type FeedItem struct {
	ItemID     int64  `json:"item_id"`
	Name       string `json:"name"`
	Region     string `json:"region"`
	Account    string `json:"account"`
	Technology string `json:"technology"`
	Score      int    `json:"score"`
	Issue      string `json:"issue"`
	Notes      string `json:"notes,omitempty"`
}

// Feed wraps a list of feed items with its count.
type Feed struct {
	Items []FeedItem `json:"items"`
	Count int        `json:"count"`
}

// PoamItem is one row of the plan-of-action-and-milestones summary.
// The weakness description carries the issue notes with the item's
// region and name appended.
type PoamItem struct {
	PoamID              string    `json:"poam_id"`
	Control             string    `json:"control"`
	WeaknessName        string    `json:"weakness_name"`
	WeaknessDescription string    `json:"weakness_description"`
	Score               int       `json:"score"`
	Comments            string    `json:"poam_comments,omitempty"`
	CreateDate          time.Time `json:"create_date"`
}

// TopIssue aggregates open issues by technology and issue text.
type TopIssue struct {
	Technology string `json:"technology"`
	Issue      string `json:"issue"`
	Count      int64  `json:"count"`
}

// TechCount aggregates open issues per technology.
type TechCount struct {
	Technology string  `json:"technology"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SeverityCount aggregates open issues per severity band.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// MonthCount aggregates issues per calendar month.
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

// MonthFilter narrows the monthly issue aggregation.
type MonthFilter struct {
	Severity   string
	Technology string
	Accounts   []string
}

// CountryCount aggregates port probes by source country.
type CountryCount struct {
	Country string `json:"countryName"`
	Count   int64  `json:"count"`
}

// ProbeLocation aggregates port probes by source coordinates. Beyond
// the coordinates and count it carries the enrichment data of the first
// probe seen at the point.
type ProbeLocation struct {
	Lat             float64 `json:"lat"`
	Lon             float64 `json:"lon"`
	Count           int64   `json:"count"`
	CityName        string  `json:"cityName,omitempty"`
	CountryName     string  `json:"countryName,omitempty"`
	LocalPort       int32   `json:"localPort,omitempty"`
	LocalPortName   string  `json:"localPortName,omitempty"`
	RemoteIPV4      string  `json:"remoteIpV4,omitempty"`
	RemoteOrg       string  `json:"remoteOrg,omitempty"`
	RemoteOrgASN    string  `json:"remoteOrgASN,omitempty"`
	RemoteOrgASNOrg string  `json:"remoteOrgASNOrg,omitempty"`
	RemoteOrgISP    string  `json:"remoteOrgISP,omitempty"`
}

// ReportableScore is the minimum score for an issue to appear in the
// mailed report and the open-issue feed.
const ReportableScore = 7
