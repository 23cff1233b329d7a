package client

import (
	"encoding/json"
	"time"
)

// ListOptions contains common pagination options.
type ListOptions struct {
	Page  int
	Count int
}

// Item is one tracked configuration item.
type Item struct {
	ID               int64  `json:"id"`
	Technology       string `json:"technology"`
	Account          string `json:"account"`
	Region           string `json:"region"`
	Name             string `json:"name"`
	ARN              string `json:"arn,omitempty"`
	LatestRevisionID int64  `json:"latest_revision_id,omitempty"`
}

// Revision is one stored configuration revision of an item.
type Revision struct {
	ID                      int64           `json:"id"`
	ItemID                  int64           `json:"item_id"`
	Config                  json.RawMessage `json:"config"`
	Active                  bool            `json:"active"`
	DateCreated             time.Time       `json:"date_created"`
	DateLastEphemeralChange *time.Time      `json:"date_last_ephemeral_change,omitempty"`
}

// ItemDetail is an item together with its latest revision.
type ItemDetail struct {
	Item     Item     `json:"item"`
	Revision Revision `json:"revision"`
}

// Issue is one scored audit finding.
type Issue struct {
	ID            int64      `json:"id"`
	ItemID        int64      `json:"item_id"`
	Score         int        `json:"score"`
	Issue         string     `json:"issue"`
	Notes         string     `json:"notes,omitempty"`
	Fixed         bool       `json:"fixed"`
	Justified     bool       `json:"justified"`
	JustifiedUser string     `json:"justified_user,omitempty"`
	Justification string     `json:"justification,omitempty"`
	JustifiedDate *time.Time `json:"justified_date,omitempty"`
	DateCreated   time.Time  `json:"date_created"`
}

// Account is one watched cloud account.
type Account struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Notes      string `json:"notes,omitempty"`
	Active     bool   `json:"active"`
	ThirdParty bool   `json:"third_party"`
}

// ScannerConfig is one container scan engine configuration. The
// password is write-only and never returned by the API.
type ScannerConfig struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	Password  string `json:"password,omitempty"`
	URL       string `json:"url"`
	SSLVerify bool   `json:"ssl_verify"`
}

// FeedItem is one reportable issue in the vulnerability feed.
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

// PoamItem is one plan-of-action-and-milestones summary row.
type PoamItem struct {
	PoamID              string `json:"poam_id"`
	Control             string `json:"control"`
	WeaknessName        string `json:"weakness_name"`
	WeaknessDescription string `json:"weakness_description"`
	Score               int    `json:"score"`
	Comments            string `json:"poam_comments,omitempty"`
}

// RunSummary is the outcome of one scan cycle for a technology.
type RunSummary struct {
	Technology  string        `json:"technology"`
	Items       int           `json:"items"`
	Created     int           `json:"created"`
	Changed     int           `json:"changed"`
	Ephemeral   int           `json:"ephemeral"`
	Deactivated int           `json:"deactivated"`
	Audit       *AuditSummary `json:"audit,omitempty"`
}

// AuditSummary is the audit outcome within a run summary.
type AuditSummary struct {
	Technology string `json:"technology"`
	Items      int    `json:"items"`
	Issues     int    `json:"issues"`
	Created    int    `json:"created"`
	Fixed      int    `json:"fixed"`
}

// TechnologyCount is one row of the vulnerabilities-by-technology chart.
type TechnologyCount struct {
	Technology string  `json:"technology"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// SeverityCount is one row of the vulnerabilities-by-severity chart.
type SeverityCount struct {
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// MonthCount is one row of the issues-by-month chart.
type MonthCount struct {
	Month time.Time `json:"month"`
	Count int64     `json:"count"`
}

// HealthResponse is the health check response body.
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
}
