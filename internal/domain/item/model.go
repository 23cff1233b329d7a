package item

import (
	"encoding/json"
	"time"
)

// Item represents a single tracked cloud configuration item, identified
// by technology, account, region and name.
type Item struct {
	ID               int64  `json:"id"`
	TechID           int64  `json:"tech_id"`
	Technology       string `json:"technology"`
	AccountID        int64  `json:"account_id"`
	Account          string `json:"account"`
	Region           string `json:"region"`
	Name             string `json:"name"`
	ARN              string `json:"arn,omitempty"`
	LatestRevisionID int64  `json:"latest_revision_id,omitempty"`
}

// Revision is one stored configuration snapshot of an item.
type Revision struct {
	ID                      int64           `json:"id"`
	ItemID                  int64           `json:"item_id"`
	Config                  json.RawMessage `json:"config"`
	Active                  bool            `json:"active"`
	DateCreated             time.Time       `json:"date_created"`
	DateLastEphemeralChange *time.Time      `json:"date_last_ephemeral_change,omitempty"`
}

// The "universal" region is used for account-wide technologies such as
// IAM, which are not tied to a single region.
const RegionUniversal = "universal"

// Filter narrows item listings.
type Filter struct {
	Technology string
	Account    string
	Region     string
	Name       string
	Active     *bool
}
