package event

import (
	"encoding/json"
	"time"
)

// GuardDutyEvent is one raw detection delivered to the ingest endpoint.
// The original finding detail is kept verbatim for later inspection.
type GuardDutyEvent struct {
	ID          int64           `json:"id"`
	ItemID      int64           `json:"item_id"`
	Detail      json.RawMessage `json:"detail"`
	DateCreated time.Time       `json:"date_created"`
}
