package audit

import "time"

// Issue is one finding raised by an auditor against an item.
type Issue struct {
	ID                 int64      `json:"id"`
	ItemID             int64      `json:"item_id"`
	Score              int        `json:"score"`
	Issue              string     `json:"issue"`
	Notes              string     `json:"notes,omitempty"`
	ActionInstructions string     `json:"action_instructions,omitempty"`
	Fixed              bool       `json:"fixed"`
	Justified          bool       `json:"justified"`
	JustifiedUser      string     `json:"justified_user,omitempty"`
	Justification      string     `json:"justification,omitempty"`
	JustifiedDate      *time.Time `json:"justified_date,omitempty"`
	DateCreated        time.Time  `json:"date_created"`
}

// AuditorSettings controls one auditor's behavior against one
// technology and account pairing. Rows are created lazily the first
// time the pairing is audited.
type AuditorSettings struct {
	ID           int64  `json:"id"`
	TechID       int64  `json:"tech_id"`
	AccountID    int64  `json:"account_id"`
	Technology   string `json:"technology"`
	Account      string `json:"account"`
	AuditorClass string `json:"auditor_class"`
	Disabled     bool   `json:"disabled"`
	IssueText    string `json:"issue_text,omitempty"`
}

// Severity bands. Scores below 5 are low, 5 through 10 medium,
// above 10 high.
const (
	SeverityLow    = "low"
	SeverityMedium = "medium"
	SeverityHigh   = "high"
)

// Severity returns the band for a score.
func Severity(score int) string {
	switch {
	case score < 5:
		return SeverityLow
	case score <= 10:
		return SeverityMedium
	default:
		return SeverityHigh
	}
}

// Key identifies an issue within an item for reconciliation. Two
// findings with the same key are considered the same issue across
// audit passes.
type Key struct {
	Score int
	Issue string
	Notes string
}

// Key returns the reconciliation key of an issue.
func (i *Issue) Key() Key {
	return Key{Score: i.Score, Issue: i.Issue, Notes: i.Notes}
}

// Filter narrows issue listings.
type Filter struct {
	Technology string
	Account    string
	Justified  *bool
	Fixed      *bool
	MinScore   int
}
