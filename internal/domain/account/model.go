package account

// Account represents a watched cloud account
type Account struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	Identifier string `json:"identifier"`
	Notes      string `json:"notes,omitempty"`
	Active     bool   `json:"active"`
	ThirdParty bool   `json:"third_party"`
	// NotifyEmails receive the account's periodic issue report.
	NotifyEmails []string `json:"notify_emails,omitempty"`
}

// MaskedIdentifier returns the account number with all but the last four
// digits replaced.
func (a Account) MaskedIdentifier() string {
	if len(a.Identifier) <= 4 {
		return a.Identifier
	}
	return "XXXXXXXX" + a.Identifier[len(a.Identifier)-4:]
}
