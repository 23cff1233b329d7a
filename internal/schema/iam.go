package schema

import (
	"strings"
	"time"
)

// IAMUser is the stored configuration of an IAM user.
type IAMUser struct {
	ARN              string      `json:"arn"`
	UserName         string      `json:"user_name"`
	CreateDate       *time.Time  `json:"create_date,omitempty"`
	PasswordLastUsed *time.Time  `json:"password_last_used,omitempty"`
	MFADevices       []string    `json:"mfa_devices,omitempty"`
	AccessKeys       []AccessKey `json:"access_keys,omitempty"`
}

// AccessKey is one access key attached to an IAM user.
type AccessKey struct {
	ID           string     `json:"access_key_id"`
	Status       string     `json:"status"`
	CreateDate   *time.Time `json:"create_date,omitempty"`
	LastUsedDate *time.Time `json:"last_used_date,omitempty"`
}

// PasswordPolicy is the stored account password policy. A zero value
// means the account has no policy configured.
type PasswordPolicy struct {
	MinimumPasswordLength      int  `json:"minimum_password_length,omitempty"`
	RequireSymbols             bool `json:"require_symbols"`
	RequireNumbers             bool `json:"require_numbers"`
	RequireUppercaseCharacters bool `json:"require_uppercase_characters"`
	RequireLowercaseCharacters bool `json:"require_lowercase_characters"`
	ExpirePasswords            bool `json:"expire_passwords"`
	MaxPasswordAge             int  `json:"max_password_age,omitempty"`
	PasswordReusePrevention    int  `json:"password_reuse_prevention,omitempty"`
}

// IsZero reports whether no password policy is configured.
func (p PasswordPolicy) IsZero() bool {
	return p == PasswordPolicy{}
}

// CredReportRow is one row of the IAM credential report.
type CredReportRow struct {
	User                   string `json:"user"`
	ARN                    string `json:"arn"`
	UserCreationTime       string `json:"user_creation_time"`
	PasswordEnabled        string `json:"password_enabled"`
	PasswordLastUsed       string `json:"password_last_used"`
	PasswordLastChanged    string `json:"password_last_changed"`
	MFAActive              string `json:"mfa_active"`
	AccessKey1Active       string `json:"access_key_1_active"`
	AccessKey1LastRotated  string `json:"access_key_1_last_rotated"`
	AccessKey1LastUsedDate string `json:"access_key_1_last_used_date"`
	AccessKey2Active       string `json:"access_key_2_active"`
	AccessKey2LastRotated  string `json:"access_key_2_last_rotated"`
	AccessKey2LastUsedDate string `json:"access_key_2_last_used_date"`
}

// IsRoot reports whether the row describes the account root user.
func (r CredReportRow) IsRoot() bool {
	return strings.HasSuffix(r.ARN, ":root")
}

// CredReportBool interprets a credential report boolean column.
func CredReportBool(v string) bool {
	return strings.EqualFold(v, "true")
}

// CredReportDate parses a credential report date column. Placeholder
// values such as n/a and no_information parse to the Unix epoch.
func CredReportDate(v string) time.Time {
	switch strings.ToLower(v) {
	case "", "n/a", "no_information", "not_supported":
		return time.Unix(0, 0).UTC()
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Unix(0, 0).UTC()
	}
	return t
}
