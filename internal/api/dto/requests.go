package dto

// JustifyRequest marks an issue as accepted with a reason.
type JustifyRequest struct {
	Justification string `json:"justification" validate:"required"`
	User          string `json:"user" validate:"required"`
}

// AuditorSettingsRequest toggles one auditor pairing.
type AuditorSettingsRequest struct {
	Disabled bool `json:"disabled"`
}

// ScannerConfigRequest creates or updates a scan engine configuration.
type ScannerConfigRequest struct {
	Name      string `json:"name" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
	SSLVerify bool   `json:"ssl_verify"`
}

// ScannerConfigDTO is a scan engine configuration with the password
// withheld.
type ScannerConfigDTO struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Username  string `json:"username"`
	URL       string `json:"url"`
	SSLVerify bool   `json:"ssl_verify"`
}
