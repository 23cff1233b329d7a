package scanner

// Config holds connection details for one container scan engine.
type Config struct {
	ID        int64  `json:"id"`
	Name      string `json:"name" validate:"required"`
	Username  string `json:"username" validate:"required"`
	Password  string `json:"password,omitempty" validate:"required"`
	URL       string `json:"url" validate:"required,url"`
	SSLVerify bool   `json:"ssl_verify"`
}
