package schema

// Grantee URIs for the predefined S3 groups open to the world.
const (
	GranteeAllUsers           = "http://acs.amazonaws.com/groups/global/AllUsers"
	GranteeAuthenticatedUsers = "http://acs.amazonaws.com/groups/global/AuthenticatedUsers"
)

// S3Bucket is the stored configuration of an S3 bucket.
type S3Bucket struct {
	Name    string    `json:"name"`
	Owner   string    `json:"owner,omitempty"`
	Grants  []Grant   `json:"grants,omitempty"`
	Logging S3Logging `json:"logging"`
}

// Grant is one ACL grant on a bucket. Grantee holds either the group
// URI or the canonical user display name.
type Grant struct {
	Grantee    string `json:"grantee"`
	Permission string `json:"permission"`
}

// S3Logging is the bucket's server access logging state.
type S3Logging struct {
	Enabled bool   `json:"enabled"`
	Target  string `json:"target,omitempty"`
}
