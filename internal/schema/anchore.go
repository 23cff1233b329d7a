package schema

// AnchoreImage is the stored vulnerability report for one container
// image, grouped by package.
type AnchoreImage struct {
	Digest          string        `json:"digest"`
	Tag             string        `json:"tag"`
	Vulnerabilities []AnchoreVuln `json:"vulnerabilities,omitempty"`
}

// AnchoreVuln is one vulnerability reported against a package.
type AnchoreVuln struct {
	ID       string `json:"vuln"`
	Package  string `json:"package"`
	Severity string `json:"severity"`
	Fix      string `json:"fix,omitempty"`
	URL      string `json:"url,omitempty"`
}

// AnchoreScore maps an Anchore severity label to a numeric score.
func AnchoreScore(severity string) int {
	switch severity {
	case "Low":
		return 3
	case "Medium":
		return 6
	case "High":
		return 10
	default:
		return 0
	}
}
