package schema

// InspectorFinding is the stored configuration of one Inspector finding.
type InspectorFinding struct {
	ARN            string `json:"arn"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	Recommendation string `json:"recommendation,omitempty"`
	Severity       string `json:"severity"`
	// NumericSeverity is the 0 to 10 score derived from the severity.
	NumericSeverity int `json:"numeric_severity"`
}

// InspectorScore maps an Inspector severity label to a numeric score.
func InspectorScore(severity string) int {
	switch severity {
	case "CRITICAL":
		return 10
	case "HIGH":
		return 8
	case "MEDIUM":
		return 6
	case "LOW":
		return 3
	default:
		return 0
	}
}
