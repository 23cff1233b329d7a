package auditor

import (
	"context"
	"fmt"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// ConfigRecorderAuditor alerts for regions with no AWS Config recorder.
type ConfigRecorderAuditor struct{}

func (a *ConfigRecorderAuditor) Index() string { return "configrecorder" }

func (a *ConfigRecorderAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var rec schema.ConfigRecorder
	if err := schema.Decode(t.Config, &rec); err != nil {
		return err
	}

	if !rec.Recorder {
		res.Add(10,
			"CIS 2.5 Ensure AWS Config Recorder is enabled in all regions",
			fmt.Sprintf("AWS Config Recorder is not enabled on %s", rec.Region))
	}
	return nil
}

// GuardDutyAuditor turns each finding into one issue, scored by the
// finding severity.
type GuardDutyAuditor struct{}

func (a *GuardDutyAuditor) Index() string { return "guardduty" }

func (a *GuardDutyAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var detail schema.GuardDutyDetail
	if err := schema.Decode(t.Config, &detail); err != nil {
		return err
	}

	res.Add(int(detail.Severity), detail.Title, detail.Description)
	return nil
}

// InspectorAuditor turns each finding into one issue, scored by the
// numeric severity with the fix recommendation carried as the
// remediation instructions.
type InspectorAuditor struct{}

func (a *InspectorAuditor) Index() string { return "inspector" }

func (a *InspectorAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var finding schema.InspectorFinding
	if err := schema.Decode(t.Config, &finding); err != nil {
		return err
	}

	res.AddWithInstructions(finding.NumericSeverity, finding.Title, finding.Description, finding.Recommendation)
	return nil
}

// AnchoreAuditor raises one issue per reported vulnerability, scored by
// the severity label.
type AnchoreAuditor struct{}

func (a *AnchoreAuditor) Index() string { return "anchore" }

func (a *AnchoreAuditor) Audit(_ context.Context, t Target, res *Result) error {
	var image schema.AnchoreImage
	if err := schema.Decode(t.Config, &image); err != nil {
		return err
	}

	for _, vuln := range image.Vulnerabilities {
		issue := fmt.Sprintf("%s/%s/%s", vuln.Package, vuln.Severity, vuln.ID)
		notes := fmt.Sprintf("Info: [%s], Fix: %s", vuln.URL, vuln.Fix)
		res.Add(schema.AnchoreScore(vuln.Severity), issue, notes)
	}
	return nil
}
