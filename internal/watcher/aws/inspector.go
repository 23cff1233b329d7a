package aws

import (
	"context"
	"time"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/inspector2"
	insptypes "github.com/aws/aws-sdk-go-v2/service/inspector2/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// Findings older than this are no longer slurped.
const inspectorWindow = 90 * 24 * time.Hour

// InspectorWatcher slurps vulnerability findings observed within the
// last ninety days, one item per finding.
type InspectorWatcher struct {
	base
}

func NewInspectorWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *InspectorWatcher {
	return &InspectorWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *InspectorWatcher) Index() string { return "inspector" }

func (w *InspectorWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	now := time.Now().UTC()
	windowStart := now.Add(-inspectorWindow)

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := inspector2.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		p := inspector2.NewListFindingsPaginator(client, &inspector2.ListFindingsInput{
			FilterCriteria: &insptypes.FilterCriteria{
				LastObservedAt: []insptypes.DateFilter{{
					StartInclusive: awssdk.Time(windowStart),
					EndInclusive:   awssdk.Time(now),
				}},
			},
		})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, finding := range page.Findings {
				arn := awssdk.ToString(finding.FindingArn)
				severity := string(finding.Severity)

				cfg := schema.InspectorFinding{
					ARN:             arn,
					Title:           awssdk.ToString(finding.Title),
					Description:     awssdk.ToString(finding.Description),
					Severity:        severity,
					NumericSeverity: schema.InspectorScore(severity),
				}
				if finding.Remediation != nil && finding.Remediation.Recommendation != nil {
					cfg.Recommendation = awssdk.ToString(finding.Remediation.Recommendation.Text)
				}

				items = append(items, watcher.ChangeItem{
					Index:   w.Index(),
					Account: acct.Identifier,
					Region:  region,
					Name:    arn,
					ARN:     arn,
					Config:  cfg,
				})
			}
		}
		return nil
	})

	return items, exc, nil
}
