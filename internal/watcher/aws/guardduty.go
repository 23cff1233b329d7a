package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/guardduty"
	gdtypes "github.com/aws/aws-sdk-go-v2/service/guardduty/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// findingBatch is the GetFindings request cap.
const findingBatch = 50

// GuardDutyWatcher slurps current findings from every detector, one
// item per finding.
type GuardDutyWatcher struct {
	base
}

func NewGuardDutyWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *GuardDutyWatcher {
	return &GuardDutyWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *GuardDutyWatcher) Index() string { return "guardduty" }

func (w *GuardDutyWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := guardduty.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		detectors, err := client.ListDetectors(ctx, &guardduty.ListDetectorsInput{})
		if err != nil {
			return err
		}

		for _, detectorID := range detectors.DetectorIds {
			ids, err := listFindingIDs(ctx, client, detectorID)
			if err != nil {
				return err
			}

			for start := 0; start < len(ids); start += findingBatch {
				end := start + findingBatch
				if end > len(ids) {
					end = len(ids)
				}

				out, err := client.GetFindings(ctx, &guardduty.GetFindingsInput{
					DetectorId: awssdk.String(detectorID),
					FindingIds: ids[start:end],
				})
				if err != nil {
					return err
				}

				for _, finding := range out.Findings {
					detail := convertFinding(finding)
					items = append(items, watcher.ChangeItem{
						Index:   w.Index(),
						Account: acct.Identifier,
						Region:  region,
						Name:    detail.ID,
						ARN:     awssdk.ToString(finding.Arn),
						Config:  detail,
					})
				}
			}
		}
		return nil
	})

	return items, exc, nil
}

func listFindingIDs(ctx context.Context, client *guardduty.Client, detectorID string) ([]string, error) {
	var ids []string
	p := guardduty.NewListFindingsPaginator(client, &guardduty.ListFindingsInput{
		DetectorId: awssdk.String(detectorID),
		FindingCriteria: &gdtypes.FindingCriteria{
			Criterion: map[string]gdtypes.Condition{
				"service.archived": {Equals: []string{"false"}},
			},
		},
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		ids = append(ids, page.FindingIds...)
	}
	return ids, nil
}

func convertFinding(finding gdtypes.Finding) schema.GuardDutyDetail {
	detail := schema.GuardDutyDetail{
		ID:          awssdk.ToString(finding.Id),
		AccountID:   awssdk.ToString(finding.AccountId),
		Region:      awssdk.ToString(finding.Region),
		Type:        awssdk.ToString(finding.Type),
		Title:       awssdk.ToString(finding.Title),
		Description: awssdk.ToString(finding.Description),
		Severity:    awssdk.ToFloat64(finding.Severity),
	}

	if finding.Service == nil || finding.Service.Action == nil {
		return detail
	}
	action := finding.Service.Action

	detail.Service = &schema.GuardDutyService{
		Action: &schema.GuardDutyAction{
			ActionType: awssdk.ToString(action.ActionType),
		},
	}

	if action.PortProbeAction == nil {
		return detail
	}

	probe := &schema.PortProbeAction{}
	for _, pd := range action.PortProbeAction.PortProbeDetails {
		if pd.RemoteIpDetails == nil {
			continue
		}
		converted := schema.PortProbeDetail{
			RemoteIPDetails: schema.RemoteIPDetails{
				IPAddressV4: awssdk.ToString(pd.RemoteIpDetails.IpAddressV4),
			},
		}
		if pd.RemoteIpDetails.Country != nil {
			converted.RemoteIPDetails.Country.CountryName = awssdk.ToString(pd.RemoteIpDetails.Country.CountryName)
		}
		if pd.RemoteIpDetails.GeoLocation != nil {
			converted.RemoteIPDetails.GeoLocation.Lat = awssdk.ToFloat64(pd.RemoteIpDetails.GeoLocation.Lat)
			converted.RemoteIPDetails.GeoLocation.Lon = awssdk.ToFloat64(pd.RemoteIpDetails.GeoLocation.Lon)
		}
		probe.PortProbeDetails = append(probe.PortProbeDetails, converted)
	}
	detail.Service.Action.PortProbeAction = probe

	return detail
}
