package aws

import (
	"context"
	"strings"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudtrail"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// CloudTrailWatcher slurps trails together with their logging status,
// the metric filters on their log group, and the notification
// subscribers behind each filter's alarms.
type CloudTrailWatcher struct {
	base
}

func NewCloudTrailWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *CloudTrailWatcher {
	return &CloudTrailWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *CloudTrailWatcher) Index() string { return "cloudtrail" }

func (w *CloudTrailWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		awsCfg := w.factory.ConfigFor(acct.Identifier, region)
		trailClient := cloudtrail.NewFromConfig(awsCfg)
		logsClient := cloudwatchlogs.NewFromConfig(awsCfg)
		alarmClient := cloudwatch.NewFromConfig(awsCfg)
		snsClient := sns.NewFromConfig(awsCfg)

		out, err := trailClient.DescribeTrails(ctx, &cloudtrail.DescribeTrailsInput{
			IncludeShadowTrails: awssdk.Bool(false),
		})
		if err != nil {
			return err
		}

		for _, trail := range out.TrailList {
			name := awssdk.ToString(trail.Name)

			cfg := schema.CloudTrail{
				Name:                      name,
				HomeRegion:                awssdk.ToString(trail.HomeRegion),
				IsMultiRegionTrail:        awssdk.ToBool(trail.IsMultiRegionTrail),
				CloudWatchLogsLogGroupARN: awssdk.ToString(trail.CloudWatchLogsLogGroupArn),
				KMSKeyID:                  awssdk.ToString(trail.KmsKeyId),
				S3BucketName:              awssdk.ToString(trail.S3BucketName),
				LogFileValidationEnabled:  awssdk.ToBool(trail.LogFileValidationEnabled),
			}

			status, err := trailClient.GetTrailStatus(ctx, &cloudtrail.GetTrailStatusInput{Name: trail.TrailARN})
			if err != nil {
				return err
			}
			cfg.IsLogging = awssdk.ToBool(status.IsLogging)

			if cfg.CloudWatchLogsLogGroupARN != "" {
				filters, err := w.slurpMetricFilters(ctx, logsClient, alarmClient, snsClient, cfg.CloudWatchLogsLogGroupARN)
				if err != nil {
					return err
				}
				cfg.MetricFilters = filters
			}

			items = append(items, watcher.ChangeItem{
				Index:   w.Index(),
				Account: acct.Identifier,
				Region:  region,
				Name:    name,
				ARN:     awssdk.ToString(trail.TrailARN),
				Config:  cfg,
			})
		}
		return nil
	})

	return items, exc, nil
}

func (w *CloudTrailWatcher) slurpMetricFilters(
	ctx context.Context,
	logsClient *cloudwatchlogs.Client,
	alarmClient *cloudwatch.Client,
	snsClient *sns.Client,
	logGroupARN string,
) ([]schema.MetricFilter, error) {
	logGroup := logGroupFromARN(logGroupARN)
	if logGroup == "" {
		return nil, nil
	}

	var filters []schema.MetricFilter

	p := cloudwatchlogs.NewDescribeMetricFiltersPaginator(logsClient, &cloudwatchlogs.DescribeMetricFiltersInput{
		LogGroupName: awssdk.String(logGroup),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, mf := range page.MetricFilters {
			filter := schema.MetricFilter{
				Name:          awssdk.ToString(mf.FilterName),
				FilterPattern: awssdk.ToString(mf.FilterPattern),
			}

			for _, transform := range mf.MetricTransformations {
				alarms, err := alarmClient.DescribeAlarmsForMetric(ctx, &cloudwatch.DescribeAlarmsForMetricInput{
					MetricName: transform.MetricName,
					Namespace:  transform.MetricNamespace,
				})
				if err != nil {
					return nil, err
				}
				for _, alarm := range alarms.MetricAlarms {
					for _, action := range alarm.AlarmActions {
						subs, err := snsClient.ListSubscriptionsByTopic(ctx, &sns.ListSubscriptionsByTopicInput{
							TopicArn: awssdk.String(action),
						})
						if err != nil {
							return nil, err
						}
						for _, sub := range subs.Subscriptions {
							filter.Subscribers = append(filter.Subscribers, awssdk.ToString(sub.Endpoint))
						}
					}
				}
			}

			filters = append(filters, filter)
		}
	}

	return filters, nil
}

// logGroupFromARN extracts the log group name out of
// arn:aws:logs:region:account:log-group:NAME:*.
func logGroupFromARN(arn string) string {
	parts := strings.Split(arn, ":")
	if len(parts) < 7 {
		return ""
	}
	return parts[6]
}
