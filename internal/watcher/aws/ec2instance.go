package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// EC2InstanceWatcher slurps EC2 instances.
type EC2InstanceWatcher struct {
	base
}

func NewEC2InstanceWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *EC2InstanceWatcher {
	return &EC2InstanceWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *EC2InstanceWatcher) Index() string { return "ec2instance" }

func (w *EC2InstanceWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := ec2.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		p := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, reservation := range page.Reservations {
				for _, inst := range reservation.Instances {
					id := awssdk.ToString(inst.InstanceId)

					cfg := schema.EC2Instance{
						ID:           id,
						InstanceType: string(inst.InstanceType),
					}
					if inst.State != nil {
						cfg.State = string(inst.State.Name)
					}
					if inst.IamInstanceProfile != nil {
						cfg.IAMInstanceProfile = &schema.InstanceProfile{
							ARN: awssdk.ToString(inst.IamInstanceProfile.Arn),
							ID:  awssdk.ToString(inst.IamInstanceProfile.Id),
						}
					}
					if len(inst.Tags) > 0 {
						cfg.Tags = make(map[string]string, len(inst.Tags))
						for _, tag := range inst.Tags {
							cfg.Tags[awssdk.ToString(tag.Key)] = awssdk.ToString(tag.Value)
						}
					}

					items = append(items, watcher.ChangeItem{
						Index:   w.Index(),
						Account: acct.Identifier,
						Region:  region,
						Name:    id,
						ARN:     fmt.Sprintf("arn:aws:ec2:%s:%s:instance/%s", region, acct.Identifier, id),
						Config:  cfg,
					})
				}
			}
		}
		return nil
	})

	return items, exc, nil
}
