package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// SecurityGroupWatcher slurps EC2 security groups.
type SecurityGroupWatcher struct {
	base
}

func NewSecurityGroupWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *SecurityGroupWatcher {
	return &SecurityGroupWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *SecurityGroupWatcher) Index() string { return "securitygroup" }

func (w *SecurityGroupWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := ec2.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		p := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, sg := range page.SecurityGroups {
				id := awssdk.ToString(sg.GroupId)
				name := awssdk.ToString(sg.GroupName)

				cfg := schema.SecurityGroup{
					ID:          id,
					Name:        name,
					Description: awssdk.ToString(sg.Description),
					VpcID:       awssdk.ToString(sg.VpcId),
					IsDefault:   name == "default",
				}
				cfg.Rules = append(cfg.Rules, convertPermissions(sg.IpPermissions, schema.RuleIngress)...)
				cfg.Rules = append(cfg.Rules, convertPermissions(sg.IpPermissionsEgress, schema.RuleEgress)...)

				items = append(items, watcher.ChangeItem{
					Index:   w.Index(),
					Account: acct.Identifier,
					Region:  region,
					Name:    fmt.Sprintf("%s (%s)", name, id),
					ARN:     fmt.Sprintf("arn:aws:ec2:%s:%s:security-group/%s", region, acct.Identifier, id),
					Config:  cfg,
				})
			}
		}
		return nil
	})

	return items, exc, nil
}

func convertPermissions(perms []ec2types.IpPermission, ruleType string) []schema.SecurityGroupRule {
	var rules []schema.SecurityGroupRule
	for _, perm := range perms {
		for _, ipRange := range perm.IpRanges {
			rules = append(rules, schema.SecurityGroupRule{
				Type:     ruleType,
				Protocol: awssdk.ToString(perm.IpProtocol),
				FromPort: perm.FromPort,
				ToPort:   perm.ToPort,
				CIDR:     awssdk.ToString(ipRange.CidrIp),
			})
		}
		for _, pair := range perm.UserIdGroupPairs {
			rules = append(rules, schema.SecurityGroupRule{
				Type:          ruleType,
				Protocol:      awssdk.ToString(perm.IpProtocol),
				FromPort:      perm.FromPort,
				ToPort:        perm.ToPort,
				SourceGroupID: awssdk.ToString(pair.GroupId),
				OwnerID:       awssdk.ToString(pair.UserId),
			})
		}
		if len(perm.IpRanges) == 0 && len(perm.UserIdGroupPairs) == 0 {
			rules = append(rules, schema.SecurityGroupRule{
				Type:     ruleType,
				Protocol: awssdk.ToString(perm.IpProtocol),
				FromPort: perm.FromPort,
				ToPort:   perm.ToPort,
			})
		}
	}
	return rules
}
