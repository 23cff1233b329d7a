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

// RouteTableWatcher slurps VPC route tables.
type RouteTableWatcher struct {
	base
}

func NewRouteTableWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *RouteTableWatcher {
	return &RouteTableWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *RouteTableWatcher) Index() string { return "routetable" }

func (w *RouteTableWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := ec2.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		p := ec2.NewDescribeRouteTablesPaginator(client, &ec2.DescribeRouteTablesInput{})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, rt := range page.RouteTables {
				id := awssdk.ToString(rt.RouteTableId)

				cfg := schema.RouteTable{
					ID:    id,
					VpcID: awssdk.ToString(rt.VpcId),
				}
				for _, route := range rt.Routes {
					cfg.Routes = append(cfg.Routes, schema.Route{
						DestinationCIDR:        awssdk.ToString(route.DestinationCidrBlock),
						GatewayID:              awssdk.ToString(route.GatewayId),
						VpcPeeringConnectionID: awssdk.ToString(route.VpcPeeringConnectionId),
						State:                  string(route.State),
					})
				}

				items = append(items, watcher.ChangeItem{
					Index:   w.Index(),
					Account: acct.Identifier,
					Region:  region,
					Name:    id,
					ARN:     fmt.Sprintf("arn:aws:ec2:%s:%s:route-table/%s", region, acct.Identifier, id),
					Config:  cfg,
				})
			}
		}
		return nil
	})

	return items, exc, nil
}
