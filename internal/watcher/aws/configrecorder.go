package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/configservice"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// ConfigRecorderWatcher checks every region for an AWS Config recorder
// and synthesizes an item for regions where none exists, so the auditor
// has something to flag.
type ConfigRecorderWatcher struct {
	base
}

func NewConfigRecorderWatcher(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) *ConfigRecorderWatcher {
	return &ConfigRecorderWatcher{base: newBase(factory, accounts, regions, log)}
}

func (w *ConfigRecorderWatcher) Index() string { return "configrecorder" }

func (w *ConfigRecorderWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachRegion(w.Index(), exc, func(acct *account.Account, region string) error {
		client := configservice.NewFromConfig(w.factory.ConfigFor(acct.Identifier, region))

		out, err := client.DescribeConfigurationRecorders(ctx, &configservice.DescribeConfigurationRecordersInput{})
		if err != nil {
			return err
		}

		items = append(items, watcher.ChangeItem{
			Index:   w.Index(),
			Account: acct.Identifier,
			Region:  region,
			Name:    fmt.Sprintf("%s/%s", acct.Identifier, region),
			Config: schema.ConfigRecorder{
				Region:   region,
				Account:  acct.Identifier,
				Recorder: len(out.ConfigurationRecorders) > 0,
			},
		})
		return nil
	})

	return items, exc, nil
}
