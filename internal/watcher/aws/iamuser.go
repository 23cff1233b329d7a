package aws

import (
	"context"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// IAMUserWatcher slurps IAM users with their access keys and MFA
// devices. IAM is account wide, so items land in the universal region.
type IAMUserWatcher struct {
	base
}

func NewIAMUserWatcher(factory *ClientFactory, accounts []*account.Account, log *logger.Logger) *IAMUserWatcher {
	return &IAMUserWatcher{base: newBase(factory, accounts, nil, log)}
}

func (w *IAMUserWatcher) Index() string { return "iamuser" }

func (w *IAMUserWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachAccount(w.Index(), exc, func(acct *account.Account) error {
		client := iam.NewFromConfig(w.factory.ConfigFor(acct.Identifier, ""))

		p := iam.NewListUsersPaginator(client, &iam.ListUsersInput{})
		for p.HasMorePages() {
			page, err := p.NextPage(ctx)
			if err != nil {
				return err
			}
			for _, user := range page.Users {
				userName := awssdk.ToString(user.UserName)

				cfg := schema.IAMUser{
					ARN:              awssdk.ToString(user.Arn),
					UserName:         userName,
					CreateDate:       user.CreateDate,
					PasswordLastUsed: user.PasswordLastUsed,
				}

				keys, err := w.slurpAccessKeys(ctx, client, userName)
				if err != nil {
					return err
				}
				cfg.AccessKeys = keys

				mfa, err := client.ListMFADevices(ctx, &iam.ListMFADevicesInput{UserName: user.UserName})
				if err != nil {
					return err
				}
				for _, device := range mfa.MFADevices {
					cfg.MFADevices = append(cfg.MFADevices, awssdk.ToString(device.SerialNumber))
				}

				items = append(items, watcher.ChangeItem{
					Index:   w.Index(),
					Account: acct.Identifier,
					Region:  item.RegionUniversal,
					Name:    userName,
					ARN:     cfg.ARN,
					Config:  cfg,
				})
			}
		}
		return nil
	})

	return items, exc, nil
}

func (w *IAMUserWatcher) slurpAccessKeys(ctx context.Context, client *iam.Client, userName string) ([]schema.AccessKey, error) {
	var keys []schema.AccessKey

	p := iam.NewListAccessKeysPaginator(client, &iam.ListAccessKeysInput{UserName: awssdk.String(userName)})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, meta := range page.AccessKeyMetadata {
			key := schema.AccessKey{
				ID:         awssdk.ToString(meta.AccessKeyId),
				Status:     string(meta.Status),
				CreateDate: meta.CreateDate,
			}

			lastUsed, err := client.GetAccessKeyLastUsed(ctx, &iam.GetAccessKeyLastUsedInput{AccessKeyId: meta.AccessKeyId})
			if err != nil {
				return nil, err
			}
			if lastUsed.AccessKeyLastUsed != nil {
				key.LastUsedDate = lastUsed.AccessKeyLastUsed.LastUsedDate
			}

			keys = append(keys, key)
		}
	}

	return keys, nil
}
