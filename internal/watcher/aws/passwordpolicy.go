package aws

import (
	"context"
	stderrors "errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// PasswordPolicyWatcher slurps the account password policy. An account
// without a policy still produces an item, with a zero config, so the
// auditor can flag it.
type PasswordPolicyWatcher struct {
	base
}

func NewPasswordPolicyWatcher(factory *ClientFactory, accounts []*account.Account, log *logger.Logger) *PasswordPolicyWatcher {
	return &PasswordPolicyWatcher{base: newBase(factory, accounts, nil, log)}
}

func (w *PasswordPolicyWatcher) Index() string { return "passwordpolicy" }

func (w *PasswordPolicyWatcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachAccount(w.Index(), exc, func(acct *account.Account) error {
		client := iam.NewFromConfig(w.factory.ConfigFor(acct.Identifier, ""))

		var cfg schema.PasswordPolicy

		out, err := client.GetAccountPasswordPolicy(ctx, &iam.GetAccountPasswordPolicyInput{})
		if err != nil {
			var notFound *iamtypes.NoSuchEntityException
			if !stderrors.As(err, &notFound) {
				return err
			}
		} else if out.PasswordPolicy != nil {
			p := out.PasswordPolicy
			cfg = schema.PasswordPolicy{
				MinimumPasswordLength:      int(awssdk.ToInt32(p.MinimumPasswordLength)),
				RequireSymbols:             p.RequireSymbols,
				RequireNumbers:             p.RequireNumbers,
				RequireUppercaseCharacters: p.RequireUppercaseCharacters,
				RequireLowercaseCharacters: p.RequireLowercaseCharacters,
				ExpirePasswords:            p.ExpirePasswords,
				MaxPasswordAge:             int(awssdk.ToInt32(p.MaxPasswordAge)),
				PasswordReusePrevention:    int(awssdk.ToInt32(p.PasswordReusePrevention)),
			}
		}

		items = append(items, watcher.ChangeItem{
			Index:   w.Index(),
			Account: acct.Identifier,
			Region:  item.RegionUniversal,
			Name:    acct.Identifier,
			Config:  cfg,
		})
		return nil
	})

	return items, exc, nil
}
