// Package aws implements the AWS technology watchers.
package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials/stscreds"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/errors"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/pkg/metrics"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// ClientFactory hands out per-account, per-region SDK configs. Watched
// accounts other than the caller's own are reached by assuming the
// audit role in that account.
type ClientFactory struct {
	base       awssdk.Config
	callerAcct string
	roleName   string
	externalID string
}

// NewClientFactory loads the default credential chain and resolves the
// caller's own account id.
func NewClientFactory(ctx context.Context, region, roleName, externalID string) (*ClientFactory, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, errors.ProviderAuthError("AWS", err)
	}

	ident, err := sts.NewFromConfig(cfg).GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return nil, errors.ProviderAuthError("AWS", err)
	}

	return &ClientFactory{
		base:       cfg,
		callerAcct: awssdk.ToString(ident.Account),
		roleName:   roleName,
		externalID: externalID,
	}, nil
}

// ConfigFor returns an SDK config scoped to one account and region.
func (f *ClientFactory) ConfigFor(accountID, region string) awssdk.Config {
	cfg := f.base.Copy()
	if region != "" {
		cfg.Region = region
	}

	if accountID == "" || accountID == f.callerAcct {
		return cfg
	}

	roleARN := fmt.Sprintf("arn:aws:iam::%s:role/%s", accountID, f.roleName)
	provider := stscreds.NewAssumeRoleProvider(sts.NewFromConfig(f.base), roleARN, func(o *stscreds.AssumeRoleOptions) {
		if f.externalID != "" {
			o.ExternalID = awssdk.String(f.externalID)
		}
	})
	cfg.Credentials = awssdk.NewCredentialsCache(provider)
	return cfg
}

// CallerAccount returns the account id of the base credentials.
func (f *ClientFactory) CallerAccount() string {
	return f.callerAcct
}

// base carries the fields every AWS watcher shares.
type base struct {
	factory  *ClientFactory
	accounts []*account.Account
	regions  []string
	logger   *logger.Logger
}

func newBase(factory *ClientFactory, accounts []*account.Account, regions []string, log *logger.Logger) base {
	return base{factory: factory, accounts: accounts, regions: regions, logger: log}
}

// eachRegion runs fn for every active account and region, recording
// failures in the exception map instead of aborting the slurp.
func (b base) eachRegion(index string, exc watcher.ExceptionMap, fn func(acct *account.Account, region string) error) {
	for _, acct := range b.accounts {
		if !acct.Active {
			continue
		}
		for _, region := range b.regions {
			if err := fn(acct, region); err != nil {
				exc.Add(index, acct.Identifier, region, err)
				metrics.RecordWatcherException(index, acct.Identifier)
				b.logger.WithFields(map[string]interface{}{
					"technology": index,
					"account":    acct.Identifier,
					"region":     region,
				}).ErrorWithErr(err, "Slurp failed for account region")
			}
		}
	}
}

// eachAccount runs fn once per active account, for technologies that
// are not regional.
func (b base) eachAccount(index string, exc watcher.ExceptionMap, fn func(acct *account.Account) error) {
	for _, acct := range b.accounts {
		if !acct.Active {
			continue
		}
		if err := fn(acct); err != nil {
			exc.Add(index, acct.Identifier, item.RegionUniversal, err)
			metrics.RecordWatcherException(index, acct.Identifier)
			b.logger.WithFields(map[string]interface{}{
				"technology": index,
				"account":    acct.Identifier,
			}).ErrorWithErr(err, "Slurp failed for account")
		}
	}
}
