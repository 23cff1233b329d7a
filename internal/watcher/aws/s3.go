package aws

import (
	"context"
	"fmt"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/stackwatch/stackwatch/internal/domain/account"
	"github.com/stackwatch/stackwatch/internal/domain/item"
	"github.com/stackwatch/stackwatch/internal/pkg/logger"
	"github.com/stackwatch/stackwatch/internal/schema"
	"github.com/stackwatch/stackwatch/internal/watcher"
)

// S3Watcher slurps buckets with their ACL grants and access logging
// state. Bucket listings are account wide.
type S3Watcher struct {
	base
}

func NewS3Watcher(factory *ClientFactory, accounts []*account.Account, log *logger.Logger) *S3Watcher {
	return &S3Watcher{base: newBase(factory, accounts, nil, log)}
}

func (w *S3Watcher) Index() string { return "s3" }

func (w *S3Watcher) Slurp(ctx context.Context) ([]watcher.ChangeItem, watcher.ExceptionMap, error) {
	var items []watcher.ChangeItem
	exc := watcher.ExceptionMap{}

	w.eachAccount(w.Index(), exc, func(acct *account.Account) error {
		client := s3.NewFromConfig(w.factory.ConfigFor(acct.Identifier, ""))

		out, err := client.ListBuckets(ctx, &s3.ListBucketsInput{})
		if err != nil {
			return err
		}

		for _, bucket := range out.Buckets {
			name := awssdk.ToString(bucket.Name)

			cfg := schema.S3Bucket{Name: name}

			acl, err := client.GetBucketAcl(ctx, &s3.GetBucketAclInput{Bucket: bucket.Name})
			if err != nil {
				return err
			}
			if acl.Owner != nil {
				cfg.Owner = awssdk.ToString(acl.Owner.DisplayName)
			}
			for _, grant := range acl.Grants {
				cfg.Grants = append(cfg.Grants, convertGrant(grant))
			}

			logging, err := client.GetBucketLogging(ctx, &s3.GetBucketLoggingInput{Bucket: bucket.Name})
			if err != nil {
				return err
			}
			if logging.LoggingEnabled != nil {
				cfg.Logging = schema.S3Logging{
					Enabled: true,
					Target:  awssdk.ToString(logging.LoggingEnabled.TargetBucket),
				}
			}

			items = append(items, watcher.ChangeItem{
				Index:   w.Index(),
				Account: acct.Identifier,
				Region:  item.RegionUniversal,
				Name:    name,
				ARN:     fmt.Sprintf("arn:aws:s3:::%s", name),
				Config:  cfg,
			})
		}
		return nil
	})

	return items, exc, nil
}

func convertGrant(grant s3types.Grant) schema.Grant {
	g := schema.Grant{Permission: string(grant.Permission)}
	if grant.Grantee != nil {
		if uri := awssdk.ToString(grant.Grantee.URI); uri != "" {
			g.Grantee = uri
		} else {
			g.Grantee = awssdk.ToString(grant.Grantee.DisplayName)
		}
	}
	return g
}
