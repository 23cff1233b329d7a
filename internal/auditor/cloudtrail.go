package auditor

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// metricFilterCheck is one CIS 3.x monitoring benchmark. A trail
// passes when some metric filter on its log group matches every
// pattern and that filter's alarm has at least one subscriber.
type metricFilterCheck struct {
	notes    string
	patterns []*regexp.Regexp
}

func compilePatterns(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

var metricFilterChecks = []metricFilterCheck{
	{
		notes: "sa-mon-cis-3.1 - Incorrect log metric alerts for unauthorized_api_calls.",
		patterns: compilePatterns(
			`\$\.errorCode\s*=\s*"?\*UnauthorizedOperation("|\)|\s)`,
			`\$\.errorCode\s*=\s*"?AccessDenied\*("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.2 - Incorrect log metric alerts for management console signin without MFA.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?ConsoleLogin("|\)|\s)`,
			`\$\.additionalEventData\.MFAUsed\s*!=\s*"?Yes`,
		),
	},
	{
		notes: "sa-mon-cis-3.3 - Incorrect log metric alerts for root usage.",
		patterns: compilePatterns(
			`\$\.userIdentity\.type\s*=\s*"?Root`,
			`\$\.userIdentity\.invokedBy\s*NOT\s*EXISTS`,
			`\$\.eventType\s*!=\s*"?AwsServiceEvent("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.4 - Incorrect log metric alerts for IAM policy changes.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?DeleteGroupPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteRolePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteUserPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutGroupPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutRolePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutUserPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreatePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeletePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreatePolicyVersion("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeletePolicyVersion("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AttachRolePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DetachRolePolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AttachUserPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DetachUserPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AttachGroupPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DetachGroupPolicy("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.5 - Incorrect log metric alerts for CloudTrail configuration changes.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?CreateTrail("|\)|\s)`,
			`\$\.eventName\s*=\s*"?UpdateTrail("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteTrail("|\)|\s)`,
			`\$\.eventName\s*=\s*"?StartLogging("|\)|\s)`,
			`\$\.eventName\s*=\s*"?StopLogging("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.6 - Ensure a log metric filter and alarm exist for console auth failures.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?ConsoleLogin("|\)|\s)`,
			`\$\.errorMessage\s*=\s*"?Failed authentication("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.7 - Ensure a log metric filter and alarm exist for disabling or scheduling deletion of KMS CMK.",
		patterns: compilePatterns(
			`\$\.eventSource\s*=\s*"?kms\.amazonaws\.com("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DisableKey("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ScheduleKeyDeletion("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.8 - Ensure a log metric filter and alarm exist for S3 bucket policy changes.",
		patterns: compilePatterns(
			`\$\.eventSource\s*=\s*"?s3\.amazonaws\.com("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutBucketAcl("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutBucketPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutBucketCors("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutBucketLifecycle("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutBucketReplication("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteBucketPolicy("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteBucketCors("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteBucketLifecycle("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteBucketReplication("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.9 - Ensure a log metric filter and alarm exist for for AWS Config configuration changes.",
		patterns: compilePatterns(
			`\$\.eventSource\s*=\s*"?config\.amazonaws\.com("|\)|\s)`,
			`\$\.eventName\s*=\s*"?StopConfigurationRecorder("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteDeliveryChannel("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutDeliveryChannel("|\)|\s)`,
			`\$\.eventName\s*=\s*"?PutConfigurationRecorder("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.10 - Ensure a log metric filter and alarm exist for security group changes.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?AuthorizeSecurityGroupIngress("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AuthorizeSecurityGroupEgress("|\)|\s)`,
			`\$\.eventName\s*=\s*"?RevokeSecurityGroupIngress("|\)|\s)`,
			`\$\.eventName\s*=\s*"?RevokeSecurityGroupEgress("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreateSecurityGroup("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteSecurityGroup("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.11 - Ensure a log metric filter and alarm exist for changes to Network Access Control Lists (NACL).",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?CreateNetworkAcl("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreateNetworkAclEntry("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteNetworkAcl("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteNetworkAclEntry("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ReplaceNetworkAclEntry("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ReplaceNetworkAclAssociation("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.12 - Ensure a log metric filter and alarm exist for changes to network gateways.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?CreateCustomerGateway("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteCustomerGateway("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AttachInternetGateway("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreateInternetGateway("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteInternetGateway("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DetachInternetGateway("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.13 - Ensure a log metric filter and alarm exist for route table changes.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?CreateRoute("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreateRouteTable("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ReplaceRoute("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ReplaceRouteTableAssociation("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteRouteTable("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteRoute("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DisassociateRouteTable("|\)|\s)`,
		),
	},
	{
		notes: "sa-mon-cis-3.14 - Ensure a log metric filter and alarm exist for VPC changes.",
		patterns: compilePatterns(
			`\$\.eventName\s*=\s*"?CreateVpc("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteVpc("|\)|\s)`,
			`\$\.eventName\s*=\s*"?ModifyVpcAttribute("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AcceptVpcPeeringConnection("|\)|\s)`,
			`\$\.eventName\s*=\s*"?CreateVpcPeeringConnection("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DeleteVpcPeeringConnection("|\)|\s)`,
			`\$\.eventName\s*=\s*"?RejectVpcPeeringConnection("|\)|\s)`,
			`\$\.eventName\s*=\s*"?AttachClassicLinkVpc("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DetachClassicLinkVpc("|\)|\s)`,
			`\$\.eventName\s*=\s*"?DisableVpcClassicLink("|\)|\s)`,
			`\$\.eventName\s*=\s*"?EnableVpcClassicLink("|\)|\s)`,
		),
	},
}

// CloudTrailAuditor checks trails against the CIS 2.x logging and 3.x
// monitoring benchmarks. The bucket checks consult the S3 items slurped
// for the same account.
type CloudTrailAuditor struct{}

func (a *CloudTrailAuditor) Index() string { return "cloudtrail" }

func (a *CloudTrailAuditor) Audit(ctx context.Context, t Target, res *Result) error {
	var trail schema.CloudTrail
	if err := schema.Decode(t.Config, &trail); err != nil {
		return err
	}

	a.checkTrailEnabled(trail, res)
	a.checkLogFileValidation(trail, res)
	a.checkCloudWatchLogsIntegration(trail, res)
	a.checkLogsEncrypted(trail, res)
	a.checkMetricFilters(trail, res)

	if err := a.checkTrailBucket(ctx, trail, res); err != nil {
		return err
	}
	return nil
}

func (a *CloudTrailAuditor) checkTrailEnabled(trail schema.CloudTrail, res *Result) {
	if !trail.IsMultiRegionTrail {
		res.Add(10, "Informational", "sa-log-cis-2.1 - CloudTrail is not enabled in all regions.")
	}
	if !trail.IsLogging {
		res.Add(10, "Informational", "sa-log-cis-2.1 - CloudTrail logging is disabled.")
	}
}

func (a *CloudTrailAuditor) checkLogFileValidation(trail schema.CloudTrail, res *Result) {
	if !trail.LogFileValidationEnabled {
		res.Add(10, "Informational", "sa-log-cis-2.2 - CloudTrail log file validation is not enabled.")
	}
}

func (a *CloudTrailAuditor) checkCloudWatchLogsIntegration(trail schema.CloudTrail, res *Result) {
	if !strings.Contains(trail.CloudWatchLogsLogGroupARN, "arn:aws:logs") {
		res.Add(10, "Informational", "sa-log-cis-2.4 - CloudTrails without CloudWatch Logs discovered.")
	}
}

func (a *CloudTrailAuditor) checkLogsEncrypted(trail schema.CloudTrail, res *Result) {
	if trail.KMSKeyID == "" {
		res.Add(10, "Informational", "sa-log-cis-2.7 - CloudTrail not using KMS CMK for encryption discovered.")
	}
}

func (a *CloudTrailAuditor) checkMetricFilters(trail schema.CloudTrail, res *Result) {
	for _, check := range metricFilterChecks {
		if trail.CloudWatchLogsLogGroupARN == "" {
			res.Add(10, "Informational", check.notes)
			continue
		}
		for _, mf := range trail.MetricFilters {
			if !matchesAll(check.patterns, mf.FilterPattern) {
				continue
			}
			if len(mf.Subscribers) == 0 {
				res.Add(10, "Informational", check.notes)
			}
		}
	}
}

func matchesAll(patterns []*regexp.Regexp, target string) bool {
	for _, p := range patterns {
		if !p.MatchString(target) {
			return false
		}
	}
	return true
}

// checkTrailBucket covers CIS 2.3 (world readable log bucket) and
// CIS 2.6 (no access logging on the log bucket).
func (a *CloudTrailAuditor) checkTrailBucket(ctx context.Context, t schema.CloudTrail, res *Result) error {
	if t.S3BucketName == "" {
		return nil
	}
	buckets, err := res.Support.LatestConfigs(ctx, "s3")
	if err != nil {
		return err
	}
	raw, ok := buckets[t.S3BucketName]
	if !ok {
		return nil
	}
	var bucket schema.S3Bucket
	if err := schema.Decode(raw, &bucket); err != nil {
		return err
	}

	for _, grant := range bucket.Grants {
		grantee := strings.ToLower(grant.Grantee)
		if grantee != strings.ToLower(schema.GranteeAllUsers) &&
			grantee != strings.ToLower(schema.GranteeAuthenticatedUsers) {
			continue
		}
		if strings.EqualFold(grant.Grantee, bucket.Owner) {
			continue
		}
		issue := fmt.Sprintf(
			"CIS 2.3 Ensure the S3 bucket CloudTrail logs to is not publicly accessible - %s has %s",
			t.S3BucketName, grant.Permission)
		res.Add(10, issue, fmt.Sprintf("[ACL:%s]", grant.Grantee))
	}

	if !bucket.Logging.Enabled {
		res.Add(10,
			"CIS 2.6 Ensure S3 bucket access logging is enabled on the CloudTrail S3 bucket",
			fmt.Sprintf("Access Logging is not enabled on CloudTrail S3 bucket %s", t.S3BucketName))
	}
	return nil
}
