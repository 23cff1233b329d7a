package auditor

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stackwatch/stackwatch/internal/schema"
)

// staticSupport serves canned cross-technology configs.
type staticSupport struct {
	configs map[string]map[string]json.RawMessage
}

func (s *staticSupport) LatestConfigs(_ context.Context, technology string) (map[string]json.RawMessage, error) {
	return s.configs[technology], nil
}

func supportWithBucket(t *testing.T, bucket schema.S3Bucket) Support {
	t.Helper()
	raw, err := schema.Encode(bucket)
	if err != nil {
		t.Fatalf("encode bucket: %v", err)
	}
	return &staticSupport{configs: map[string]map[string]json.RawMessage{
		"s3": {bucket.Name: raw},
	}}
}

// compliantTrail passes every 2.x check and carries metric filters with
// subscribers for every 3.x check.
func compliantTrail() schema.CloudTrail {
	filters := []schema.MetricFilter{
		{FilterPattern: `{ ($.errorCode = "*UnauthorizedOperation") || ($.errorCode = "AccessDenied*") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "ConsoleLogin") && ($.additionalEventData.MFAUsed != "Yes") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ $.userIdentity.type = "Root" && $.userIdentity.invokedBy NOT EXISTS && $.eventType != "AwsServiceEvent" }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "DeleteGroupPolicy") || ($.eventName = "DeleteRolePolicy") || ($.eventName = "DeleteUserPolicy") || ($.eventName = "PutGroupPolicy") || ($.eventName = "PutRolePolicy") || ($.eventName = "PutUserPolicy") || ($.eventName = "CreatePolicy") || ($.eventName = "DeletePolicy") || ($.eventName = "CreatePolicyVersion") || ($.eventName = "DeletePolicyVersion") || ($.eventName = "AttachRolePolicy") || ($.eventName = "DetachRolePolicy") || ($.eventName = "AttachUserPolicy") || ($.eventName = "DetachUserPolicy") || ($.eventName = "AttachGroupPolicy") || ($.eventName = "DetachGroupPolicy") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "CreateTrail") || ($.eventName = "UpdateTrail") || ($.eventName = "DeleteTrail") || ($.eventName = "StartLogging") || ($.eventName = "StopLogging") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "ConsoleLogin") && ($.errorMessage = "Failed authentication") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventSource = "kms.amazonaws.com") && (($.eventName = "DisableKey") || ($.eventName = "ScheduleKeyDeletion")) }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventSource = "s3.amazonaws.com") && (($.eventName = "PutBucketAcl") || ($.eventName = "PutBucketPolicy") || ($.eventName = "PutBucketCors") || ($.eventName = "PutBucketLifecycle") || ($.eventName = "PutBucketReplication") || ($.eventName = "DeleteBucketPolicy") || ($.eventName = "DeleteBucketCors") || ($.eventName = "DeleteBucketLifecycle") || ($.eventName = "DeleteBucketReplication")) }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventSource = "config.amazonaws.com") && (($.eventName = "StopConfigurationRecorder") || ($.eventName = "DeleteDeliveryChannel") || ($.eventName = "PutDeliveryChannel") || ($.eventName = "PutConfigurationRecorder")) }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "AuthorizeSecurityGroupIngress") || ($.eventName = "AuthorizeSecurityGroupEgress") || ($.eventName = "RevokeSecurityGroupIngress") || ($.eventName = "RevokeSecurityGroupEgress") || ($.eventName = "CreateSecurityGroup") || ($.eventName = "DeleteSecurityGroup") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "CreateNetworkAcl") || ($.eventName = "CreateNetworkAclEntry") || ($.eventName = "DeleteNetworkAcl") || ($.eventName = "DeleteNetworkAclEntry") || ($.eventName = "ReplaceNetworkAclEntry") || ($.eventName = "ReplaceNetworkAclAssociation") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "CreateCustomerGateway") || ($.eventName = "DeleteCustomerGateway") || ($.eventName = "AttachInternetGateway") || ($.eventName = "CreateInternetGateway") || ($.eventName = "DeleteInternetGateway") || ($.eventName = "DetachInternetGateway") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "CreateRoute") || ($.eventName = "CreateRouteTable") || ($.eventName = "ReplaceRoute") || ($.eventName = "ReplaceRouteTableAssociation") || ($.eventName = "DeleteRouteTable") || ($.eventName = "DeleteRoute") || ($.eventName = "DisassociateRouteTable") }`, Subscribers: []string{"ops@example.com"}},
		{FilterPattern: `{ ($.eventName = "CreateVpc") || ($.eventName = "DeleteVpc") || ($.eventName = "ModifyVpcAttribute") || ($.eventName = "AcceptVpcPeeringConnection") || ($.eventName = "CreateVpcPeeringConnection") || ($.eventName = "DeleteVpcPeeringConnection") || ($.eventName = "RejectVpcPeeringConnection") || ($.eventName = "AttachClassicLinkVpc") || ($.eventName = "DetachClassicLinkVpc") || ($.eventName = "DisableVpcClassicLink") || ($.eventName = "EnableVpcClassicLink") }`, Subscribers: []string{"ops@example.com"}},
	}
	return schema.CloudTrail{
		Name:                      "main",
		IsMultiRegionTrail:        true,
		IsLogging:                 true,
		CloudWatchLogsLogGroupARN: "arn:aws:logs:us-east-1:123456789012:log-group:trail",
		KMSKeyID:                  "arn:aws:kms:us-east-1:123456789012:key/abc",
		S3BucketName:              "trail-logs",
		LogFileValidationEnabled:  true,
		MetricFilters:             filters,
	}
}

func compliantTrailBucket() schema.S3Bucket {
	return schema.S3Bucket{
		Name:    "trail-logs",
		Owner:   "security",
		Logging: schema.S3Logging{Enabled: true, Target: "trail-logs-access"},
	}
}

func auditTrail(t *testing.T, trail schema.CloudTrail, support Support) *Result {
	t.Helper()
	raw, err := schema.Encode(trail)
	if err != nil {
		t.Fatalf("encode trail: %v", err)
	}
	res := &Result{Support: support}
	a := &CloudTrailAuditor{}
	if err := a.Audit(context.Background(), Target{Config: raw}, res); err != nil {
		t.Fatalf("Audit() error = %v", err)
	}
	return res
}

func TestCloudTrailAuditorCompliant(t *testing.T) {
	res := auditTrail(t, compliantTrail(), supportWithBucket(t, compliantTrailBucket()))
	for _, issue := range res.Issues() {
		t.Errorf("unexpected issue: %s / %s", issue.Issue, issue.Notes)
	}
}

func TestCloudTrailAuditorLoggingChecks(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*schema.CloudTrail)
		wantNotes string
	}{
		{
			name:      "single region trail",
			mutate:    func(tr *schema.CloudTrail) { tr.IsMultiRegionTrail = false },
			wantNotes: "sa-log-cis-2.1 - CloudTrail is not enabled in all regions.",
		},
		{
			name:      "logging stopped",
			mutate:    func(tr *schema.CloudTrail) { tr.IsLogging = false },
			wantNotes: "sa-log-cis-2.1 - CloudTrail logging is disabled.",
		},
		{
			name:      "no log file validation",
			mutate:    func(tr *schema.CloudTrail) { tr.LogFileValidationEnabled = false },
			wantNotes: "sa-log-cis-2.2 - CloudTrail log file validation is not enabled.",
		},
		{
			name:      "no kms key",
			mutate:    func(tr *schema.CloudTrail) { tr.KMSKeyID = "" },
			wantNotes: "sa-log-cis-2.7 - CloudTrail not using KMS CMK for encryption discovered.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trail := compliantTrail()
			tt.mutate(&trail)
			res := auditTrail(t, trail, supportWithBucket(t, compliantTrailBucket()))
			if len(res.Issues()) != 1 {
				t.Fatalf("issues = %d, want 1", len(res.Issues()))
			}
			if res.Issues()[0].Notes != tt.wantNotes {
				t.Errorf("notes = %q, want %q", res.Issues()[0].Notes, tt.wantNotes)
			}
		})
	}
}

func TestCloudTrailAuditorNoLogGroup(t *testing.T) {
	trail := compliantTrail()
	trail.CloudWatchLogsLogGroupARN = ""
	trail.MetricFilters = nil

	res := auditTrail(t, trail, supportWithBucket(t, compliantTrailBucket()))

	// Every monitoring benchmark fails plus the missing integration.
	want := len(metricFilterChecks) + 1
	if got := len(res.Issues()); got != want {
		t.Errorf("issues = %d, want %d", got, want)
	}
}

func TestCloudTrailAuditorFilterWithoutSubscribers(t *testing.T) {
	trail := compliantTrail()
	trail.MetricFilters[0].Subscribers = nil

	res := auditTrail(t, trail, supportWithBucket(t, compliantTrailBucket()))

	if len(res.Issues()) != 1 {
		t.Fatalf("issues = %d, want 1", len(res.Issues()))
	}
	want := "sa-mon-cis-3.1 - Incorrect log metric alerts for unauthorized_api_calls."
	if res.Issues()[0].Notes != want {
		t.Errorf("notes = %q, want %q", res.Issues()[0].Notes, want)
	}
}

func TestCloudTrailAuditorPublicBucket(t *testing.T) {
	bucket := compliantTrailBucket()
	bucket.Grants = []schema.Grant{
		{Grantee: schema.GranteeAllUsers, Permission: "READ"},
		{Grantee: "security", Permission: "FULL_CONTROL"},
	}

	res := auditTrail(t, compliantTrail(), supportWithBucket(t, bucket))

	if len(res.Issues()) != 1 {
		t.Fatalf("issues = %d, want 1", len(res.Issues()))
	}
	issue := res.Issues()[0]
	if !strings.Contains(issue.Issue, "CIS 2.3") || !strings.Contains(issue.Issue, "READ") {
		t.Errorf("issue = %q, want CIS 2.3 with permission", issue.Issue)
	}
}

func TestCloudTrailAuditorBucketWithoutAccessLogging(t *testing.T) {
	bucket := compliantTrailBucket()
	bucket.Logging.Enabled = false

	res := auditTrail(t, compliantTrail(), supportWithBucket(t, bucket))

	if len(res.Issues()) != 1 {
		t.Fatalf("issues = %d, want 1", len(res.Issues()))
	}
	if !strings.Contains(res.Issues()[0].Issue, "CIS 2.6") {
		t.Errorf("issue = %q, want CIS 2.6", res.Issues()[0].Issue)
	}
}

func TestCloudTrailAuditorUnknownBucket(t *testing.T) {
	trail := compliantTrail()
	trail.S3BucketName = "not-slurped-yet"

	res := auditTrail(t, trail, &staticSupport{configs: map[string]map[string]json.RawMessage{"s3": {}}})

	if len(res.Issues()) != 0 {
		t.Errorf("issues = %d, want 0 when the bucket has no stored config", len(res.Issues()))
	}
}
