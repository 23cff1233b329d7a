package schema

// CloudTrail is the stored configuration of a trail, combined with its
// logging status and the metric filters on its CloudWatch log group.
type CloudTrail struct {
	Name                      string         `json:"name"`
	HomeRegion                string         `json:"home_region,omitempty"`
	IsMultiRegionTrail        bool           `json:"is_multi_region_trail"`
	IsLogging                 bool           `json:"is_logging"`
	CloudWatchLogsLogGroupARN string         `json:"cloudwatch_logs_log_group_arn,omitempty"`
	KMSKeyID                  string         `json:"kms_key_id,omitempty"`
	S3BucketName              string         `json:"s3_bucket_name,omitempty"`
	LogFileValidationEnabled  bool           `json:"log_file_validation_enabled"`
	MetricFilters             []MetricFilter `json:"metric_filters,omitempty"`
}

// MetricFilter is one metric filter on the trail's log group, with the
// notification subscribers on its alarm.
type MetricFilter struct {
	Name          string   `json:"name,omitempty"`
	FilterPattern string   `json:"filter_pattern"`
	Subscribers   []string `json:"subscribers,omitempty"`
}

// ConfigRecorder is the stored state of the AWS Config recorder in one
// region. Items with Recorder false are synthesized for regions where
// no recorder exists.
type ConfigRecorder struct {
	Region   string `json:"region"`
	Account  string `json:"account"`
	Recorder bool   `json:"recorder"`
}
