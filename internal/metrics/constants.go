package metrics

// Metric names
const (
	MetricNameHTTPRequestsTotal    = "teamleader2db_http_requests_total"
	MetricNameHTTPRequestDuration  = "teamleader2db_http_request_duration_seconds"
	MetricNameHTTPRequestsInFlight = "teamleader2db_http_requests_in_flight"

	MetricNameAPICallsTotal      = "teamleader2db_api_calls_total"
	MetricNameTokenRefreshes     = "teamleader2db_token_refreshes_total"
	MetricNameRecordsSyncedTotal = "teamleader2db_records_synced_total"
	MetricNameSyncDuration       = "teamleader2db_sync_duration_seconds"
)

// Help texts
const (
	HelpTextHTTPRequestsTotal    = "Total number of HTTP requests by method, path and status"
	HelpTextHTTPRequestDuration  = "HTTP request latency in seconds by method and path"
	HelpTextHTTPRequestsInFlight = "Number of HTTP requests currently being served"

	HelpTextAPICallsTotal      = "Total number of upstream Teamleader API calls by status code"
	HelpTextTokenRefreshes     = "Total number of OAuth2 token refresh attempts by outcome"
	HelpTextRecordsSyncedTotal = "Total number of records upserted per resource"
	HelpTextSyncDuration       = "Duration of one resource sync in seconds"
)

// Label names
const (
	LabelMethod   = "method"
	LabelPath     = "path"
	LabelStatus   = "status"
	LabelResource = "resource"
	LabelOutcome  = "outcome"
)

// HTTPLatencyBuckets covers fast control-surface calls up to long-running downloads
var HTTPLatencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}

// SyncDurationBuckets covers anything from an empty delta to a multi-hour full sync
var SyncDurationBuckets = []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200}
