package client

import "github.com/VictoriaMetrics/metrics"

// Executor counters, exposed under the default metrics set. WritePrometheus
// on the caller's side exports them alongside the process metrics.
var (
	metricRequests      = metrics.NewCounter(`aspike_client_requests_total`)
	metricRetries       = metrics.NewCounter(`aspike_client_retries_total`)
	metricTimeouts      = metrics.NewCounter(`aspike_client_timeouts_total`)
	metricServerErrors  = metrics.NewCounter(`aspike_client_server_errors_total`)
	metricBytesSent     = metrics.NewCounter(`aspike_client_bytes_sent_total`)
	metricBytesReceived = metrics.NewCounter(`aspike_client_bytes_received_total`)
)
