package internaldefs

import (
	"github.com/MrEthical07/authgate"
)

// CounterDef names one exported counter.
type CounterDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// HistogramDef names one exported histogram.
type HistogramDef struct {
	ID   authgate.MetricID
	Name string
	Help string
}

// CounterDefs lists every counter the exporters publish.
var CounterDefs = []CounterDef{
	{ID: authgate.MetricAccessIssued, Name: "authgate_access_issued_total", Help: "Access tokens signed."},
	{ID: authgate.MetricRefreshIssued, Name: "authgate_refresh_issued_total", Help: "Refresh tokens signed."},
	{ID: authgate.MetricIssueFailure, Name: "authgate_issue_failure_total", Help: "Token signing failures."},
	{ID: authgate.MetricValidateSuccess, Name: "authgate_validate_success_total", Help: "Tokens that passed validation."},
	{ID: authgate.MetricValidateFailure, Name: "authgate_validate_failure_total", Help: "Tokens that failed validation for any reason."},
	{ID: authgate.MetricValidateExpired, Name: "authgate_validate_expired_total", Help: "Validation failures due to expiry."},
	{ID: authgate.MetricValidateTypeMismatch, Name: "authgate_validate_type_mismatch_total", Help: "Validation failures due to the wrong token type."},
	{ID: authgate.MetricValidateRevoked, Name: "authgate_validate_revoked_total", Help: "Validation failures due to a revocation marker."},
	{ID: authgate.MetricStoreUnavailable, Name: "authgate_store_unavailable_total", Help: "Revocation store errors; the affected request failed closed."},
	{ID: authgate.MetricRevokeSuccess, Name: "authgate_revoke_success_total", Help: "Revocation markers written."},
	{ID: authgate.MetricRevokeFailure, Name: "authgate_revoke_failure_total", Help: "Revocation writes that failed."},
	{ID: authgate.MetricRefreshSuccess, Name: "authgate_refresh_success_total", Help: "Successful refresh rotations."},
	{ID: authgate.MetricRefreshFailure, Name: "authgate_refresh_failure_total", Help: "Rejected or failed refresh attempts."},
	{ID: authgate.MetricRefreshReuseDetected, Name: "authgate_refresh_reuse_detected_total", Help: "Refresh tokens presented after they were revoked."},
	{ID: authgate.MetricLogout, Name: "authgate_logout_total", Help: "Logouts that revoked a token."},
	{ID: authgate.MetricLogoutNoToken, Name: "authgate_logout_no_token_total", Help: "Logouts without a token."},
}

// HistogramDefs lists every histogram the exporters publish.
var HistogramDefs = []HistogramDef{
	{ID: authgate.MetricValidateLatency, Name: "authgate_validate_latency_seconds", Help: "Token validation latency including the revocation lookup."},
}

// HistogramUpperBounds are the finite bucket bounds in seconds; the last bucket is +Inf.
var HistogramUpperBounds = []float64{0.001, 0.002, 0.005, 0.01, 0.025, 0.05, 0.1}

// BucketLabels are the "le" label values for each bucket, +Inf last.
var BucketLabels = []string{"0.001", "0.002", "0.005", "0.01", "0.025", "0.05", "0.1", "+Inf"}

// BucketCount is the number of latency buckets, +Inf included.
const BucketCount = 8

// NormalizeBuckets copies raw into a fixed-size array, zero-filling when raw is short.
func NormalizeBuckets(raw []uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw [BucketCount]uint64) [BucketCount]uint64 {
	var out [BucketCount]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
