package internaldefs

import (
	"github.com/MrEthical07/authstate"
)

// CounterDef names one Engine counter.
type CounterDef struct {
	ID   authstate.MetricID
	Name string
	Help string
}

// HistogramDef names one Engine latency histogram.
type HistogramDef struct {
	ID   authstate.MetricID
	Name string
	Help string
}

var CounterDefs = []CounterDef{
	{ID: authstate.MetricLoginSuccess, Name: "authstate_login_success_total", Help: "Logins that authenticated the state."},
	{ID: authstate.MetricLoginFailure, Name: "authstate_login_failure_total", Help: "Logins that ended with an error."},
	{ID: authstate.MetricLogout, Name: "authstate_logout_total", Help: "Logout operations."},
	{ID: authstate.MetricReconcileRun, Name: "authstate_reconcile_runs_total", Help: "Reconciliation passes."},
	{ID: authstate.MetricReconcileRestored, Name: "authstate_reconcile_restored_total", Help: "Passes that restored a persisted token."},
	{ID: authstate.MetricStorageError, Name: "authstate_storage_errors_total", Help: "Failed token storage operations."},
}

var HistogramDefs = []HistogramDef{
	{ID: authstate.MetricLoginLatency, Name: "authstate_login_latency_seconds", Help: "Login round-trip latency histogram."},
}

// AuditDroppedName is the counter of audit events dropped under backpressure.
const (
	AuditDroppedName = "authstate_audit_dropped_total"
	AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."
)

// HistogramBounds are the upper bounds of the eight latency buckets, in
// seconds, as rendered in the Prometheus "le" label.
var HistogramBounds = [8]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix are the bounds rendered into OTel gauge names.
var HistogramBoundSuffix = [8]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// NormalizeBuckets copies raw into a fixed eight-bucket array. Missing
// buckets read as zero; extra buckets are ignored.
func NormalizeBuckets(raw []uint64) [8]uint64 {
	var out [8]uint64
	for i := 0; i < len(out) && i < len(raw); i++ {
		out[i] = raw[i]
	}
	return out
}

// CumulativeBuckets converts per-bucket counts into running totals.
func CumulativeBuckets(raw [8]uint64) [8]uint64 {
	var out [8]uint64
	var running uint64
	for i := 0; i < len(raw); i++ {
		running += raw[i]
		out[i] = running
	}
	return out
}
