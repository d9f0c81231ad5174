// Package prometheus renders authstate Engine metrics in the Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts an [authstate.Engine] and exposes an
// [http.Handler]. Counter names are prefixed authstate_*_total; the single
// histogram is authstate_login_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in a global Prometheus registry. Callers mount the Handler.
//   - Mutate engine state.
package prometheus
