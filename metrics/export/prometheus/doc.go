// Package prometheus renders the engine's counters in Prometheus text
// exposition format.
//
// [NewPrometheusExporter] accepts a [miniauth.Engine] and exposes an
// [http.Handler] suitable for mounting at /metrics. Counter names are
// prefixed miniauth_*_total.
//
// Nothing is registered in a global Prometheus registry. Callers mount the
// Handler themselves.
package prometheus
