// Package metrics records build metrics behind a Recorder interface.
//
// Components receive a Recorder by injection and default to NoopRecorder, so
// call sites never check for nil. When `metrics.textfile` is configured the CLI
// swaps in a PrometheusRecorder and writes its registry after every build;
// `sitelinks watch --metrics-addr` also serves it over HTTP.
package metrics
