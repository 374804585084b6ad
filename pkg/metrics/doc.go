// Package metrics exposes Prometheus collectors for the access-control
// core: gate decisions, session lifecycle transitions, active sessions and
// basic HTTP request counters.
package metrics
