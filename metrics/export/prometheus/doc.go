// Package prometheus renders engine counters in the Prometheus text
// exposition format. Counters are named eduauth_*_total; the only histogram
// is eduauth_authenticate_latency_seconds.
//
// Nothing is registered globally; callers mount Handler where they like.
package prometheus
