// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed message rates per type and dispatch outcomes
//   - Producer state and recovery attempts
//   - Cache hit/fetch counts per entity kind
//   - Journal batch sizes and flush latencies
package metrics
