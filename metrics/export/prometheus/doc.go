// Package prometheus renders authgate engine counters in the Prometheus text
// exposition format. It keeps no registry of its own; callers mount Handler
// wherever they serve metrics.
package prometheus
