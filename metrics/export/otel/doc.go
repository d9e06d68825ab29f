// Package otel publishes authgate engine counters through an OpenTelemetry
// Meter supplied by the caller. Instruments are observable; one callback
// takes a snapshot per collection.
package otel
