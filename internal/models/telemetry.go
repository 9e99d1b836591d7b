package models

import "time"

// MetricSample is one tick's worth of canary telemetry. Immutable once
// produced; appended to a bounded history (oldest evicted first).
type MetricSample struct {
	Timestamp       time.Time `json:"timestamp"`
	TickIndex       int       `json:"tickIndex"`
	LatencyMs       float64   `json:"latencyMs"`
	ErrorRate       float64   `json:"errorRate"`
	DriftUserRegion float64   `json:"driftUserRegion"`
}

// AnomalySnapshot captures the signal values at the moment an anomaly is
// acted upon. Derived from the most recent sample, never stored.
type AnomalySnapshot struct {
	LatencyMs         float64 `json:"latencyMs"`
	ErrorRate         float64 `json:"errorRate"`
	DriftUserRegion   float64 `json:"driftUserRegion"`
	ConfidencePercent int     `json:"confidencePercent"`
}
