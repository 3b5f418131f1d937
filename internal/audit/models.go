// Package audit records resolution requests on a Kafka topic. Events are
// emitted fire-and-forget from the service layer: a slow or absent broker
// must never delay or fail a resolution.
package audit

import "time"

// Event is one resolution audit record. Keep it transport-agnostic so sinks
// can fan out.
type Event struct {
	Timestamp      time.Time `json:"timestamp"`
	RequestID      string    `json:"request_id,omitempty"`
	Source         string    `json:"source"`
	Target         string    `json:"target"`
	AreaOfInterest string    `json:"area_of_interest,omitempty"`
	// Outcome is "found", "empty" or "error".
	Outcome    string        `json:"outcome"`
	Operations int           `json:"operations"`
	Duration   time.Duration `json:"duration_ns"`
}
