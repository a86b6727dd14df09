package domain

import (
	"context"
	"time"
)

// Assessment kinds accepted on the request topic.
const (
	AssessmentImpact    = "impact"
	AssessmentViability = "viability"
)

// RawMessage represents an unprocessed message from the request topic.
type RawMessage struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// OutputMessage is the serialized form destined for the result topic.
type OutputMessage struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// AssessmentRequest is the JSON payload of a request message.
type AssessmentRequest struct {
	ID                string  `json:"id,omitempty"`
	Kind              string  `json:"kind"`
	PostalCode        string  `json:"postal_code"`
	EnergyConsumption float64 `json:"energy_consumption,omitempty"`
	PanelEfficiency   float64 `json:"panel_efficiency,omitempty"`
	PanelOutput       float64 `json:"panel_output,omitempty"`
	StartDate         string  `json:"start_date,omitempty"`
	EndDate           string  `json:"end_date,omitempty"`
}

// AssessmentOutcome is the JSON payload of a result message. Exactly one of
// Impact, Viability or Error is set.
type AssessmentOutcome struct {
	RequestID   string           `json:"request_id"`
	Kind        string           `json:"kind"`
	PostalCode  string           `json:"postal_code"`
	Impact      *ImpactResult    `json:"impact,omitempty"`
	Viability   *ViabilityResult `json:"viability,omitempty"`
	Error       string           `json:"error,omitempty"`
	ErrorKind   ErrorKind        `json:"error_kind,omitempty"`
	ProcessedAt time.Time        `json:"processed_at"`
}
