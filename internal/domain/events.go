package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event type constants for report lifecycle events.
const (
	EventTypeReportGenerated = "report.generated"
	EventTypeReportDegraded  = "report.degraded"
	EventTypeReportFailed    = "report.failed"
	EventTypeReportCancelled = "report.cancelled"
)

// ReportEvent is the envelope published to Kafka for report lifecycle changes.
type ReportEvent struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	ReportID   string          `json:"report_id"`
	CustomerID string          `json:"customer_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// NewReportEvent creates a new report event with the given parameters.
// The payload is JSON-serialized automatically.
func NewReportEvent(eventType string, reportID uuid.UUID, customerID string, payload interface{}) (*ReportEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &ReportEvent{
		EventID:    uuid.New().String(),
		EventType:  eventType,
		ReportID:   reportID.String(),
		CustomerID: customerID,
		OccurredAt: time.Now().UTC(),
		Payload:    payloadBytes,
	}, nil
}

// ReportGeneratedPayload is the payload for report.generated and
// report.degraded events.
type ReportGeneratedPayload struct {
	ReportID      uuid.UUID     `json:"report_id"`
	CustomerID    string        `json:"customer_id"`
	Status        ReportStatus  `json:"status"`
	Warnings      []string      `json:"warnings,omitempty"`
	ArtifactBytes int           `json:"artifact_bytes"`
	Duration      time.Duration `json:"duration_ns"`
}

// ReportFailedPayload is the payload for report.failed events.
type ReportFailedPayload struct {
	ReportID   uuid.UUID `json:"report_id"`
	CustomerID string    `json:"customer_id"`
	Error      string    `json:"error"`
	Stage      string    `json:"stage,omitempty"`
}

// ReportCancelledPayload is the payload for report.cancelled events.
type ReportCancelledPayload struct {
	ReportID   uuid.UUID `json:"report_id"`
	CustomerID string    `json:"customer_id"`
}
