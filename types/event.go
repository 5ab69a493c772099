package types

import "time"

// Processing event types published on every stage transition.
const (
	EventProcessingStarted   = "EwaProcessingStarted"
	EventProcessingStage     = "EwaProcessingStage"
	EventProcessingCompleted = "EwaProcessingCompleted"
	EventProcessingFailed    = "EwaProcessingFailed"
)

// ProcessingEvent is a fire-and-forget stage-transition signal. It is
// never read back by the pipeline; delivery failure is logged only.
type ProcessingEvent struct {
	ID         string    `json:"id"`
	EventType  string    `json:"event_type"`
	Subject    string    `json:"subject"`
	CustomerID string    `json:"customer_id"`
	DocID      string    `json:"doc_id"`
	SID        string    `json:"sid,omitempty"`
	Filename   string    `json:"filename"`
	Stage      string    `json:"stage,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}
