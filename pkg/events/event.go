package events

import "time"

// Event is the contract for domain events published on the bus.
type Event interface {
	// EventType returns the subject suffix, e.g. "completed".
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// NewDeliveryEvent describes one dispatch job reaching a terminal state.
// Downstream audit/activity consumers subscribe to these.
func NewDeliveryEvent(state, jobID, title string, recipientCount, attemptCount int, failureReason string) BaseEvent {
	data := map[string]interface{}{
		"job_id":          jobID,
		"title":           title,
		"recipient_count": recipientCount,
		"attempt_count":   attemptCount,
	}
	if failureReason != "" {
		data["failure_reason"] = failureReason
	}
	return BaseEvent{
		Type:       state,
		Data:       data,
		OccurredAt: time.Now().UTC(),
	}
}
