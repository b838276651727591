// Package queue implements the durable dispatch queue on Redis. It decouples
// fast, synchronous enqueue inside the request path from slow, retryable
// delivery in the worker pool, and owns the job records the history endpoint
// reads.
package queue

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateWaiting   State = "waiting"
	StateActive    State = "active"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
)

// JobPayload is the snapshot taken at enqueue time. Recipients are never
// re-resolved, even if directory membership changes before delivery.
type JobPayload struct {
	Title            string            `json:"title"`
	Message          string            `json:"message"`
	Data             map[string]string `json:"data,omitempty"`
	RecipientUserIds []uuid.UUID       `json:"recipient_user_ids"`
	InitiatorId      uuid.UUID         `json:"initiator_id"`
}

// ProviderOutcome records one provider's result within a single attempt.
// "not configured" is an unsuccessful outcome but never a job failure.
type ProviderOutcome struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}

// AttemptRecord keeps what happened in one delivery attempt so operators can
// see which provider delivered in which attempt after a retry.
type AttemptRecord struct {
	Number    int               `json:"number"`
	StartedAt time.Time         `json:"started_at"`
	Outcomes  []ProviderOutcome `json:"outcomes,omitempty"`
	Error     string            `json:"error,omitempty"`
}

// Job is owned by the queue from creation until a terminal state. The producer
// never mutates it after Enqueue returns.
type Job struct {
	Id            string     `json:"id"`
	Payload       JobPayload `json:"payload"`
	State         State      `json:"state"`
	AttemptCount  int        `json:"attempt_count"`
	MaxAttempts   int        `json:"max_attempts"`
	EnqueuedAt    time.Time  `json:"enqueued_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	// Summary annotates a completed job, e.g. "delivered" or "no-tokens".
	Summary  string          `json:"summary,omitempty"`
	Attempts []AttemptRecord `json:"attempts,omitempty"`
}

func (j *Job) terminal() bool {
	return j.State == StateCompleted || j.State == StateFailed
}
