package dto

import (
	"time"

	"github.com/google/uuid"
)

// RecipientFilter specifies who receives a notification as a union of explicit
// users, roles, and class memberships. At least one category must be non-empty;
// that is checked in the service, not by a struct tag.
type RecipientFilter struct {
	UserIds  []uuid.UUID `json:"userIds" validate:"omitempty"`
	Roles    []string    `json:"roles" validate:"omitempty,dive,min=1"`
	ClassIds []uuid.UUID `json:"classIds" validate:"omitempty"`
}

func (f RecipientFilter) IsEmpty() bool {
	return len(f.UserIds) == 0 && len(f.Roles) == 0 && len(f.ClassIds) == 0
}

type SendNotificationRequest struct {
	Title      string            `json:"title" validate:"required,min=1,max=200"`
	Message    string            `json:"message" validate:"required,min=1,max=1000"`
	Recipients RecipientFilter   `json:"recipients"`
	Data       map[string]string `json:"data" validate:"omitempty"`
}

// SendNotificationResponse is success-shaped even when the queue backend is
// down: Queued=false plus Warning signals degraded mode without failing the
// caller's request.
type SendNotificationResponse struct {
	Queued         bool   `json:"queued"`
	RecipientCount int    `json:"recipientCount"`
	Warning        string `json:"warning,omitempty"`
}

type RegisterDeviceRequest struct {
	UserId      uuid.UUID `json:"userId" validate:"required"`
	DeviceToken string    `json:"deviceToken" validate:"required,min=8"`
	Platform    string    `json:"platform" validate:"required,oneof=IOS ANDROID WEB"`
}

// NotificationSummary is one job-history row on GET /notification/list.
type NotificationSummary struct {
	Id             string            `json:"id"`
	Title          string            `json:"title"`
	Message        string            `json:"message"`
	State          string            `json:"state"`
	RecipientCount int               `json:"recipientCount"`
	AttemptCount   int               `json:"attemptCount"`
	FailureReason  string            `json:"failureReason,omitempty"`
	Providers      []ProviderOutcome `json:"providers,omitempty"`
	EnqueuedAt     time.Time         `json:"enqueuedAt"`
	FinishedAt     *time.Time        `json:"finishedAt,omitempty"`
}

type ProviderOutcome struct {
	Provider string `json:"provider"`
	Success  bool   `json:"success"`
	Reason   string `json:"reason,omitempty"`
}
