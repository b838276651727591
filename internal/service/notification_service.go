package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"school-admin-be/internal/dto"
	"school-admin-be/internal/model"
	"school-admin-be/internal/pkg/apperrors"
	"school-admin-be/internal/pkg/logger"
	"school-admin-be/internal/pkg/serverutils"
	"school-admin-be/internal/repository/contract"
	"school-admin-be/pkg/queue"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
	// historyScanWindow is how far back the post-hoc recipient filter looks
	// for non-admin callers. Job volume is bounded, so a wide window is cheap.
	historyScanWindow = 500

	queueDownWarning = "notification accepted but the delivery queue is unreachable; it will not be delivered until the queue recovers and the notice is re-sent"
)

// DispatchQueue is the slice of the queue the producer and history surfaces
// need; the worker pool holds the full client.
type DispatchQueue interface {
	Enqueue(ctx context.Context, payload queue.JobPayload) (*queue.Job, error)
	ListRecent(ctx context.Context, limit int) ([]*queue.Job, error)
}

type INotificationService interface {
	Send(ctx context.Context, initiatorId uuid.UUID, req dto.SendNotificationRequest) (*dto.SendNotificationResponse, error)
	RegisterDevice(ctx context.Context, requesterId uuid.UUID, req dto.RegisterDeviceRequest) error
	List(ctx context.Context, requesterRole string, requesterId uuid.UUID, limit int) ([]dto.NotificationSummary, error)
}

type notificationService struct {
	recipients IRecipientService
	tokens     contract.DeviceTokenRepository
	dispatch   DispatchQueue
	logger     logger.ILogger
	degraded   logger.ILogger // throttled; outage warnings only
}

func NewNotificationService(
	recipients IRecipientService,
	tokens contract.DeviceTokenRepository,
	dispatch DispatchQueue,
	log logger.ILogger,
	degraded logger.ILogger,
) INotificationService {
	return &notificationService{
		recipients: recipients,
		tokens:     tokens,
		dispatch:   dispatch,
		logger:     log,
		degraded:   degraded,
	}
}

// Send validates the request, resolves recipients synchronously, and enqueues
// the delivery job. A queue-backend outage never fails the caller's request:
// it is downgraded to a success-shaped response carrying a warning.
func (s *notificationService) Send(ctx context.Context, initiatorId uuid.UUID, req dto.SendNotificationRequest) (*dto.SendNotificationResponse, error) {
	if err := serverutils.Validate.Struct(req); err != nil {
		return nil, apperrors.NewValidation(serverutils.ValidationMessage(err))
	}

	recipientIds, err := s.recipients.Resolve(ctx, req.Recipients)
	if err != nil {
		return nil, err
	}

	job, err := s.dispatch.Enqueue(ctx, queue.JobPayload{
		Title:            req.Title,
		Message:          req.Message,
		Data:             req.Data,
		RecipientUserIds: recipientIds,
		InitiatorId:      initiatorId,
	})
	if err != nil {
		var connErr *queue.ConnectivityError
		if errors.As(err, &connErr) {
			s.degraded.Warn("NotificationService", "Dispatch queue unreachable, returning degraded response", map[string]interface{}{
				"error": connErr.Error(),
			})
			return &dto.SendNotificationResponse{
				Queued:         false,
				RecipientCount: len(recipientIds),
				Warning:        queueDownWarning,
			}, nil
		}
		return nil, apperrors.NewInternal("failed to enqueue notification", err)
	}

	s.logger.Info("NotificationService", "Notification queued", map[string]interface{}{
		"job_id":     job.Id,
		"recipients": len(recipientIds),
	})
	return &dto.SendNotificationResponse{
		Queued:         true,
		RecipientCount: len(recipientIds),
	}, nil
}

// RegisterDevice upserts a device token. No user may register a token on
// another's behalf; that is a conflict and writes nothing.
func (s *notificationService) RegisterDevice(ctx context.Context, requesterId uuid.UUID, req dto.RegisterDeviceRequest) error {
	if err := serverutils.Validate.Struct(req); err != nil {
		return apperrors.NewValidation(serverutils.ValidationMessage(err))
	}

	if req.UserId != requesterId {
		return apperrors.NewConflict("cannot register a device token for another user")
	}

	token := &model.DeviceToken{
		UserId:   req.UserId,
		Token:    req.DeviceToken,
		Platform: req.Platform,
	}
	if err := s.tokens.Upsert(ctx, token); err != nil {
		return apperrors.NewInternal("failed to register device token", err)
	}

	s.logger.Info("NotificationService", "Device registered", map[string]interface{}{
		"user_id":  req.UserId,
		"platform": req.Platform,
	})
	return nil
}

// List returns the most recent completed/failed jobs. Admin callers see all;
// anyone else only jobs whose resolved recipients include them. This is a
// post-hoc filter over the queue's own records, not a separate index.
func (s *notificationService) List(ctx context.Context, requesterRole string, requesterId uuid.UUID, limit int) ([]dto.NotificationSummary, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	isAdmin := requesterRole == model.RoleAdmin

	scan := limit
	if !isAdmin {
		scan = historyScanWindow
	}
	jobs, err := s.dispatch.ListRecent(ctx, scan)
	if err != nil {
		var connErr *queue.ConnectivityError
		if errors.As(err, &connErr) {
			s.degraded.Warn("NotificationService", "Dispatch queue unreachable, history unavailable", map[string]interface{}{
				"error": connErr.Error(),
			})
			return []dto.NotificationSummary{}, nil
		}
		return nil, apperrors.NewInternal("failed to list notifications", err)
	}

	summaries := make([]dto.NotificationSummary, 0, limit)
	for _, job := range jobs {
		if !isAdmin && !jobIncludesRecipient(job, requesterId) {
			continue
		}
		summaries = append(summaries, toSummary(job))
		if len(summaries) == limit {
			break
		}
	}
	return summaries, nil
}

func jobIncludesRecipient(job *queue.Job, userId uuid.UUID) bool {
	for _, id := range job.Payload.RecipientUserIds {
		if id == userId {
			return true
		}
	}
	return false
}

func toSummary(job *queue.Job) dto.NotificationSummary {
	var outcomes []dto.ProviderOutcome
	if n := len(job.Attempts); n > 0 {
		for _, o := range job.Attempts[n-1].Outcomes {
			outcomes = append(outcomes, dto.ProviderOutcome{
				Provider: o.Provider,
				Success:  o.Success,
				Reason:   o.Reason,
			})
		}
	}

	return dto.NotificationSummary{
		Id:             job.Id,
		Title:          job.Payload.Title,
		Message:        job.Payload.Message,
		State:          string(job.State),
		RecipientCount: len(job.Payload.RecipientUserIds),
		AttemptCount:   job.AttemptCount,
		FailureReason:  job.FailureReason,
		Providers:      outcomes,
		EnqueuedAt:     job.EnqueuedAt,
		FinishedAt:     job.FinishedAt,
	}
}
