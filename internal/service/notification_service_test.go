package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-admin-be/internal/dto"
	"school-admin-be/internal/model"
	"school-admin-be/internal/pkg/apperrors"
	"school-admin-be/pkg/queue"
)

type fakeDispatchQueue struct {
	enqueued   []queue.JobPayload
	enqueueErr error
	recent     []*queue.Job
	listErr    error
	lastLimit  int
}

func (f *fakeDispatchQueue) Enqueue(_ context.Context, payload queue.JobPayload) (*queue.Job, error) {
	if f.enqueueErr != nil {
		return nil, f.enqueueErr
	}
	f.enqueued = append(f.enqueued, payload)
	return &queue.Job{Id: uuid.NewString(), Payload: payload, State: queue.StateWaiting}, nil
}

func (f *fakeDispatchQueue) ListRecent(_ context.Context, limit int) ([]*queue.Job, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	if limit < len(f.recent) {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}

type fakeTokenRepo struct {
	upserts []*model.DeviceToken
	tokens  map[uuid.UUID][]model.DeviceToken
	err     error
}

func (f *fakeTokenRepo) Upsert(_ context.Context, token *model.DeviceToken) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, token)
	return nil
}

func (f *fakeTokenRepo) GetActiveTokensForUsers(_ context.Context, userIds []uuid.UUID) ([]model.DeviceToken, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.DeviceToken
	for _, id := range userIds {
		out = append(out, f.tokens[id]...)
	}
	return out, nil
}

func newTestNotificationService(t *testing.T, dir *fakeDirectoryRepo, q *fakeDispatchQueue, tokens *fakeTokenRepo) INotificationService {
	t.Helper()
	log := testLogger(t)
	return NewNotificationService(NewRecipientService(dir, log), tokens, q, log, log)
}

func validSendRequest(recipient uuid.UUID) dto.SendNotificationRequest {
	return dto.SendNotificationRequest{
		Title:   "PTA meeting",
		Message: "Thursday at 16:00",
		Recipients: dto.RecipientFilter{
			UserIds: []uuid.UUID{recipient},
		},
	}
}

func TestSendQueuesJobWithResolvedRecipients(t *testing.T) {
	recipient := uuid.New()
	initiator := uuid.New()
	dir := &fakeDirectoryRepo{existingUsers: map[uuid.UUID]bool{recipient: true}}
	q := &fakeDispatchQueue{}
	svc := newTestNotificationService(t, dir, q, &fakeTokenRepo{})

	resp, err := svc.Send(context.Background(), initiator, validSendRequest(recipient))
	require.NoError(t, err)
	assert.True(t, resp.Queued)
	assert.Equal(t, 1, resp.RecipientCount)
	assert.Empty(t, resp.Warning)

	require.Len(t, q.enqueued, 1)
	assert.Equal(t, []uuid.UUID{recipient}, q.enqueued[0].RecipientUserIds)
	assert.Equal(t, initiator, q.enqueued[0].InitiatorId)
	assert.Equal(t, "PTA meeting", q.enqueued[0].Title)
}

func TestSendRejectsInvalidBody(t *testing.T) {
	q := &fakeDispatchQueue{}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	tests := []struct {
		name   string
		mutate func(*dto.SendNotificationRequest)
	}{
		{"missing title", func(r *dto.SendNotificationRequest) { r.Title = "" }},
		{"missing message", func(r *dto.SendNotificationRequest) { r.Message = "" }},
		{"title too long", func(r *dto.SendNotificationRequest) {
			for len(r.Title) <= 200 {
				r.Title += "xxxxxxxxxx"
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSendRequest(uuid.New())
			tt.mutate(&req)
			_, err := svc.Send(context.Background(), uuid.New(), req)
			require.Error(t, err)
			assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
		})
	}
	assert.Empty(t, q.enqueued, "invalid requests must never reach the queue")
}

func TestSendEmptyFilterRejected(t *testing.T) {
	q := &fakeDispatchQueue{}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	req := validSendRequest(uuid.New())
	req.Recipients = dto.RecipientFilter{}
	_, err := svc.Send(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
	assert.Empty(t, q.enqueued)
}

func TestSendDegradedWhenQueueUnreachable(t *testing.T) {
	recipient := uuid.New()
	dir := &fakeDirectoryRepo{existingUsers: map[uuid.UUID]bool{recipient: true}}
	q := &fakeDispatchQueue{
		enqueueErr: &queue.ConnectivityError{Op: "enqueue", Err: errors.New("connection refused")},
	}
	svc := newTestNotificationService(t, dir, q, &fakeTokenRepo{})

	resp, err := svc.Send(context.Background(), uuid.New(), validSendRequest(recipient))

	// Backend outage is a degraded success, never a caller-facing error.
	require.NoError(t, err)
	assert.False(t, resp.Queued)
	assert.Equal(t, 1, resp.RecipientCount)
	assert.NotEmpty(t, resp.Warning)
}

func TestSendNonConnectivityEnqueueErrorFails(t *testing.T) {
	recipient := uuid.New()
	dir := &fakeDirectoryRepo{existingUsers: map[uuid.UUID]bool{recipient: true}}
	q := &fakeDispatchQueue{enqueueErr: errors.New("payload too large")}
	svc := newTestNotificationService(t, dir, q, &fakeTokenRepo{})

	_, err := svc.Send(context.Background(), uuid.New(), validSendRequest(recipient))
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeInternal, apperrors.CodeOf(err))
}

func TestRegisterDeviceUpserts(t *testing.T) {
	userId := uuid.New()
	tokens := &fakeTokenRepo{}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, &fakeDispatchQueue{}, tokens)

	err := svc.RegisterDevice(context.Background(), userId, dto.RegisterDeviceRequest{
		UserId:      userId,
		DeviceToken: "device-token-1",
		Platform:    model.PlatformAndroid,
	})
	require.NoError(t, err)
	require.Len(t, tokens.upserts, 1)
	assert.Equal(t, userId, tokens.upserts[0].UserId)
	assert.Equal(t, "device-token-1", tokens.upserts[0].Token)
	assert.Equal(t, model.PlatformAndroid, tokens.upserts[0].Platform)
}

func TestRegisterDeviceForAnotherUserIsConflict(t *testing.T) {
	tokens := &fakeTokenRepo{}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, &fakeDispatchQueue{}, tokens)

	err := svc.RegisterDevice(context.Background(), uuid.New(), dto.RegisterDeviceRequest{
		UserId:      uuid.New(),
		DeviceToken: "device-token-1",
		Platform:    model.PlatformIOS,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeConflict, apperrors.CodeOf(err))
	assert.Empty(t, tokens.upserts, "conflict must write nothing")
}

func TestRegisterDeviceValidation(t *testing.T) {
	userId := uuid.New()
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, &fakeDispatchQueue{}, &fakeTokenRepo{})

	err := svc.RegisterDevice(context.Background(), userId, dto.RegisterDeviceRequest{
		UserId:      userId,
		DeviceToken: "device-token-1",
		Platform:    "BLACKBERRY",
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.CodeValidation, apperrors.CodeOf(err))
}

func historyJob(title string, recipients ...uuid.UUID) *queue.Job {
	now := time.Now().UTC()
	return &queue.Job{
		Id: uuid.NewString(),
		Payload: queue.JobPayload{
			Title:            title,
			Message:          "body",
			RecipientUserIds: recipients,
		},
		State:        queue.StateCompleted,
		AttemptCount: 1,
		EnqueuedAt:   now,
		FinishedAt:   &now,
		Attempts: []queue.AttemptRecord{{
			Number:    1,
			StartedAt: now,
			Outcomes:  []queue.ProviderOutcome{{Provider: "fcm", Success: true}},
		}},
	}
}

func TestListAdminSeesEverything(t *testing.T) {
	q := &fakeDispatchQueue{recent: []*queue.Job{
		historyJob("one", uuid.New()),
		historyJob("two", uuid.New()),
	}}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	summaries, err := svc.List(context.Background(), model.RoleAdmin, uuid.New(), 0)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "one", summaries[0].Title)
	require.Len(t, summaries[0].Providers, 1)
	assert.Equal(t, "fcm", summaries[0].Providers[0].Provider)
	assert.Equal(t, 50, q.lastLimit, "admin scan uses the default limit")
}

func TestListNonAdminOnlySeesOwnNotifications(t *testing.T) {
	me := uuid.New()
	q := &fakeDispatchQueue{recent: []*queue.Job{
		historyJob("mine", me, uuid.New()),
		historyJob("not mine", uuid.New()),
		historyJob("also mine", me),
	}}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	summaries, err := svc.List(context.Background(), model.RoleParent, me, 10)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, "mine", summaries[0].Title)
	assert.Equal(t, "also mine", summaries[1].Title)
	assert.Greater(t, q.lastLimit, 10, "non-admin listing scans a wider window before filtering")
}

func TestListClampsLimit(t *testing.T) {
	var recent []*queue.Job
	for i := 0; i < 150; i++ {
		recent = append(recent, historyJob("bulk", uuid.New()))
	}
	q := &fakeDispatchQueue{recent: recent}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	summaries, err := svc.List(context.Background(), model.RoleAdmin, uuid.New(), 1000)
	require.NoError(t, err)
	assert.Len(t, summaries, 100)
}

func TestListDegradedWhenQueueUnreachable(t *testing.T) {
	q := &fakeDispatchQueue{
		listErr: &queue.ConnectivityError{Op: "list", Err: errors.New("connection refused")},
	}
	svc := newTestNotificationService(t, &fakeDirectoryRepo{}, q, &fakeTokenRepo{})

	summaries, err := svc.List(context.Background(), model.RoleAdmin, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, summaries)
}
