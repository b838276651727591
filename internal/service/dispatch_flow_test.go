package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"school-admin-be/internal/dto"
	"school-admin-be/internal/model"
	"school-admin-be/internal/pkg/logger"
	"school-admin-be/pkg/push"
	"school-admin-be/pkg/queue"
)

// Covers the whole dispatch path against a real queue backend: an admin sends
// to a class, the filter resolves to the class teacher and a guardian, the
// worker pool delivers through the one configured provider, and the history
// listing reflects the outcome per caller role.
func TestClassNotificationEndToEnd(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "flow.log"))
	q := queue.NewRedisQueue(queue.Options{
		RedisURL:     "redis://" + mr.Addr(),
		BlockTimeout: 50 * time.Millisecond,
	}, log)
	t.Cleanup(func() { _ = q.Close() })

	admin := uuid.New()
	teacher := uuid.New()
	guardian := uuid.New()
	outsider := uuid.New()
	classId := uuid.New()

	dir := &fakeDirectoryRepo{
		classMembers: map[uuid.UUID][]uuid.UUID{classId: {teacher, guardian}},
	}
	tokens := tokensFor(map[uuid.UUID][]string{
		teacher:  {"teacher-device"},
		guardian: {"guardian-device"},
	})

	notifications := NewNotificationService(NewRecipientService(dir, log), tokens, q, log, log)

	provider := &stubProvider{name: "fcm", configured: true}
	unconfigured := &stubProvider{name: "onesignal"}
	worker := NewDeliveryService(q, tokens, []push.Provider{provider, unconfigured}, nil, log, 2, 20*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	resp, err := notifications.Send(ctx, admin, dto.SendNotificationRequest{
		Title:   "Field trip",
		Message: "Permission slips due Friday",
		Recipients: dto.RecipientFilter{
			ClassIds: []uuid.UUID{classId},
		},
	})
	require.NoError(t, err)
	assert.True(t, resp.Queued)
	assert.Equal(t, 2, resp.RecipientCount)

	require.Eventually(t, func() bool {
		recent, err := q.ListRecent(ctx, 10)
		return err == nil && len(recent) == 1 && recent[0].State == queue.StateCompleted
	}, 3*time.Second, 20*time.Millisecond)

	provider.mu.Lock()
	assert.ElementsMatch(t, []string{"teacher-device", "guardian-device"}, provider.gotTokens)
	provider.mu.Unlock()
	assert.Equal(t, 0, unconfigured.calls)

	// Admin sees the job; the addressed teacher sees it; an outsider does not.
	adminView, err := notifications.List(ctx, model.RoleAdmin, admin, 10)
	require.NoError(t, err)
	require.Len(t, adminView, 1)
	assert.Equal(t, "Field trip", adminView[0].Title)
	assert.Equal(t, string(queue.StateCompleted), adminView[0].State)
	assert.Equal(t, 1, adminView[0].AttemptCount)
	require.Len(t, adminView[0].Providers, 2)

	teacherView, err := notifications.List(ctx, model.RoleTeacher, teacher, 10)
	require.NoError(t, err)
	assert.Len(t, teacherView, 1)

	outsiderView, err := notifications.List(ctx, model.RoleParent, outsider, 10)
	require.NoError(t, err)
	assert.Empty(t, outsiderView)
}

// A provider that fails on every attempt exhausts the retry budget and parks
// the job in the failed state with the per-attempt history intact.
func TestFailingProviderExhaustsRetries(t *testing.T) {
	mr := miniredis.RunT(t)
	log := logger.NewIsolatedLogger(filepath.Join(t.TempDir(), "flow.log"))
	q := queue.NewRedisQueue(queue.Options{
		RedisURL:     "redis://" + mr.Addr(),
		MaxAttempts:  2,
		BackoffBase:  10 * time.Millisecond,
		BlockTimeout: 50 * time.Millisecond,
	}, log)
	t.Cleanup(func() { _ = q.Close() })

	user := uuid.New()
	tokens := tokensFor(map[uuid.UUID][]string{user: {"dead-device"}})
	provider := &stubProvider{name: "fcm", configured: true, err: assert.AnError}
	worker := NewDeliveryService(q, tokens, []push.Provider{provider}, nil, log, 1, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	_, err := q.Enqueue(ctx, queue.JobPayload{
		Title:            "Doomed",
		Message:          "never arrives",
		RecipientUserIds: []uuid.UUID{user},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		recent, err := q.ListRecent(ctx, 10)
		return err == nil && len(recent) == 1 && recent[0].State == queue.StateFailed
	}, 3*time.Second, 20*time.Millisecond)

	recent, err := q.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, recent[0].AttemptCount)
	assert.Len(t, recent[0].Attempts, 2)
	assert.Contains(t, recent[0].FailureReason, "fcm")

	provider.mu.Lock()
	assert.Equal(t, 2, provider.calls)
	provider.mu.Unlock()
}
