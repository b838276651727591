package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"school-admin-be/internal/pkg/logger"
	"school-admin-be/internal/repository/contract"
	"school-admin-be/pkg/events"
	"school-admin-be/pkg/push"
	"school-admin-be/pkg/queue"
)

const reasonNotConfigured = "not configured"

// WorkerQueue is the consumer side of the dispatch queue.
type WorkerQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Complete(ctx context.Context, job *queue.Job, outcomes []queue.ProviderOutcome, summary string) error
	Fail(ctx context.Context, job *queue.Job, outcomes []queue.ProviderOutcome, reason string) (bool, error)
	PromoteDue(ctx context.Context) error
	ReclaimStale(ctx context.Context) (int, error)
}

// EventPublisher pushes delivery outcomes onto the event bus. Optional; a nil
// publisher disables events without touching the delivery path.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// DeliveryService is the long-running worker pool. It pulls jobs from the
// dispatch queue with bounded concurrency, fans each one out to the
// configured providers in parallel, and writes the job's terminal state.
type DeliveryService struct {
	queue       WorkerQueue
	tokens      contract.DeviceTokenRepository
	providers   []push.Provider
	events      EventPublisher
	logger      logger.ILogger
	degraded    logger.ILogger
	concurrency int
	promoteTick time.Duration
}

func NewDeliveryService(
	q WorkerQueue,
	tokens contract.DeviceTokenRepository,
	providers []push.Provider,
	eventPub EventPublisher,
	log logger.ILogger,
	concurrency int,
	promoteTick time.Duration,
) *DeliveryService {
	if concurrency <= 0 {
		concurrency = 5
	}
	if promoteTick <= 0 {
		promoteTick = time.Second
	}
	return &DeliveryService{
		queue:       q,
		tokens:      tokens,
		providers:   providers,
		events:      eventPub,
		logger:      log,
		degraded:    logger.NewThrottled(log, 30*time.Second),
		concurrency: concurrency,
		promoteTick: promoteTick,
	}
}

// Run blocks until ctx is cancelled. On shutdown the pool stops pulling new
// jobs and lets in-flight jobs write their terminal state; anything a dead
// process leaves on the active list is picked up by the reclaim pass of the
// next run.
func (s *DeliveryService) Run(ctx context.Context) error {
	s.logger.Info("DeliveryService", "Worker pool starting", map[string]interface{}{
		"concurrency": s.concurrency,
		"providers":   len(s.providers),
	})

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.promoteLoop(ctx)
	}()

	for i := 0; i < s.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.workLoop(ctx)
		}()
	}

	wg.Wait()
	s.logger.Info("DeliveryService", "Worker pool stopped", nil)
	return nil
}

// promoteLoop periodically moves delayed (backing-off) jobs back onto the
// waiting list and reclaims jobs orphaned by dead workers.
func (s *DeliveryService) promoteLoop(ctx context.Context) {
	// Recover anything a previous process left on the active list.
	s.reclaim(ctx)

	ticker := time.NewTicker(s.promoteTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.queue.PromoteDue(ctx); err != nil && ctx.Err() == nil {
				s.degraded.Warn("DeliveryService", "Failed to promote delayed jobs", map[string]interface{}{"error": err.Error()})
			}
			s.reclaim(ctx)
		}
	}
}

func (s *DeliveryService) reclaim(ctx context.Context) {
	n, err := s.queue.ReclaimStale(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.degraded.Warn("DeliveryService", "Failed to reclaim orphaned jobs", map[string]interface{}{"error": err.Error()})
		}
		return
	}
	if n > 0 {
		s.logger.Warn("DeliveryService", "Requeued jobs orphaned by a dead worker", map[string]interface{}{"count": n})
	}
}

func (s *DeliveryService) workLoop(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		job, err := s.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.degraded.Warn("DeliveryService", "Dequeue failed", map[string]interface{}{"error": err.Error()})
			time.Sleep(time.Second)
			continue
		}
		if job == nil {
			continue
		}

		s.process(ctx, job)
	}
}

func (s *DeliveryService) process(ctx context.Context, job *queue.Job) {
	tokens, err := s.tokens.GetActiveTokensForUsers(ctx, job.Payload.RecipientUserIds)
	if err != nil {
		s.failJob(ctx, job, nil, fmt.Sprintf("device token lookup failed: %v", err))
		return
	}

	// Valid recipients without registered devices complete the job; there is
	// simply nowhere to deliver to.
	if len(tokens) == 0 {
		s.completeJob(ctx, job, nil, "no-tokens")
		return
	}

	tokenStrings := make([]string, len(tokens))
	for i, t := range tokens {
		tokenStrings[i] = t.Token
	}

	outcomes := s.attemptProviders(ctx, job, tokenStrings)

	// The most severe provider outcome drives the job: a real delivery error
	// on any provider fails the whole job, because retries work at job
	// granularity. "not configured" is never severe.
	var failures []string
	anySuccess := false
	for _, o := range outcomes {
		if o.Success {
			anySuccess = true
		} else if o.Reason != reasonNotConfigured {
			failures = append(failures, o.Provider+": "+o.Reason)
		}
	}

	if len(failures) > 0 {
		s.failJob(ctx, job, outcomes, strings.Join(failures, "; "))
		return
	}

	summary := "delivered"
	if !anySuccess {
		summary = "no-providers"
	}
	s.completeJob(ctx, job, outcomes, summary)
}

// terminalContext detaches the terminal-state write from the worker's
// lifecycle: a shutdown mid-job still records the outcome instead of
// stranding the job on the active list until the reclaim pass finds it.
func terminalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
}

func (s *DeliveryService) completeJob(ctx context.Context, job *queue.Job, outcomes []queue.ProviderOutcome, summary string) {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	if err := s.queue.Complete(ctx, job, outcomes, summary); err != nil {
		s.logger.Error("DeliveryService", "Failed to mark job completed", map[string]interface{}{"job_id": job.Id, "error": err.Error()})
		return
	}
	s.logger.Info("DeliveryService", "Job completed", map[string]interface{}{
		"job_id":  job.Id,
		"attempt": job.AttemptCount,
		"summary": summary,
	})
	s.publishOutcome(ctx, job)
}

// attemptProviders fans the delivery out to every adapter in parallel and
// records one outcome per provider, including the skipped ones.
func (s *DeliveryService) attemptProviders(ctx context.Context, job *queue.Job, tokens []string) []queue.ProviderOutcome {
	outcomes := make([]queue.ProviderOutcome, len(s.providers))

	var wg sync.WaitGroup
	for i, provider := range s.providers {
		if !provider.Configured() {
			outcomes[i] = queue.ProviderOutcome{Provider: provider.Name(), Success: false, Reason: reasonNotConfigured}
			continue
		}

		wg.Add(1)
		go func(i int, provider push.Provider) {
			defer wg.Done()
			if err := provider.Send(ctx, tokens, job.Payload.Title, job.Payload.Message, job.Payload.Data); err != nil {
				outcomes[i] = queue.ProviderOutcome{Provider: provider.Name(), Success: false, Reason: err.Error()}
				return
			}
			outcomes[i] = queue.ProviderOutcome{Provider: provider.Name(), Success: true}
		}(i, provider)
	}
	wg.Wait()

	return outcomes
}

func (s *DeliveryService) failJob(ctx context.Context, job *queue.Job, outcomes []queue.ProviderOutcome, reason string) {
	ctx, cancel := terminalContext(ctx)
	defer cancel()

	retryScheduled, err := s.queue.Fail(ctx, job, outcomes, reason)
	if err != nil {
		s.logger.Error("DeliveryService", "Failed to mark job failed", map[string]interface{}{"job_id": job.Id, "error": err.Error()})
		return
	}

	details := map[string]interface{}{
		"job_id":  job.Id,
		"attempt": job.AttemptCount,
		"reason":  reason,
		"retry":   retryScheduled,
	}
	if retryScheduled {
		s.logger.Warn("DeliveryService", "Job attempt failed, retry scheduled", details)
		return
	}

	// Attempts exhausted; the job stays failed for operator inspection.
	s.logger.Error("DeliveryService", "Job permanently failed", details)
	s.publishOutcome(ctx, job)
}

func (s *DeliveryService) publishOutcome(ctx context.Context, job *queue.Job) {
	if s.events == nil {
		return
	}
	event := events.NewDeliveryEvent(
		string(job.State),
		job.Id,
		job.Payload.Title,
		len(job.Payload.RecipientUserIds),
		job.AttemptCount,
		job.FailureReason,
	)
	if err := s.events.Publish(ctx, event); err != nil {
		s.degraded.Warn("DeliveryService", "Failed to publish delivery event", map[string]interface{}{"error": err.Error()})
	}
}
