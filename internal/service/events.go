package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/societyhq/procurement-api/internal/models"
	"github.com/societyhq/procurement-api/pkg/config"
	"github.com/societyhq/procurement-api/pkg/jobs"
)

// Notifier is the seam to the external notification collaborator.
type Notifier interface {
	Notify(ctx context.Context, event models.DomainEvent) error
}

// NotifierFunc allows using plain functions as notifiers.
type NotifierFunc func(ctx context.Context, event models.DomainEvent) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, event models.DomainEvent) error {
	return f(ctx, event)
}

// EventDispatcher fans domain events out to the notification sink in
// the background. Dispatch is fire-and-forget: a failing sink is
// logged and retried by the queue but never affects the transaction
// that produced the event.
type EventDispatcher struct {
	queue  *jobs.Queue
	logger *zap.Logger
}

// NewEventDispatcher wires the dispatcher onto a worker queue.
func NewEventDispatcher(notifier Notifier, cfg config.NotificationsConfig, logger *zap.Logger) *EventDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if notifier == nil {
		notifier = NotifierFunc(func(ctx context.Context, event models.DomainEvent) error {
			logger.Info("domain event",
				zap.String("type", string(event.Type)),
				zap.String("entity_id", event.EntityID),
				zap.String("status", event.Status),
			)
			return nil
		})
	}

	handler := func(ctx context.Context, job jobs.Job) error {
		event, ok := job.Payload.(models.DomainEvent)
		if !ok {
			logger.Warn("dropping malformed event job", zap.String("job_id", job.ID))
			return nil
		}
		return notifier.Notify(ctx, event)
	}

	queue := jobs.NewQueue("notifications", handler, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})

	return &EventDispatcher{queue: queue, logger: logger}
}

// Start begins background dispatch.
func (d *EventDispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *EventDispatcher) Stop() {
	d.queue.Stop()
}

// Emit enqueues a domain event. Failures are logged, never returned:
// the emitting transaction has already committed.
func (d *EventDispatcher) Emit(event models.DomainEvent) {
	if d == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: string(event.Type), Payload: event}
	if err := d.queue.Enqueue(job); err != nil {
		d.logger.Warn("failed to enqueue domain event",
			zap.String("type", string(event.Type)),
			zap.String("entity_id", event.EntityID),
			zap.Error(err),
		)
	}
}

// eventEmitter is the narrow interface services depend on.
type eventEmitter interface {
	Emit(event models.DomainEvent)
}

// noopEmitter is used when no dispatcher is configured.
type noopEmitter struct{}

func (noopEmitter) Emit(models.DomainEvent) {}
