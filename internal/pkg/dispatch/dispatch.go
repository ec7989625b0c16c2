// Package dispatch delivers anomaly notifications. Delivery is
// fire-and-forget: the detection path enqueues and moves on, and a full queue
// drops the request rather than block a sweep.
package dispatch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
)

// Sender delivers one notification over one channel (log, email, ...).
type Sender interface {
	Send(ctx context.Context, req notification.Request) error
}

// Queue is the default notification.Dispatcher: a bounded channel drained by
// background workers that fan each request out to every sender.
type Queue struct {
	ch      chan notification.Request
	senders []Sender
	logger  *slog.Logger

	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewQueue(size, workers int, logger *slog.Logger, senders ...Sender) *Queue {
	if size <= 0 {
		size = 100
	}
	if workers <= 0 {
		workers = 1
	}

	q := &Queue{
		ch:      make(chan notification.Request, size),
		senders: senders,
		logger:  logger,
	}

	q.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go q.worker()
	}

	return q
}

// Dispatch implements notification.Dispatcher. It never blocks; when the
// queue is full the request is dropped and logged.
func (q *Queue) Dispatch(_ context.Context, req notification.Request) {
	select {
	case q.ch <- req:
	default:
		q.logger.Warn("notification queue full, dropping request",
			slog.String("tenant_id", req.TenantID),
			slog.String("employee_id", req.EmployeeID),
			slog.String("kind", string(req.Kind)),
		)
	}
}

// Stop closes the queue and waits for in-flight deliveries to finish.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() {
		close(q.ch)
	})
	q.wg.Wait()
}

func (q *Queue) worker() {
	defer q.wg.Done()

	for req := range q.ch {
		for _, s := range q.senders {
			if err := s.Send(context.Background(), req); err != nil {
				q.logger.Error("notification delivery failed",
					slog.String("tenant_id", req.TenantID),
					slog.String("employee_id", req.EmployeeID),
					slog.String("kind", string(req.Kind)),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// AuditSender writes every notification to the structured log. It is always
// wired so each alert leaves a trace even when no other channel is configured.
type AuditSender struct {
	Logger *slog.Logger
}

func (s AuditSender) Send(_ context.Context, req notification.Request) error {
	attrs := []any{
		slog.String("tenant_id", req.TenantID),
		slog.String("employee_id", req.EmployeeID),
		slog.String("kind", string(req.Kind)),
		slog.Int("escalation_level", req.EscalationLevel),
	}
	for k, v := range req.Context {
		attrs = append(attrs, slog.String(k, v))
	}
	s.Logger.Info("anomaly notification", attrs...)
	return nil
}
