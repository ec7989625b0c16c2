package dispatch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/assyin/pointaflex-26-sub002/internal/domain/attendance"
	"github.com/assyin/pointaflex-26-sub002/internal/domain/notification"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	mu   sync.Mutex
	got  []notification.Request
	gate chan struct{}
}

func (s *captureSender) Send(_ context.Context, req notification.Request) error {
	if s.gate != nil {
		<-s.gate
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, req)
	return nil
}

func (s *captureSender) sent() []notification.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]notification.Request(nil), s.got...)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestQueueDeliversToAllSenders(t *testing.T) {
	first := &captureSender{}
	second := &captureSender{}
	q := NewQueue(10, 2, discard(), first, second)

	q.Dispatch(context.Background(), notification.Request{
		TenantID:   "t1",
		EmployeeID: "e1",
		Kind:       attendance.AnomalyLate,
	})
	q.Stop()

	require.Len(t, first.sent(), 1)
	require.Len(t, second.sent(), 1)
	assert.Equal(t, attendance.AnomalyLate, first.sent()[0].Kind)
}

func TestDispatchNeverBlocksWhenQueueFull(t *testing.T) {
	gate := make(chan struct{})
	sender := &captureSender{gate: gate}
	q := NewQueue(1, 1, discard(), sender)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			q.Dispatch(context.Background(), notification.Request{TenantID: "t1", EmployeeID: "e1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Dispatch blocked on a full queue")
	}

	close(gate)
	q.Stop()
	// At least one made it through; the overflow was dropped, not queued.
	assert.NotEmpty(t, sender.sent())
	assert.Less(t, len(sender.sent()), 10)
}

func TestStopDrainsPendingRequests(t *testing.T) {
	sender := &captureSender{}
	q := NewQueue(10, 1, discard(), sender)

	for i := 0; i < 5; i++ {
		q.Dispatch(context.Background(), notification.Request{TenantID: "t1", EmployeeID: "e1"})
	}
	q.Stop()

	assert.Len(t, sender.sent(), 5)
}
