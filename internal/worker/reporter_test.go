package worker

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"finanzapp/internal/amqp"
	"finanzapp/internal/log"
)

type countingStats struct {
	calls atomic.Int32
	done  chan struct{}
}

func (s *countingStats) ExportStats(context.Context) (map[string]int, error) {
	if s.calls.Add(1) == 1 {
		close(s.done)
	}
	return map[string]int{"pending": 0}, nil
}

func TestQueueReporter_ReportsOncePerBurst(t *testing.T) {
	stats := &countingStats{done: make(chan struct{})}
	r := NewQueueReporter(stats, 20*time.Millisecond, log.New(log.Config{Output: io.Discard}))
	defer r.Stop()

	handler := r.Wrap(func(context.Context, *amqp.ExpenseEvent) error { return nil })
	for _, id := range []string{"a", "b", "c"} {
		if err := handler(context.Background(), amqp.NewExpenseEvent(amqp.ExpenseCreated, id, 1)); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-stats.done:
	case <-time.After(time.Second):
		t.Fatal("no report after the burst")
	}
	time.Sleep(60 * time.Millisecond)
	if n := stats.calls.Load(); n != 1 {
		t.Errorf("ExportStats called %d times, want 1", n)
	}
}

func TestQueueReporter_FailedEventsAreNotObserved(t *testing.T) {
	stats := &countingStats{done: make(chan struct{})}
	r := NewQueueReporter(stats, 5*time.Millisecond, log.New(log.Config{Output: io.Discard}))
	defer r.Stop()

	boom := errors.New("sink down")
	handler := r.Wrap(func(context.Context, *amqp.ExpenseEvent) error { return boom })
	if err := handler(context.Background(), amqp.NewExpenseEvent(amqp.ExpenseUpdated, "x", 2)); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	time.Sleep(40 * time.Millisecond)
	if n := stats.calls.Load(); n != 0 {
		t.Errorf("ExportStats called %d times after a failed event", n)
	}
}
