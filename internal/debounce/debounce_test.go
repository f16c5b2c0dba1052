package debounce

import (
	"sync"
	"testing"
	"time"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
	at    []time.Time
}

func (r *recorder) record(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, s)
	r.at = append(r.at, time.Now())
}

func (r *recorder) snapshot() ([]string, []time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...), append([]time.Time(nil), r.at...)
}

func TestDebouncerRunsOnceWithLastArgument(t *testing.T) {
	rec := &recorder{}
	wait := 100 * time.Millisecond
	d := New(wait, rec.record)
	defer d.Stop()

	d.Call("first")
	time.Sleep(20 * time.Millisecond)
	d.Call("second")
	time.Sleep(20 * time.Millisecond)
	last := time.Now()
	d.Call("third")

	time.Sleep(wait + 150*time.Millisecond)

	calls, at := rec.snapshot()
	if len(calls) != 1 {
		t.Fatalf("fn ran %d times, want 1: %v", len(calls), calls)
	}
	if calls[0] != "third" {
		t.Errorf("fn got %q, want third", calls[0])
	}
	if elapsed := at[0].Sub(last); elapsed < wait {
		t.Errorf("fn fired %v after last call, want >= %v", elapsed, wait)
	}
	if d.Pending() {
		t.Error("still pending after firing")
	}
}

func TestDebouncerSeparateQuietPeriods(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.record)
	defer d.Stop()

	d.Call("a")
	time.Sleep(120 * time.Millisecond)
	d.Call("b")
	time.Sleep(120 * time.Millisecond)

	calls, _ := rec.snapshot()
	if len(calls) != 2 || calls[0] != "a" || calls[1] != "b" {
		t.Errorf("calls = %v, want [a b]", calls)
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.record)

	d.Call("never")
	if !d.Pending() {
		t.Fatal("expected a pending call")
	}
	d.Stop()
	d.Stop()
	d.Call("ignored")

	time.Sleep(100 * time.Millisecond)
	if calls, _ := rec.snapshot(); len(calls) != 0 {
		t.Errorf("fn ran after Stop: %v", calls)
	}
	if d.Pending() {
		t.Error("pending after Stop")
	}
}
