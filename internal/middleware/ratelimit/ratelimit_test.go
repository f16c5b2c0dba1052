package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func fixedClock(l *Limiter, start time.Time) *time.Time {
	now := start
	l.now = func() time.Time { return now }
	return &now
}

func TestLimiter_Allow(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 2})
	defer l.Stop()
	now := fixedClock(l, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	steps := []struct {
		advance time.Duration
		key     string
		want    bool
	}{
		{0, "a", true},
		{time.Second, "a", true},
		{time.Second, "a", false},
		{0, "b", true},
		// Refused requests do not push the window forward.
		{30 * time.Second, "a", false},
		{28 * time.Second, "a", true},
	}
	for i, s := range steps {
		*now = now.Add(s.advance)
		if got := l.Allow(s.key, false); got != s.want {
			t.Errorf("step %d Allow(%s) = %v, want %v", i, s.key, got, s.want)
		}
	}

	if m := l.GetMetrics(); m.Rejected != 2 || m.Clients != 2 {
		t.Errorf("metrics = %+v", m)
	}

	*now = now.Add(idleAfter + time.Second)
	if n := l.forgetIdle(); n != 2 || l.ActiveClients() != 0 {
		t.Errorf("forgetIdle removed %d, %d left", n, l.ActiveClients())
	}
}

func TestLimiter_WriteBudget(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 10, WritesPerMinute: 2})
	defer l.Stop()
	now := fixedClock(l, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 2; i++ {
		if !l.Allow("a", true) {
			t.Fatalf("write %d refused", i)
		}
	}
	if l.Allow("a", true) {
		t.Error("third write allowed")
	}
	if !l.Allow("a", false) {
		t.Error("read refused while only the write budget is spent")
	}

	*now = now.Add(window)
	if !l.Allow("a", true) {
		t.Error("write refused after the window reopened")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	l := NewLimiter(Config{})
	defer l.Stop()
	for i := 0; i < 1000; i++ {
		if !l.Allow("a", i%2 == 0) {
			t.Fatal("unlimited limiter refused a request")
		}
	}
	if l.ActiveClients() != 0 {
		t.Error("unlimited limiter tracked clients")
	}
}

func TestLimiter_Middleware(t *testing.T) {
	l := NewLimiter(Config{RequestsPerMinute: 5, WritesPerMinute: 1})
	defer l.Stop()
	l.Stop()
	now := fixedClock(l, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	h := l.Middleware(func(*http.Request) string { return "ip" }, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }))

	tests := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusNoContent},
		{http.MethodGet, http.StatusNoContent},
		{http.MethodDelete, http.StatusTooManyRequests},
	}
	for i, tt := range tests {
		*now = now.Add(10 * time.Second)
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, httptest.NewRequest(tt.method, "/", nil))
		if rr.Code != tt.want {
			t.Errorf("request %d %s status = %d, want %d", i, tt.method, rr.Code, tt.want)
		}
		if tt.want == http.StatusTooManyRequests {
			// Both windows opened 20s ago.
			if got := rr.Header().Get("Retry-After"); got != "40" {
				t.Errorf("Retry-After = %q, want 40", got)
			}
			if !strings.Contains(rr.Body.String(), "Too Many Requests") {
				t.Errorf("body = %q", rr.Body.String())
			}
		}
	}
}
