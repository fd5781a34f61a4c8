package dispatch

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// recordingSender collects every Send call and can fail chosen destinations.
type recordingSender struct {
	mu    sync.Mutex
	sent  map[string]string
	fails map[string]bool
}

func newRecordingSender() *recordingSender {
	return &recordingSender{sent: map[string]string{}, fails: map[string]bool{}}
}

func (s *recordingSender) Send(destination, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fails[destination] {
		return errors.New("send failed")
	}
	s.sent[destination] = text
	return nil
}

func (s *recordingSender) delivered() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.sent))
	for k, v := range s.sent {
		out[k] = v
	}
	return out
}

func staticRecipients(users ...string) func(string) []string {
	return func(string) []string { return users }
}

func TestDeliver_AllRecipients(t *testing.T) {
	s := newRecordingSender()
	d := New(s, staticRecipients("a", "b", "c"), 2)

	n := d.Deliver("hello", "GROUPA")
	if n != 3 {
		t.Fatalf("expected 3 recipients, got %d", n)
	}
	got := s.delivered()
	for _, u := range []string{"a", "b", "c"} {
		if got[u] != "hello" {
			t.Fatalf("recipient %s missing delivery: %v", u, got)
		}
	}
}

func TestDeliver_NoRecipients(t *testing.T) {
	d := New(newRecordingSender(), staticRecipients(), 2)
	if n := d.Deliver("hello", "EMPTY"); n != 0 {
		t.Fatalf("expected 0, got %d", n)
	}
}

func TestDeliver_FailureIsolation(t *testing.T) {
	s := newRecordingSender()
	s.fails["b"] = true
	d := New(s, staticRecipients("a", "b", "c"), 2)

	if n := d.Deliver("hello", ""); n != 3 {
		t.Fatalf("expected batch of 3, got %d", n)
	}
	got := s.delivered()
	if _, ok := got["b"]; ok {
		t.Fatalf("failed recipient should have no recorded delivery")
	}
	if got["a"] != "hello" || got["c"] != "hello" {
		t.Fatalf("one failure must not block the others: %v", got)
	}
}

// slowSender tracks the peak number of concurrent Send calls.
type slowSender struct {
	inflight atomic.Int64
	peak     atomic.Int64
}

func (s *slowSender) Send(destination, text string) error {
	cur := s.inflight.Add(1)
	for {
		p := s.peak.Load()
		if cur <= p || s.peak.CompareAndSwap(p, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	s.inflight.Add(-1)
	return nil
}

func TestDeliver_BoundedConcurrency(t *testing.T) {
	const workers = 3
	var users []string
	for i := 0; i < 12; i++ {
		users = append(users, fmt.Sprintf("user%d", i))
	}

	s := &slowSender{}
	d := New(s, staticRecipients(users...), workers)
	if n := d.Deliver("hello", ""); n != len(users) {
		t.Fatalf("expected %d, got %d", len(users), n)
	}
	if peak := s.peak.Load(); peak > workers {
		t.Fatalf("concurrency bound exceeded: peak %d > %d workers", peak, workers)
	}
}

func TestClose_DropsNewBatches(t *testing.T) {
	s := newRecordingSender()
	d := New(s, staticRecipients("a"), 1)

	d.Close()
	d.Close() // idempotent
	if n := d.Deliver("hello", ""); n != 0 {
		t.Fatalf("delivery after close must be dropped, got %d", n)
	}
	if len(s.delivered()) != 0 {
		t.Fatalf("nothing should have been sent: %v", s.delivered())
	}
}
