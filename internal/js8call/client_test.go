package js8call

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"
)

// collectEvents runs a client against a local listener and returns the
// events decoded from payload, which the server writes in one chunk.
func collectEvents(t *testing.T, payload string, want int) []Event {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte(payload))
		// Keep the connection open long enough for the read tick.
		time.Sleep(500 * time.Millisecond)
	}()

	var mu sync.Mutex
	var got []Event
	done := make(chan struct{})
	c := NewClient(ln.Addr().String(), 10*time.Millisecond, 4096, func(ev Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
		if len(got) == want {
			close(done)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %d events", want)
	}
	cancel()

	mu.Lock()
	defer mu.Unlock()
	return append([]Event(nil), got...)
}

func TestClient_DecodesNewlineDelimitedFrames(t *testing.T) {
	payload := `{"type":"RX.DIRECTED","value":"N0CALL: hello"}` + "\n" +
		`{"type":"RX.SPOT","value":""}` + "\n"

	events := collectEvents(t, payload, 2)
	if events[0].Type != EventDirected || events[0].Value != "N0CALL: hello" {
		t.Fatalf("unexpected first event: %+v", events[0])
	}
	if events[1].Type != "RX.SPOT" {
		t.Fatalf("unexpected second event: %+v", events[1])
	}
}

func TestClient_SkipsBadLines(t *testing.T) {
	payload := "{garbage\n" +
		`{"type":"RX.DIRECTED","value":"K1ABC: hi"}` + "\n"

	events := collectEvents(t, payload, 1)
	if events[0].Value != "K1ABC: hi" {
		t.Fatalf("good frame after a bad line was lost: %+v", events[0])
	}
}

func TestClient_DisconnectsOnPeerClose(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		conn.Close()
	}()

	c := NewClient(ln.Addr().String(), 10*time.Millisecond, 4096, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go c.Run(ctx)

	deadline := time.Now().Add(5 * time.Second)
	sawConnected := false
	for time.Now().Before(deadline) {
		if c.Connected() {
			sawConnected = true
		} else if sawConnected {
			return // connected, then dropped back to disconnected
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("client never cycled through connected state (connected=%v)", sawConnected)
}

func TestClient_ConnectFailureIsNotFatal(t *testing.T) {
	// Nothing listens here; the loop must keep retrying until cancelled.
	c := NewClient("127.0.0.1:1", 5*time.Millisecond, 4096, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	if c.Connected() {
		t.Fatalf("client should not be connected")
	}
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatalf("Run did not stop after cancel")
	}
}

func TestClient_CloseIdempotent(t *testing.T) {
	c := NewClient("127.0.0.1:1", time.Millisecond, 16, nil)
	c.Close()
	c.Close()
	if c.Connected() {
		t.Fatalf("closed client reports connected")
	}
}
