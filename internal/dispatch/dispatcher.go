// Package dispatch implements the fan-out delivery engine: one rendered
// message goes out to many independent recipients through the external send
// primitive. Deliveries run on a bounded worker pool shared across the
// process; a call to Deliver blocks until the whole batch has finished, so
// forwarding stays synchronous from the radio link's perspective.
package dispatch

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-js8call-bridge/internal/metrics"
)

// Sender is the external mesh-network send primitive. Implementations own
// their error reporting; the dispatcher only isolates and counts failures.
type Sender interface {
	Send(destination, text string) error
}

// Dispatcher fans a message out to eligible recipients. The recipients
// function is consulted per batch; an empty group means a broadcast.
type Dispatcher struct {
	sender     Sender
	recipients func(group string) []string

	// slots bounds concurrent deliveries process-wide. Units acquire a
	// slot inside their goroutine, so batch submission never blocks.
	slots chan struct{}

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup
}

// New builds a dispatcher delivering through sender, choosing recipients via
// the given function, with at most maxWorkers concurrent deliveries.
func New(sender Sender, recipients func(group string) []string, maxWorkers int) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Dispatcher{
		sender:     sender,
		recipients: recipients,
		slots:      make(chan struct{}, maxWorkers),
	}
}

// Deliver sends text to every eligible recipient and returns once every
// delivery in the batch has completed, success or failure. One failed send
// never prevents delivery to the remaining recipients. The return value is
// the number of recipients the batch was submitted to.
func (d *Dispatcher) Deliver(text, group string) int {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		log.Warn().Msg("dispatch: deliver after close dropped")
		return 0
	}
	users := d.recipients(group)
	d.inflight.Add(len(users))
	d.mu.Unlock()

	if len(users) == 0 {
		return 0
	}

	batch := uuid.NewString()
	var failures int64
	var failMu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(len(users))

	for _, user := range users {
		go func(user string) {
			defer wg.Done()
			defer d.inflight.Done()

			d.slots <- struct{}{}
			defer func() { <-d.slots }()

			metrics.Deliveries.Inc()
			if err := d.sender.Send(user, text); err != nil {
				metrics.DeliveryFailures.Inc()
				failMu.Lock()
				failures++
				failMu.Unlock()
			}
		}(user)
	}
	wg.Wait()

	log.Debug().
		Str("batch", batch).
		Str("group", group).
		Int("recipients", len(users)).
		Int64("failures", failures).
		Msg("dispatch: batch complete")
	return len(users)
}

// Close stops accepting new batches and waits for in-flight deliveries to
// finish. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	already := d.closed
	d.closed = true
	d.mu.Unlock()
	if already {
		return
	}
	d.inflight.Wait()
}
