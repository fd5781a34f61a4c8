// Package bridge wires the radio link, the subscription registry, the
// storage engine, and the fan-out dispatcher into the message-forwarding
// core. The mesh-network bot runtime stays external: the bridge consumes
// its send primitive and command-registration surface through the Runtime
// interface and never extends runtime types.
package bridge

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-js8call-bridge/internal/config"
	"github.com/tbourn/go-js8call-bridge/internal/dispatch"
	"github.com/tbourn/go-js8call-bridge/internal/js8call"
	"github.com/tbourn/go-js8call-bridge/internal/metrics"
	"github.com/tbourn/go-js8call-bridge/internal/registry"
	"github.com/tbourn/go-js8call-bridge/internal/report"
	"github.com/tbourn/go-js8call-bridge/internal/store"
)

// Context carries one invocation of a registered command: who sent it, the
// arguments after the command name, and the reply channel back to them.
type Context struct {
	Sender string
	Args   []string
	Reply  func(text string)
}

// Runtime is the capability surface the external mesh bot runtime provides.
// Handler errors are caught and reported by the runtime's own command-error
// handling; they never crash the process.
type Runtime interface {
	// Send delivers text to a mesh destination.
	Send(destination, text string) error

	// Register binds a textual command name to a handler.
	Register(name, description string, adminOnly bool, handler func(Context) error)
}

// Bridge is the core composition. Create with New, then RegisterCommands,
// then Run; Close releases resources in shutdown order.
type Bridge struct {
	cfg        config.Config
	runtime    Runtime
	store      *store.Store
	registry   *registry.Registry
	dispatcher *dispatch.Dispatcher
	reporter   *report.Reporter
	classifier *js8call.Classifier
	client     *js8call.Client
	startTime  time.Time
}

// New opens storage, rebuilds the registry, and assembles the bridge.
// A storage open failure is returned as-is: it is fatal to startup.
func New(cfg config.Config, rt Runtime) (*Bridge, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, err
	}

	users, err := registry.NewUserStore(cfg.UserStore, st)
	if err != nil {
		st.Cleanup()
		return nil, err
	}
	reg := registry.New(cfg.Groups, cfg.UrgentGroups, cfg.DefaultGroups, users)
	if err := reg.Load(); err != nil {
		st.Cleanup()
		return nil, err
	}

	b := &Bridge{
		cfg:        cfg,
		runtime:    rt,
		store:      st,
		registry:   reg,
		dispatcher: dispatch.New(rt, reg.Recipients, cfg.MaxWorkers),
		reporter:   &report.Reporter{Store: st, Users: reg},
		classifier: js8call.NewClassifier(cfg.Groups, cfg.UrgentGroups, cfg.BlockedWords),
		startTime:  time.Now(),
	}
	b.client = js8call.NewClient(
		cfg.JS8Call.Addr(),
		cfg.JS8Call.PollInterval,
		cfg.JS8Call.ReadBuffer,
		b.handleEvent,
	)
	return b, nil
}

// Run drives the radio-link loop until ctx is cancelled. The external
// runtime's command-dispatch loop runs independently; this call only owns
// the radio side.
func (b *Bridge) Run(ctx context.Context) {
	log.Info().Str("addr", b.cfg.JS8Call.Addr()).Msg("bridge: starting radio link")
	b.client.Run(ctx)
}

// Close releases resources: the socket first so no new messages arrive,
// then the dispatcher so in-flight deliveries drain, then storage, which
// must stay usable until the last delivery has been recorded.
func (b *Bridge) Close() {
	b.client.Close()
	b.dispatcher.Close()
	b.store.Cleanup()
}

// handleEvent receives every decoded radio event. Only directed events are
// handled; everything else is ignored silently.
func (b *Bridge) handleEvent(ev js8call.Event) {
	if ev.Type != js8call.EventDirected {
		return
	}

	in, err := b.classifier.Classify(ev.Value)
	switch err {
	case nil:
	case js8call.ErrMalformed:
		metrics.FramesDropped.Inc()
		log.Warn().Str("value", ev.Value).Msg("bridge: invalid directed message format")
		return
	case js8call.ErrBlocked:
		log.Info().Msg("bridge: message contains blocked words, skipping")
		return
	default:
		log.Error().Err(err).Msg("bridge: classify directed message")
		return
	}

	b.forward(in)
}

// forward records an inbound message in its stream and fans it out. When
// the record insert fails the message is not delivered: at-most-once per
// observed line, and the audit log never lags behind deliveries.
func (b *Bridge) forward(in js8call.Inbound) {
	tr := otel.Tracer("bridge")
	_, span := tr.Start(context.Background(), "Forward",
		trace.WithAttributes(
			attribute.String("stream", in.Kind.String()),
			attribute.String("sender", in.Sender),
			attribute.String("group", in.Group),
		),
	)
	defer span.End()

	var (
		rendered string
		target   string
		err      error
	)
	switch in.Kind {
	case js8call.KindGroup:
		rendered = "Group message from " + in.Sender + " to " + in.Group + ": " + in.Body
		target = in.Group
		err = b.store.InsertGroupMessage(in.Sender, in.Group, in.Body)
	case js8call.KindUrgent:
		rendered = "URGENT message from " + in.Sender + " to " + in.Group + ": " + in.Body
		target = in.Group
		err = b.store.InsertUrgentMessage(in.Sender, in.Group, in.Body)
	default:
		rendered = "Direct message from " + in.Sender + ": " + in.Body
		err = b.store.InsertMessage(in.Sender, "DIRECT", in.Body)
	}
	if err != nil {
		log.Error().Err(err).Str("sender", in.Sender).Msg("bridge: record message, dropping delivery")
		return
	}

	n := b.dispatcher.Deliver(rendered, target)
	metrics.MessagesForwarded.WithLabelValues(in.Kind.String()).Inc()
	log.Info().
		Str("stream", in.Kind.String()).
		Str("sender", in.Sender).
		Str("group", in.Group).
		Int("recipients", n).
		Msg("bridge: forwarded message")
}
