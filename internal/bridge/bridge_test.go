package bridge

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tbourn/go-js8call-bridge/internal/config"
	"github.com/tbourn/go-js8call-bridge/internal/js8call"
)

// fakeRuntime records registered commands and delivered messages.
type fakeRuntime struct {
	mu       sync.Mutex
	commands map[string]registered
	sent     []sentMessage
}

type registered struct {
	description string
	adminOnly   bool
	handler     func(Context) error
}

type sentMessage struct {
	destination string
	text        string
}

func newFakeRuntime() *fakeRuntime {
	return &fakeRuntime{commands: map[string]registered{}}
}

func (f *fakeRuntime) Send(destination, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{destination, text})
	return nil
}

func (f *fakeRuntime) Register(name, description string, adminOnly bool, handler func(Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.commands[name] = registered{description, adminOnly, handler}
}

func (f *fakeRuntime) deliveries() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]sentMessage(nil), f.sent...)
}

// invoke runs a registered command and returns the reply text.
func (f *fakeRuntime) invoke(t *testing.T, name, sender string, args ...string) string {
	t.Helper()

	f.mu.Lock()
	cmd, ok := f.commands[name]
	f.mu.Unlock()
	if !ok {
		t.Fatalf("command %q not registered", name)
	}

	var reply string
	err := cmd.handler(Context{Sender: sender, Args: args, Reply: func(text string) { reply = text }})
	if err != nil {
		t.Fatalf("command %q: %v", name, err)
	}
	return reply
}

func newTestBridge(t *testing.T) (*Bridge, *fakeRuntime) {
	t.Helper()

	cfg := config.Config{
		JS8Call: config.JS8CallConfig{
			Host:         "localhost",
			Port:         2442,
			PollInterval: time.Second,
			ReadBuffer:   4096,
		},
		Groups:       []string{"GROUPA", "GROUPB"},
		UrgentGroups: []string{"EMERG"},
		BlockedWords: []string{"spam"},
		DBPath:       filepath.Join(t.TempDir(), fmt.Sprintf("bridge_test_%d.db", time.Now().UnixNano())),
		UserStore:    config.UserStoreBlob,
		MaxWorkers:   2,
	}

	rt := newFakeRuntime()
	b, err := New(cfg, rt)
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}
	t.Cleanup(b.Close)
	b.RegisterCommands()
	return b, rt
}

func TestRegisterCommands_Surface(t *testing.T) {
	_, rt := newTestBridge(t)

	names := []string{
		"add", "remove", "groups", "join", "leave", "mute", "unmute",
		"help", "showlog", "stats", "info", "analytics",
	}
	for _, n := range names {
		if _, ok := rt.commands[n]; !ok {
			t.Fatalf("command %q not registered", n)
		}
	}
	if len(rt.commands) != len(names) {
		t.Fatalf("expected %d commands, got %d", len(names), len(rt.commands))
	}
	if !rt.commands["add"].adminOnly || !rt.commands["remove"].adminOnly {
		t.Fatalf("add and remove must be admin only")
	}
	if rt.commands["join"].adminOnly {
		t.Fatalf("join must not be admin only")
	}
}

func TestCommands_JoinLifecycle(t *testing.T) {
	_, rt := newTestBridge(t)

	reply := rt.invoke(t, "add", "user1")
	if !strings.HasPrefix(reply, "You have been added to the JS8Call message group") {
		t.Fatalf("unexpected add reply: %q", reply)
	}

	reply = rt.invoke(t, "join", "user1", "GROUPA", "EMERG")
	if reply != "You have been added to the following groups: GROUPA, EMERG" {
		t.Fatalf("unexpected join reply: %q", reply)
	}

	reply = rt.invoke(t, "groups", "user1")
	if !strings.Contains(reply, "GROUPA [Subscribed]") || !strings.Contains(reply, "GROUPB [Not subscribed]") {
		t.Fatalf("unexpected groups reply: %q", reply)
	}

	reply = rt.invoke(t, "remove", "user1")
	if reply != "You have been removed from the JS8Call message group and all groups." {
		t.Fatalf("unexpected remove reply: %q", reply)
	}
}

func TestCommands_UsageReplies(t *testing.T) {
	_, rt := newTestBridge(t)

	cases := map[string]string{
		"join":   "Usage: /join <group1> <group2> ...",
		"leave":  "Usage: /leave <group>",
		"mute":   "Usage: /mute <group1> <group2> ... or ALL",
		"unmute": "Usage: /unmute <group1> <group2> ... or ALL",
	}
	for name, want := range cases {
		if got := rt.invoke(t, name, "user1"); got != want {
			t.Fatalf("%s usage: got %q, want %q", name, got, want)
		}
	}

	if got := rt.invoke(t, "showlog", "user1", "abc"); got != "Usage: /showlog <number>" {
		t.Fatalf("showlog usage: %q", got)
	}
	if got := rt.invoke(t, "showlog", "user1", "0"); got != "Usage: /showlog <number>" {
		t.Fatalf("showlog zero: %q", got)
	}
}

func TestCommands_Help(t *testing.T) {
	_, rt := newTestBridge(t)

	reply := rt.invoke(t, "help", "user1")
	if !strings.HasPrefix(reply, "Available commands:\n") {
		t.Fatalf("unexpected help header: %q", reply)
	}
	if !strings.Contains(reply, "Configured JS8Call groups:\nGROUPA, GROUPB") {
		t.Fatalf("help missing ordinary catalog: %q", reply)
	}
	if !strings.Contains(reply, "Configured URGENT groups:\nEMERG") {
		t.Fatalf("help missing urgent catalog: %q", reply)
	}
}

func TestCommands_Info(t *testing.T) {
	b, rt := newTestBridge(t)

	reply := rt.invoke(t, "info", "user1")
	if !strings.HasPrefix(reply, "Bot uptime: ") {
		t.Fatalf("unexpected info reply: %q", reply)
	}
	if !strings.Contains(reply, "No additional info available") {
		t.Fatalf("expected empty-info notice: %q", reply)
	}

	b.cfg.BotLocation = "JN48"
	b.cfg.NodeOperator = "DL1ABC"
	reply = rt.invoke(t, "info", "user1")
	if !strings.Contains(reply, "Location: JN48\n") || !strings.Contains(reply, "Node operator: DL1ABC\n") {
		t.Fatalf("operator details missing: %q", reply)
	}
}

func TestCommands_StatsAndAnalytics(t *testing.T) {
	_, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")

	reply := rt.invoke(t, "stats", "user1")
	if reply != "Current users: 1\n" {
		t.Fatalf("unexpected stats reply: %q", reply)
	}

	// Unknown periods degrade to the plain view.
	reply = rt.invoke(t, "stats", "user1", "year")
	if reply != "Current users: 1\n" {
		t.Fatalf("unexpected stats reply for bad period: %q", reply)
	}

	reply = rt.invoke(t, "analytics", "user1")
	if !strings.HasPrefix(reply, "Usage Statistics:\n") {
		t.Fatalf("unexpected analytics reply: %q", reply)
	}
}

func TestHandleEvent_IgnoresOtherTypes(t *testing.T) {
	b, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")

	b.handleEvent(js8call.Event{Type: "RX.SPOT", Value: "N0CALL: hello"})
	if len(rt.deliveries()) != 0 {
		t.Fatalf("non-directed events must not forward: %v", rt.deliveries())
	}
}

func TestHandleEvent_MalformedAndBlocked(t *testing.T) {
	b, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")

	b.handleEvent(js8call.Event{Type: js8call.EventDirected, Value: "no separator here"})
	b.handleEvent(js8call.Event{Type: js8call.EventDirected, Value: "N0CALL: buy SPAM now"})
	if len(rt.deliveries()) != 0 {
		t.Fatalf("dropped messages must not forward: %v", rt.deliveries())
	}
}

func TestHandleEvent_DirectBroadcast(t *testing.T) {
	b, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")
	rt.invoke(t, "add", "user2")

	b.handleEvent(js8call.Event{Type: js8call.EventDirected, Value: "N0CALL: hello everyone"})

	got := rt.deliveries()
	if len(got) != 2 {
		t.Fatalf("expected broadcast to 2 users, got %v", got)
	}
	for _, m := range got {
		if m.text != "Direct message from N0CALL: hello everyone" {
			t.Fatalf("unexpected rendering: %q", m.text)
		}
	}

	// Recorded in the direct stream.
	reply := rt.invoke(t, "analytics", "user1")
	if !strings.Contains(reply, "Total direct messages: 1\n") {
		t.Fatalf("direct message not recorded: %q", reply)
	}
}

func TestHandleEvent_GroupRespectsSubscriptionsAndMutes(t *testing.T) {
	b, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")
	rt.invoke(t, "add", "user2")
	rt.invoke(t, "add", "user3")
	rt.invoke(t, "join", "user1", "GROUPA")
	rt.invoke(t, "join", "user3", "GROUPA")
	rt.invoke(t, "mute", "user3", "GROUPA")

	b.handleEvent(js8call.Event{Type: js8call.EventDirected, Value: "N0CALL: GROUPA net tonight"})

	got := rt.deliveries()
	if len(got) != 1 || got[0].destination != "user1" {
		t.Fatalf("expected delivery to user1 only, got %v", got)
	}
	if got[0].text != "Group message from N0CALL to GROUPA: net tonight" {
		t.Fatalf("unexpected rendering: %q", got[0].text)
	}
}

func TestHandleEvent_Urgent(t *testing.T) {
	b, rt := newTestBridge(t)
	rt.invoke(t, "add", "user1")
	rt.invoke(t, "join", "user1", "EMERG")

	b.handleEvent(js8call.Event{Type: js8call.EventDirected, Value: "K1ABC: EMERG need relay"})

	got := rt.deliveries()
	if len(got) != 1 {
		t.Fatalf("expected one delivery, got %v", got)
	}
	if got[0].text != "URGENT message from K1ABC to EMERG: need relay" {
		t.Fatalf("unexpected rendering: %q", got[0].text)
	}

	reply := rt.invoke(t, "showlog", "user1", "5")
	if !strings.Contains(reply, "From K1ABC to EMERG: need relay") {
		t.Fatalf("urgent message missing from log: %q", reply)
	}
}

func TestNew_InvalidUserStoreStrategy(t *testing.T) {
	cfg := config.Config{
		DBPath:    filepath.Join(t.TempDir(), "x.db"),
		UserStore: "csv",
	}
	if _, err := New(cfg, newFakeRuntime()); err == nil {
		t.Fatalf("expected strategy error")
	}
}
