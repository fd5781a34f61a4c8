// Package js8call implements the radio side of the bridge: the TCP client
// for the JS8Call API and the classifier that turns directed events into
// routable messages.
package js8call

import (
	"errors"
	"strings"
)

// EventDirected is the only JS8Call event type the bridge handles. All
// other event types are read and silently ignored.
const EventDirected = "RX.DIRECTED"

// Event is one newline-delimited JSON frame from the JS8Call API.
type Event struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Kind identifies which message stream an inbound directed message belongs
// to.
type Kind int

const (
	KindDirect Kind = iota
	KindGroup
	KindUrgent
)

// String returns the stream name used in logs and metric labels.
func (k Kind) String() string {
	switch k {
	case KindGroup:
		return "group"
	case KindUrgent:
		return "urgent"
	default:
		return "direct"
	}
}

// Inbound is a classified directed message. Group is empty for direct
// traffic.
type Inbound struct {
	Kind   Kind
	Sender string
	Group  string
	Body   string
}

// Classification drop reasons.
var (
	// ErrMalformed means the directed value had no sender/content split.
	ErrMalformed = errors.New("malformed directed value")

	// ErrBlocked means the content matched a blocked word.
	ErrBlocked = errors.New("content contains blocked word")
)

// Classifier routes directed-event values onto the three message streams.
// Catalog order is preserved from configuration: prefix matching tries
// ordinary groups first, then urgent groups, first match wins.
type Classifier struct {
	ordinary []string
	urgent   []string
	blocked  []string
}

// NewClassifier builds a classifier over the configured catalogs and
// blocked-word list.
func NewClassifier(ordinary, urgent, blocked []string) *Classifier {
	return &Classifier{
		ordinary: append([]string(nil), ordinary...),
		urgent:   append([]string(nil), urgent...),
		blocked:  append([]string(nil), blocked...),
	}
}

// Classify splits a directed value into sender and content and routes it.
//
// The value must split on ":" into at least two parts; the sender is the
// first part, the content the remainder rejoined on ":". Content containing
// a blocked word (case-insensitive substring, anywhere) is dropped. A
// leading ordinary or urgent group name routes the remainder to that group.
//
// Group matching is a plain case-sensitive prefix test against the trimmed
// content, not a token match: a group named "A" matches both "A foo" and
// "ABC". That ambiguity is long-standing observed behavior and is kept.
func (c *Classifier) Classify(value string) (Inbound, error) {
	parts := strings.Split(value, ":")
	if len(parts) < 2 {
		return Inbound{}, ErrMalformed
	}
	sender := strings.TrimSpace(parts[0])
	content := strings.TrimSpace(strings.Join(parts[1:], ":"))

	lower := strings.ToLower(content)
	for _, w := range c.blocked {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			return Inbound{}, ErrBlocked
		}
	}

	for _, g := range c.ordinary {
		if g != "" && strings.HasPrefix(content, g) {
			return Inbound{
				Kind:   KindGroup,
				Sender: sender,
				Group:  g,
				Body:   strings.TrimSpace(content[len(g):]),
			}, nil
		}
	}
	for _, g := range c.urgent {
		if g != "" && strings.HasPrefix(content, g) {
			return Inbound{
				Kind:   KindUrgent,
				Sender: sender,
				Group:  g,
				Body:   strings.TrimSpace(content[len(g):]),
			}, nil
		}
	}

	return Inbound{Kind: KindDirect, Sender: sender, Body: content}, nil
}
