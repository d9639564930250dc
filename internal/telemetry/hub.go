// Package telemetry implements the per-job Telemetry Hub (§4.9): a broker
// that fans out tick/log messages to any number of subscribers, each with
// its own bounded channel. On overflow the oldest buffered message for that
// subscriber is dropped and a "telemetry lag" marker is injected, so one
// slow subscriber never blocks another or the Runner's publish call.
//
// Grounded on five82-spindle/internal/logging/stream.go's StreamHub: where
// that hub keeps one shared ring buffer consulted by polling Fetch calls,
// this one pushes directly into per-subscriber bounded channels, matching
// the spec's push/subscribe contract.
package telemetry

import (
	"sync"
)

// MessageType distinguishes tick snapshots from individual log lines.
type MessageType string

const (
	TypeTick MessageType = "tick"
	TypeLog  MessageType = "log"
)

// Message is published to every current subscriber of a job's hub.
type Message struct {
	Type             MessageType `json:"type"`
	Line             string      `json:"line,omitempty"`
	Progress         int         `json:"progress"`
	StepProgress     float64     `json:"step_progress"`
	TitleProgress    float64     `json:"title_progress"`
	Status           string      `json:"status"`
	StepDescription  string      `json:"step_description"`
	OutputPath       string      `json:"output_path"`
	OutputLocked     bool        `json:"output_locked"`
	Lagged           bool        `json:"lagged,omitempty"`
}

// defaultBufferSize is the per-subscriber channel capacity used when New is
// given a non-positive size.
const defaultBufferSize = 64

// Subscription is a handle to a bounded message queue for one subscriber.
type Subscription struct {
	ch     chan Message
	hub    *Hub
	closed bool
	mu     sync.Mutex
}

// C returns the channel to read messages from. It is closed when the hub
// closes.
func (s *Subscription) C() <-chan Message {
	return s.ch
}

// Unsubscribe removes this subscription from the hub. Safe to call more
// than once.
func (s *Subscription) Unsubscribe() {
	if s.hub != nil {
		s.hub.remove(s)
	}
}

func (s *Subscription) deliver(msg Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.ch <- msg:
		return
	default:
	}

	// Drop the oldest buffered message, then push this one, marking lag
	// (§4.9).
	select {
	case <-s.ch:
	default:
	}
	msg.Lagged = true
	select {
	case s.ch <- msg:
	default:
	}
}

func (s *Subscription) closeLocked() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// Hub is the per-job broker (§4.9).
type Hub struct {
	mu          sync.Mutex
	subscribers map[*Subscription]struct{}
	bufferSize  int
	closed      bool
}

// New constructs a Hub. bufferSize <= 0 uses the default capacity.
func New(bufferSize int) *Hub {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}
	return &Hub{
		subscribers: make(map[*Subscription]struct{}),
		bufferSize:  bufferSize,
	}
}

// Subscribe returns a handle with a bounded channel of messages. Subscribing
// to an already-closed hub returns a handle whose channel is immediately
// closed.
func (h *Hub) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Message, h.bufferSize), hub: h}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		sub.closeLocked()
		return sub
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subscribers, sub)
	h.mu.Unlock()
}

// Publish fans msg out to all current subscribers without blocking.
func (h *Hub) Publish(msg Message) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	subs := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(msg)
	}
}

// Close sends a final tick with the terminal status then closes every
// subscription. Called when the job reaches a terminal state (§4.9).
func (h *Hub) Close(final Message) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.subscribers = make(map[*Subscription]struct{})
	h.mu.Unlock()

	final.Type = TypeTick
	for _, sub := range subs {
		sub.deliver(final)
		sub.closeLocked()
	}
}
