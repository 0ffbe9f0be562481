// Package coordinator correlates requests published on the world, visual and
// camera channels with the responses their services send back.
//
// Each channel holds at most one outstanding request. Send registers it and
// publishes; Await blocks until the bus delivers the matching response, the
// deadline passes, or the context is cancelled. Whatever ends the wait, the
// record is cleared, so a response arriving later is recognised as stale by
// its id and dropped.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/specialistvlad/scenegrid/internal/bus"
	"github.com/specialistvlad/scenegrid/internal/ctxlog"
	"github.com/specialistvlad/scenegrid/internal/msgs"
)

var (
	// ErrOutstanding is returned by Send when the channel already has an
	// unacknowledged request.
	ErrOutstanding = errors.New("request already outstanding on channel")
	// ErrNoPending is returned by Await when nothing was sent on the channel.
	ErrNoPending = errors.New("no request pending on channel")
	// ErrTimeout matches every *TimeoutError.
	ErrTimeout = errors.New("request timed out")
)

// TimeoutError reports a request that was not acknowledged in time.
type TimeoutError struct {
	Channel   msgs.Channel
	RequestID uint64
	After     time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s request %d not acknowledged within %s", e.Channel, e.RequestID, e.After)
}

func (e *TimeoutError) Unwrap() error { return ErrTimeout }

// Response is an acknowledgment delivered by a service.
type Response struct {
	Channel msgs.Channel
	ID      uint64
	Type    string
	Body    []byte
}

// Decode unmarshals the full response body into v.
func (r Response) Decode(v any) error {
	return msgs.Decode(r.Body, v)
}

type pending struct {
	id   uint64
	req  msgs.Request
	done chan Response
}

type slot struct {
	mu      sync.Mutex
	pending *pending
}

// Coordinator owns the per-channel request state. Send and Await are meant to
// be called from a single goroutine; the bus callback is the only other
// goroutine touching a slot.
type Coordinator struct {
	bus     bus.Bus
	topics  msgs.Topics
	timeout time.Duration
	logger  *slog.Logger

	nextID atomic.Uint64
	slots  map[msgs.Channel]*slot
}

// New subscribes to the response topic of every channel. timeout is the
// bound Do applies; zero or negative waits without a bound.
func New(ctx context.Context, b bus.Bus, topics msgs.Topics, timeout time.Duration) (*Coordinator, error) {
	c := &Coordinator{
		bus:     b,
		topics:  topics,
		timeout: timeout,
		logger:  ctxlog.FromContext(ctx).With("component", "coordinator"),
		slots:   make(map[msgs.Channel]*slot),
	}

	for _, ch := range msgs.Channels() {
		c.slots[ch] = &slot{}
		if err := b.Subscribe(topics.Response(ch), c.handler(ch)); err != nil {
			return nil, fmt.Errorf("subscribing to %s responses: %w", ch, err)
		}
	}
	return c, nil
}

// Timeout returns the bound Do applies.
func (c *Coordinator) Timeout() time.Duration {
	return c.timeout
}

// Send assigns req an id, registers it as the channel's pending request and
// publishes it.
func (c *Coordinator) Send(ctx context.Context, req msgs.Request) (uint64, error) {
	ch := req.Channel()
	s := c.slots[ch]

	s.mu.Lock()
	if s.pending != nil {
		id := s.pending.id
		s.mu.Unlock()
		return 0, fmt.Errorf("%s request %d: %w", ch, id, ErrOutstanding)
	}
	id := c.nextID.Add(1)
	req.SetID(id)
	payload, err := msgs.Encode(req)
	if err != nil {
		s.mu.Unlock()
		return 0, err
	}
	p := &pending{id: id, req: req, done: make(chan Response, 1)}
	s.pending = p
	s.mu.Unlock()

	topic := c.topics.Request(ch)
	c.logger.Debug("Sending request", "channel", ch, "request_id", id, "topic", topic)
	if err := c.bus.Publish(ctx, topic, payload); err != nil {
		c.clear(s, p)
		return 0, fmt.Errorf("publishing %s request %d: %w", ch, id, err)
	}
	return id, nil
}

// Await blocks until the pending request on ch is acknowledged. A timeout of
// zero or less waits without a bound; ctx cancellation still ends the wait.
func (c *Coordinator) Await(ctx context.Context, ch msgs.Channel, timeout time.Duration) (Response, error) {
	s := c.slots[ch]
	s.mu.Lock()
	p := s.pending
	s.mu.Unlock()
	if p == nil {
		return Response{}, fmt.Errorf("%s: %w", ch, ErrNoPending)
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case resp := <-p.done:
		c.clear(s, p)
		return resp, nil
	case <-deadline:
		if resp, ok := c.clear(s, p); ok {
			return resp, nil
		}
		c.logger.Warn("Request timed out", "channel", ch, "request_id", p.id, "after", timeout)
		return Response{}, &TimeoutError{Channel: ch, RequestID: p.id, After: timeout}
	case <-ctx.Done():
		if resp, ok := c.clear(s, p); ok {
			return resp, nil
		}
		return Response{}, ctx.Err()
	}
}

// Do sends req and waits for its acknowledgment with the default timeout.
func (c *Coordinator) Do(ctx context.Context, req msgs.Request) (Response, error) {
	if _, err := c.Send(ctx, req); err != nil {
		return Response{}, err
	}
	return c.Await(ctx, req.Channel(), c.timeout)
}

// clear drops p from its slot. A response delivered just before the slot was
// cleared is returned so it is not lost.
func (c *Coordinator) clear(s *slot, p *pending) (Response, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == p {
		s.pending = nil
	}
	select {
	case resp := <-p.done:
		return resp, true
	default:
		return Response{}, false
	}
}

func (c *Coordinator) handler(ch msgs.Channel) bus.Handler {
	s := c.slots[ch]
	return func(topic string, payload []byte) {
		h, err := msgs.DecodeHeader(payload)
		if err != nil {
			c.logger.Debug("Dropping malformed response", "channel", ch, "topic", topic, "error", err)
			return
		}

		s.mu.Lock()
		defer s.mu.Unlock()

		// A response without an id belongs to the one outstanding request.
		p := s.pending
		switch {
		case p == nil || (h.ID != 0 && p.id != h.ID):
			c.logger.Debug("Dropping stale response", "channel", ch, "request_id", h.ID, "type", h.Type)
			return
		case !p.req.Accepts(h.Type):
			c.logger.Debug("Dropping response with unexpected type", "channel", ch, "request_id", h.ID, "type", h.Type)
			return
		}

		select {
		case p.done <- Response{Channel: ch, ID: p.id, Type: h.Type, Body: payload}:
			c.logger.Debug("Response received", "channel", ch, "request_id", p.id, "type", h.Type)
		default:
			c.logger.Debug("Dropping duplicate response", "channel", ch, "request_id", h.ID)
		}
	}
}
