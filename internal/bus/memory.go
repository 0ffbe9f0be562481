package bus

import (
	"context"
	"sync"
)

// Memory is an in-process bus. Each delivery runs on its own goroutine.
type Memory struct {
	mu     sync.RWMutex
	subs   map[string][]Handler
	closed bool
	wg     sync.WaitGroup
}

// NewMemory returns an empty in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[string][]Handler)}
}

// Publish delivers payload to every subscriber of topic. It does not wait
// for the handlers to return.
func (m *Memory) Publish(ctx context.Context, topic string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}

	for _, h := range m.subs[topic] {
		msg := append([]byte(nil), payload...)
		m.wg.Add(1)
		go func(h Handler) {
			defer m.wg.Done()
			h(topic, msg)
		}(h)
	}
	return nil
}

// Subscribe registers h for topic.
func (m *Memory) Subscribe(topic string, h Handler) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.subs[topic] = append(m.subs[topic], h)
	return nil
}

// Close rejects further publishes and waits for in-flight deliveries.
func (m *Memory) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
	return nil
}
