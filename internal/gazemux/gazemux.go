// Package gazemux fans composed gaze records out from the single
// processing loop to any number of stream consumers (SSE, websocket,
// persistence).
//
// Each subscriber gets a bounded buffer with a drop-oldest policy: a slow
// consumer loses its oldest records instead of blocking the per-sample
// path, so hardware-read latency stays bounded. Drops are counted per
// subscriber.
package gazemux

import (
	crand "crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/banshee-data/gaze.report/internal/gaze"
)

// DefaultBuffer is the per-subscriber buffer used by Subscribe. At 600 Hz
// it absorbs roughly a second of downstream stall.
const DefaultBuffer = 512

// Mux distributes records from one publisher to many subscribers.
type Mux struct {
	mu          sync.Mutex
	subscribers map[string]*subscriber
	closed      bool
}

type subscriber struct {
	ch      chan gaze.Record
	dropped uint64
}

// New creates an empty mux.
func New() *Mux {
	return &Mux{subscribers: make(map[string]*subscriber)}
}

// randomID generates a random subscriber ID (8 byte random hex encoded value).
func randomID() string {
	b := make([]byte, 8)
	crand.Read(b)
	return hex.EncodeToString(b)
}

// Subscribe creates a new record channel with the given buffer size
// (DefaultBuffer when n <= 0). The returned ID identifies the channel
// when unsubscribing.
func (m *Mux) Subscribe(n int) (string, <-chan gaze.Record) {
	if n <= 0 {
		n = DefaultBuffer
	}
	id := randomID()
	sub := &subscriber{ch: make(chan gaze.Record, n)}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		close(sub.ch)
		return id, sub.ch
	}
	m.subscribers[id] = sub
	return id, sub.ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (m *Mux) Unsubscribe(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sub, ok := m.subscribers[id]; ok {
		close(sub.ch)
		delete(m.subscribers, id)
	}
}

// Publish delivers one record to every subscriber. When a subscriber's
// buffer is full its oldest record is discarded to make room; Publish
// itself never blocks.
func (m *Mux) Publish(rec gaze.Record) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, sub := range m.subscribers {
		select {
		case sub.ch <- rec:
			continue
		default:
		}
		// full: drop the oldest buffered record and retry once
		select {
		case <-sub.ch:
			sub.dropped++
		default:
		}
		select {
		case sub.ch <- rec:
		default:
			sub.dropped++
		}
	}
}

// Dropped returns the per-subscriber drop counts.
func (m *Mux) Dropped() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.subscribers))
	for id, sub := range m.subscribers {
		out[id] = sub.dropped
	}
	return out
}

// Subscribers returns the number of active subscribers.
func (m *Mux) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscribers)
}

// Close closes every subscriber channel. Further Publish calls are
// silently discarded; further Subscribe calls return a closed channel.
func (m *Mux) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	for id, sub := range m.subscribers {
		close(sub.ch)
		delete(m.subscribers, id)
	}
}
