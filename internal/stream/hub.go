// Package stream provides replay-latest broadcast hubs. A late subscriber
// immediately receives the most recent value; slow subscribers skip
// intermediate values instead of blocking the producer.
package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"
)

// mirrorTimeout bounds a single Forward call
const mirrorTimeout = 2 * time.Second

// Mirror forwards published values outside the process
type Mirror interface {
	Forward(ctx context.Context, payload []byte) error
}

// Hub is a single-producer, multi-consumer channel that caches the last value
type Hub[T any] struct {
	name    string
	mu      sync.RWMutex
	latest  T
	has     bool
	clients map[*Subscription[T]]struct{}

	mirror    Mirror
	outbox    chan []byte // newest unforwarded payload
	stop      chan struct{}
	closeOnce sync.Once
}

// Subscription receives values from a Hub on C
type Subscription[T any] struct {
	C   <-chan T
	ch  chan T
	hub *Hub[T]
}

// NewHub creates a hub; mirror may be nil. The mirror runs on its own
// goroutine and, like a subscriber, only ever sees the newest value.
func NewHub[T any](name string, mirror Mirror) *Hub[T] {
	h := &Hub[T]{
		name:    name,
		clients: map[*Subscription[T]]struct{}{},
		mirror:  mirror,
		outbox:  make(chan []byte, 1),
		stop:    make(chan struct{}),
	}
	if mirror != nil {
		go h.forward()
	}
	return h
}

// Close stops forwarding to the mirror. Local subscribers are unaffected.
func (h *Hub[T]) Close() {
	h.closeOnce.Do(func() {
		close(h.stop)
	})
}

// Seed sets the cached value without notifying anyone
func (h *Hub[T]) Seed(v T) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = v
	h.has = true
}

// Publish caches v and offers it to every subscriber and the mirror
func (h *Hub[T]) Publish(v T) {
	var payload []byte
	if h.mirror != nil {
		var err error
		if payload, err = json.Marshal(v); err != nil {
			log.Printf("[Hub:%s] marshal error: %v", h.name, err)
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.latest = v
	h.has = true
	for client := range h.clients {
		client.offer(v)
	}
	if payload != nil {
		keepNewest(h.outbox, payload)
	}
}

func (h *Hub[T]) forward() {
	for {
		select {
		case payload := <-h.outbox:
			ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
			err := h.mirror.Forward(ctx, payload)
			cancel()
			if err != nil {
				log.Printf("[Hub:%s] mirror error: %v", h.name, err)
			}
		case <-h.stop:
			return
		}
	}
}

// Latest returns the cached value, if any
func (h *Hub[T]) Latest() (T, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.latest, h.has
}

// Subscribe registers a new consumer and replays the cached value to it
func (h *Hub[T]) Subscribe() *Subscription[T] {
	ch := make(chan T, 1)
	sub := &Subscription[T]{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.has {
		ch <- h.latest
	}
	h.clients[sub] = struct{}{}
	return sub
}

func (h *Hub[T]) subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close unregisters the subscription and closes C
func (s *Subscription[T]) Close() {
	h := s.hub
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[s]; !ok {
		return
	}
	delete(h.clients, s)
	close(s.ch)
}

// offer replaces any unread value with v. Caller holds the hub lock.
func (s *Subscription[T]) offer(v T) {
	keepNewest(s.ch, v)
}

// keepNewest puts v into a one-slot channel, dropping the unread value if full
func keepNewest[T any](ch chan T, v T) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}
