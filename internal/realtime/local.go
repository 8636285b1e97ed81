package realtime

import (
	"slices"
	"strings"
	"sync"
)

// LocalBus is an in-process Bus used when no NATS server is configured. Publish delivers
// synchronously, so every subscriber sees events in publish order.
type LocalBus struct {
	mu   sync.RWMutex
	next int
	subs map[int]localSub
}

type localSub struct {
	pattern string
	handler func(subject string, data []byte)
}

// NewLocalBus creates an empty in-process bus.
func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[int]localSub)}
}

// Publish delivers data to every matching subscriber.
func (b *LocalBus) Publish(subject string, data []byte) error {
	b.mu.RLock()
	ids := make([]int, 0, len(b.subs))
	for id, s := range b.subs {
		if subjectMatches(s.pattern, subject) {
			ids = append(ids, id)
		}
	}
	b.mu.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		b.mu.RLock()
		s, ok := b.subs[id]
		b.mu.RUnlock()
		if ok {
			s.handler(subject, data)
		}
	}
	return nil
}

// Subscribe registers handler for a subject pattern using NATS wildcard rules.
func (b *LocalBus) Subscribe(subject string, handler func(subject string, data []byte)) (func() error, error) {
	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = localSub{pattern: subject, handler: handler}
	b.mu.Unlock()

	return func() error {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
		return nil
	}, nil
}

// subjectMatches applies NATS token matching: "*" matches one token, ">" the rest.
func subjectMatches(pattern, subject string) bool {
	pt := strings.Split(pattern, ".")
	st := strings.Split(subject, ".")
	for i, p := range pt {
		if p == ">" {
			return len(st) > i
		}
		if i >= len(st) {
			return false
		}
		if p != "*" && p != st[i] {
			return false
		}
	}
	return len(pt) == len(st)
}
