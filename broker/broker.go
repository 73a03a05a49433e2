package broker

import (
	"context"
	"sort"
	"sync"

	"code.curvance.io/curvance/events"
	"code.curvance.io/curvance/logging"
)

// Subscriber receives events pushed through the broker. Types returns the
// event types the subscriber is interested in; nil or a list containing
// events.All subscribes to everything.
//
//go:generate go run github.com/golang/mock/mockgen -destination mocks/subscriber_mock.go -package mocks code.curvance.io/curvance/broker Subscriber
type Subscriber interface {
	Push(evts ...events.Event)
	Types() []events.Type
}

type subscription struct {
	Subscriber
	id int
}

// Broker is a synchronous, in-process event fan-out. Delivery happens in
// subscription order so replaying the same event sequence is deterministic.
type Broker struct {
	ctx context.Context
	log *logging.Logger

	mu     sync.Mutex
	subs   map[int]*subscription
	tSubs  map[events.Type]map[int]*subscription
	nextID int
}

// New creates a new base broker.
func New(ctx context.Context, log *logging.Logger, config Config) (*Broker, error) {
	log = log.Named(namedLogger)
	log.SetLevel(config.Level.Get())

	return &Broker{
		ctx:   ctx,
		log:   log,
		subs:  map[int]*subscription{},
		tSubs: map[events.Type]map[int]*subscription{},
	}, nil
}

// Subscribe registers a subscriber and returns its key for Unsubscribe.
func (b *Broker) Subscribe(s Subscriber) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscription{Subscriber: s, id: b.nextID}
	b.subs[sub.id] = sub

	types := s.Types()
	if len(types) == 0 {
		types = []events.Type{events.All}
	}
	for _, t := range types {
		if _, ok := b.tSubs[t]; !ok {
			b.tSubs[t] = map[int]*subscription{}
		}
		b.tSubs[t][sub.id] = sub
	}
	return sub.id
}

// Unsubscribe removes a subscriber by key, a no-op for unknown keys.
func (b *Broker) Unsubscribe(k int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.subs, k)
	for _, m := range b.tSubs {
		delete(m, k)
	}
}

// Send delivers an event to all matching subscribers.
func (b *Broker) Send(evt events.Event) {
	b.mu.Lock()
	subs := b.matching(evt.Type())
	b.mu.Unlock()

	for _, sub := range subs {
		sub.Push(evt)
	}
}

// SendBatch delivers a batch of events, preserving order per subscriber.
func (b *Broker) SendBatch(evts []events.Event) {
	if len(evts) == 0 {
		return
	}
	for _, evt := range evts {
		b.Send(evt)
	}
}

// matching returns subscribers for a type plus the catch-all ones, sorted
// by subscription key. Caller must hold the lock.
func (b *Broker) matching(t events.Type) []*subscription {
	seen := map[int]*subscription{}
	for id, sub := range b.tSubs[t] {
		seen[id] = sub
	}
	for id, sub := range b.tSubs[events.All] {
		seen[id] = sub
	}
	keys := make([]int, 0, len(seen))
	for id := range seen {
		keys = append(keys, id)
	}
	sort.Ints(keys)
	out := make([]*subscription, 0, len(keys))
	for _, id := range keys {
		out = append(out, seen[id])
	}
	return out
}
