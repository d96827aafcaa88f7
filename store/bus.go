package store

import "sync"

type subscriber struct {
	origin string
	keys   map[string]struct{}
	fn     func(Event)
}

// changeBus fans change events out to subscribers. A subscriber never
// receives events published under its own origin, which is what keeps a tab
// from reacting to its own writes.
type changeBus struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]*subscriber
}

func (b *changeBus) subscribe(origin string, keys []string, fn func(Event)) func() {
	keySet := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		keySet[k] = struct{}{}
	}

	b.mu.Lock()
	if b.subs == nil {
		b.subs = make(map[int]*subscriber)
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = &subscriber{origin: origin, keys: keySet, fn: fn}
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.subs, id)
		b.mu.Unlock()
	}
}

// publish delivers events synchronously. Callbacks run outside the backend
// data lock so they may read or mutate the store.
func (b *changeBus) publish(events []Event) {
	b.mu.Lock()
	targets := make([]*subscriber, 0, len(b.subs))
	for _, sub := range b.subs {
		targets = append(targets, sub)
	}
	b.mu.Unlock()

	for _, ev := range events {
		for _, sub := range targets {
			if ev.Origin != "" && sub.origin == ev.Origin {
				continue
			}
			if len(sub.keys) > 0 {
				if _, ok := sub.keys[ev.Key]; !ok {
					continue
				}
			}
			sub.fn(ev)
		}
	}
}
