package store

import "sync"

var _ Backend = (*MemoryBackend)(nil)

// MemoryBackend keeps the shared state in a map. It backs tests and
// single-process deployments; multiple Stores attached to the same
// MemoryBackend behave like same-origin tabs.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]string
	bus  changeBus
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]string)}
}

func (mb *MemoryBackend) Get(key string) (string, bool) {
	mb.mu.RLock()
	defer mb.mu.RUnlock()
	v, ok := mb.data[key]
	return v, ok
}

func (mb *MemoryBackend) Apply(origin string, muts []Mutation) error {
	mb.mu.Lock()
	events := applyToMap(mb.data, origin, muts)
	mb.mu.Unlock()

	mb.bus.publish(events)
	return nil
}

func (mb *MemoryBackend) Subscribe(origin string, keys []string, fn func(Event)) func() {
	return mb.bus.subscribe(origin, keys, fn)
}

// applyToMap mutates data in place and returns one event per key that
// actually changed. Clearing an absent key produces no event.
func applyToMap(data map[string]string, origin string, muts []Mutation) []Event {
	events := make([]Event, 0, len(muts))
	for _, m := range muts {
		old, had := data[m.Key]
		ev := Event{Key: m.Key, Origin: origin}
		if had {
			oldCopy := old
			ev.OldValue = &oldCopy
		}
		if m.Value == nil {
			if !had {
				continue
			}
			delete(data, m.Key)
		} else {
			if had && old == *m.Value {
				continue
			}
			newCopy := *m.Value
			data[m.Key] = newCopy
			ev.NewValue = &newCopy
		}
		events = append(events, ev)
	}
	return events
}
