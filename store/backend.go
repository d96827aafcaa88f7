package store

// Mutation describes a single key change. A nil Value clears the key.
type Mutation struct {
	Key   string
	Value *string
}

// Event is the change notification delivered to subscribers of other
// contexts. OldValue/NewValue are nil when the key was absent before or
// after the change respectively. Origin identifies the Store that made the
// change; it is empty for changes observed from outside the process.
type Event struct {
	Key      string
	OldValue *string
	NewValue *string
	Origin   string
}

// Cleared reports whether the event describes a key removal.
func (e Event) Cleared() bool {
	return e.NewValue == nil
}

// Backend is the shared storage substrate behind one or more Stores. Apply
// performs all mutations atomically under a single lock and then publishes
// one event per changed key; events from a batch are delivered back-to-back
// after every mutation in the batch has landed.
type Backend interface {
	Get(key string) (string, bool)
	Apply(origin string, muts []Mutation) error
	Subscribe(origin string, keys []string, fn func(Event)) (unsubscribe func())
}
