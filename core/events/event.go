package events

// Event represents a structured state change emitted by the settlement core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (indexers, metrics,
// host transports).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is the default for ledgers that have not been wired to a subscriber.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
