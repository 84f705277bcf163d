package engine

import (
	"sync"

	"github.com/google/uuid"

	"github.com/onnwee/linkline/telemetry"
)

// EventType names the state-change notifications produced for consumers.
type EventType string

const (
	EventStatus         EventType = "status-update"
	EventQueueChanged   EventType = "queue-changed"
	EventActiveLink     EventType = "active-link-changed"
	EventBanList        EventType = "ban-list-changed"
	EventQueueEmpty     EventType = "queue-empty"
	EventYouTubeWarning EventType = "youtube-warning"
)

// Event is one state-change notification. Only the fields relevant to the
// Type are populated; Payload returns the wire representation.
type Event struct {
	Type      EventType
	Channel   string
	Queue     []Candidate
	Active    *Candidate
	Bans      []string
	Candidate *Candidate
}

// Payload returns the JSON-serializable body for this event.
func (e Event) Payload() any {
	switch e.Type {
	case EventStatus:
		return map[string]string{"channel": e.Channel}
	case EventQueueChanged:
		if e.Queue == nil {
			return []Candidate{}
		}
		return e.Queue
	case EventActiveLink:
		return e.Active
	case EventBanList:
		if e.Bans == nil {
			return []string{}
		}
		return e.Bans
	case EventYouTubeWarning:
		return e.Candidate
	}
	return struct{}{}
}

// Snapshot is the complete consumer-visible state, emitted as four events on
// attach and on resync.
type Snapshot struct {
	Channel string
	Intake  bool
	Queue   []Candidate
	Active  *Candidate
	Bans    []string
}

// events renders the snapshot as the ordered event sequence a consumer must
// receive before any incremental event.
func (s Snapshot) events() []Event {
	return []Event{
		{Type: EventStatus, Channel: s.Channel},
		{Type: EventQueueChanged, Queue: s.Queue},
		{Type: EventActiveLink, Active: s.Active},
		{Type: EventBanList, Bans: s.Bans},
	}
}

type subscriber struct {
	ch         chan Event
	needResync bool
}

// Broadcaster fans state-change events out to attached consumers. It holds
// no authoritative state: snapshots are sourced from the engine at attach
// and resync time. Delivery per consumer is a bounded buffer; a stalled
// consumer has events dropped and receives a fresh snapshot once its buffer
// drains, so others are never blocked.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[string]*subscriber
	buffer int
}

// NewBroadcaster returns a broadcaster whose consumers each get a delivery
// buffer of the given size (minimum 8, so a snapshot always fits).
func NewBroadcaster(buffer int) *Broadcaster {
	if buffer < 8 {
		buffer = 8
	}
	return &Broadcaster{subs: make(map[string]*subscriber), buffer: buffer}
}

// Attach registers a consumer and preloads its channel with the snapshot.
// The returned channel is closed on Detach.
func (b *Broadcaster) Attach(snap Snapshot) (string, <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.New().String()
	sub := &subscriber{ch: make(chan Event, b.buffer)}
	for _, ev := range snap.events() {
		sub.ch <- ev
	}
	b.subs[id] = sub
	telemetry.SetConsumers(len(b.subs))
	return id, sub.ch
}

// Detach removes a consumer and closes its channel. Unknown ids are a no-op.
func (b *Broadcaster) Detach(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sub, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(sub.ch)
	telemetry.SetConsumers(len(b.subs))
}

// Publish delivers ev to every consumer in emission order. A consumer whose
// buffer is full has the event dropped and is flagged for resync; once its
// buffer has room again, snapshot (called lazily) is injected before further
// incremental events.
func (b *Broadcaster) Publish(ev Event, snapshot func() Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	var snapEvents []Event
	for _, sub := range b.subs {
		if sub.needResync {
			if snapEvents == nil {
				snapEvents = snapshot().events()
			}
			if cap(sub.ch)-len(sub.ch) < len(snapEvents)+1 {
				telemetry.IncBroadcastDropped()
				continue
			}
			for _, se := range snapEvents {
				sub.ch <- se
			}
			sub.needResync = false
		}
		select {
		case sub.ch <- ev:
		default:
			sub.needResync = true
			telemetry.IncBroadcastDropped()
		}
	}
}

// ConsumerCount returns the number of attached consumers.
func (b *Broadcaster) ConsumerCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
