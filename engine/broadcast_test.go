package engine

import (
	"testing"
	"time"
)

func drainEvents(t *testing.T, ch <-chan Event, n int) []Event {
	t.Helper()
	out := make([]Event, 0, n)
	for len(out) < n {
		select {
		case ev := <-ch:
			out = append(out, ev)
		case <-time.After(time.Second):
			t.Fatalf("timed out after %d of %d events", len(out), n)
		}
	}
	return out
}

func TestBroadcasterAttachPreloadsSnapshot(t *testing.T) {
	b := NewBroadcaster(16)
	active := cand("alice", "https://a.example")
	snap := Snapshot{
		Channel: "somechannel",
		Queue:   []Candidate{cand("bob", "https://b.example")},
		Active:  &active,
		Bans:    []string{"spammer"},
	}
	id, ch := b.Attach(snap)
	if id == "" {
		t.Fatal("expected a consumer id")
	}

	evs := drainEvents(t, ch, 4)
	wantOrder := []EventType{EventStatus, EventQueueChanged, EventActiveLink, EventBanList}
	for i, want := range wantOrder {
		if evs[i].Type != want {
			t.Fatalf("snapshot event %d = %q, want %q", i, evs[i].Type, want)
		}
	}
	if evs[0].Channel != "somechannel" {
		t.Errorf("status channel = %q, want somechannel", evs[0].Channel)
	}
	if len(evs[1].Queue) != 1 {
		t.Errorf("queue event items = %d, want 1", len(evs[1].Queue))
	}
	if evs[2].Active == nil || evs[2].Active.ID != active.ID {
		t.Errorf("active event = %+v, want preloaded active", evs[2].Active)
	}
}

func TestBroadcasterPublishReachesAllConsumers(t *testing.T) {
	b := NewBroadcaster(16)
	_, ch1 := b.Attach(Snapshot{})
	_, ch2 := b.Attach(Snapshot{})
	drainEvents(t, ch1, 4)
	drainEvents(t, ch2, 4)

	b.Publish(Event{Type: EventQueueEmpty}, func() Snapshot { return Snapshot{} })

	for i, ch := range []<-chan Event{ch1, ch2} {
		evs := drainEvents(t, ch, 1)
		if evs[0].Type != EventQueueEmpty {
			t.Errorf("consumer %d got %q, want %q", i, evs[0].Type, EventQueueEmpty)
		}
	}
}

func TestBroadcasterDetachClosesChannel(t *testing.T) {
	b := NewBroadcaster(16)
	id, ch := b.Attach(Snapshot{})
	drainEvents(t, ch, 4)
	b.Detach(id)

	select {
	case _, open := <-ch:
		if open {
			t.Fatal("expected channel closed after detach")
		}
	case <-time.After(time.Second):
		t.Fatal("channel not closed after detach")
	}
	if b.ConsumerCount() != 0 {
		t.Errorf("ConsumerCount = %d, want 0", b.ConsumerCount())
	}

	// Detach of an unknown id is a no-op.
	b.Detach("no-such-id")
}

func TestBroadcasterSlowConsumerResync(t *testing.T) {
	b := NewBroadcaster(8)
	_, slow := b.Attach(Snapshot{})
	// Snapshot preload leaves 4 slots. Fill them and overflow.
	for i := 0; i < 10; i++ {
		b.Publish(Event{Type: EventQueueEmpty}, func() Snapshot { return Snapshot{} })
	}

	// Drain everything currently buffered; the consumer is now flagged for
	// resync and the buffer has room.
	for {
		select {
		case <-slow:
			continue
		default:
		}
		break
	}

	b.Publish(Event{Type: EventBanList, Bans: []string{"x"}}, func() Snapshot {
		return Snapshot{Channel: "resynced"}
	})

	// The consumer must receive a full snapshot before the incremental event.
	evs := drainEvents(t, slow, 5)
	wantOrder := []EventType{EventStatus, EventQueueChanged, EventActiveLink, EventBanList, EventBanList}
	for i, want := range wantOrder {
		if evs[i].Type != want {
			t.Fatalf("event %d = %q, want %q", i, evs[i].Type, want)
		}
	}
	if evs[0].Channel != "resynced" {
		t.Errorf("resync status channel = %q, want resynced", evs[0].Channel)
	}
}

func TestBroadcasterSlowConsumerDoesNotBlockOthers(t *testing.T) {
	b := NewBroadcaster(8)
	_, slow := b.Attach(Snapshot{})
	_, fast := b.Attach(Snapshot{})
	drainEvents(t, fast, 4)

	// Overflow the slow consumer without reading it. Publish must return
	// promptly and the fast consumer must see every event.
	for i := 0; i < 20; i++ {
		b.Publish(Event{Type: EventQueueEmpty}, func() Snapshot { return Snapshot{} })
		drainEvents(t, fast, 1)
	}
	_ = slow
}

func TestEventPayload(t *testing.T) {
	if got := (Event{Type: EventQueueChanged}).Payload(); got == nil {
		t.Error("queue-changed with nil queue must serialize as an empty list, not null")
	}
	if got := (Event{Type: EventBanList}).Payload(); got == nil {
		t.Error("ban-list-changed with nil bans must serialize as an empty list, not null")
	}
	st, ok := (Event{Type: EventStatus, Channel: "c"}).Payload().(map[string]string)
	if !ok || st["channel"] != "c" {
		t.Errorf("status payload = %#v, want channel map", st)
	}
}
