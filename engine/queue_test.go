package engine

import "testing"

func cand(user, url string) Candidate {
	return NewCandidate(user, user, url, RoleNone)
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    Policy
		wantErr bool
	}{
		{in: "", want: PolicyPop},
		{in: "pop", want: PolicyPop},
		{in: "mark", want: PolicyMark},
		{in: "fifo", wantErr: true},
		{in: "POP", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err == nil && got != tt.want {
			t.Errorf("ParsePolicy(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPopQueueFirstEnqueueActivates(t *testing.T) {
	q := NewQueue(PolicyPop)
	c := cand("alice", "https://a.example")
	if !q.Enqueue(c) {
		t.Fatal("first enqueue into empty queue must activate")
	}
	active, ok := q.Active()
	if !ok || active.ID != c.ID {
		t.Fatalf("active = %+v ok=%v, want first candidate", active, ok)
	}
	if active.State != StateActive {
		t.Errorf("active state = %q, want %q", active.State, StateActive)
	}
	if q.Len() != 0 {
		t.Errorf("pending len = %d, want 0 (active is not pending)", q.Len())
	}
	if q.Enqueue(cand("bob", "https://b.example")) {
		t.Error("second enqueue must not activate while a candidate is active")
	}
}

func TestPopQueueAdvance(t *testing.T) {
	q := NewQueue(PolicyPop)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	c := cand("carol", "https://c.example")
	q.Enqueue(a) // activates
	q.Enqueue(b)
	q.Enqueue(c)

	got, ok := q.Advance()
	if !ok || got.ID != b.ID {
		t.Fatalf("advance = %+v ok=%v, want head of pending", got, ok)
	}
	if active, _ := q.Active(); active.ID != b.ID {
		t.Errorf("active after advance = %s, want %s", active.ID, b.ID)
	}

	q.Advance() // c becomes active
	got, ok = q.Advance()
	if ok {
		t.Fatalf("advance on empty pending = %+v ok=true, want exhausted", got)
	}
	if _, stillActive := q.Active(); stillActive {
		t.Error("exhausted advance must clear the active slot")
	}
}

func TestPopQueueRemoveActiveDoesNotAutoAdvance(t *testing.T) {
	q := NewQueue(PolicyPop)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	q.Enqueue(a)
	q.Enqueue(b)

	if !q.Remove(a.ID) {
		t.Fatal("remove of active candidate must succeed")
	}
	if _, ok := q.Active(); ok {
		t.Error("active slot must stay empty after removing the active candidate")
	}
	if q.Len() != 1 {
		t.Errorf("pending len = %d, want 1", q.Len())
	}

	got, ok := q.Advance()
	if !ok || got.ID != b.ID {
		t.Errorf("explicit advance after removal = %+v ok=%v, want %s", got, ok, b.ID)
	}
}

func TestPopQueueRemove(t *testing.T) {
	q := NewQueue(PolicyPop)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	q.Enqueue(a)
	q.Enqueue(b)

	if q.Remove("no-such-id") {
		t.Error("remove of unknown id must report false")
	}
	if !q.Remove(b.ID) {
		t.Error("remove of pending candidate must succeed")
	}
	if q.Len() != 0 {
		t.Errorf("pending len = %d, want 0", q.Len())
	}
}

func TestPopQueueRemoveByUser(t *testing.T) {
	q := NewQueue(PolicyPop)
	q.Enqueue(cand("active_user", "https://active.example"))
	q.Enqueue(cand("spammer", "https://s1.example"))
	q.Enqueue(cand("ok_user", "https://ok.example"))
	q.Enqueue(cand("spammer", "https://s2.example"))

	if got := q.RemoveByUser("spammer"); got != 2 {
		t.Errorf("RemoveByUser = %d, want 2", got)
	}
	if q.Len() != 1 {
		t.Errorf("pending len = %d, want 1", q.Len())
	}
	if got := q.RemoveByUser("nobody"); got != 0 {
		t.Errorf("RemoveByUser(nobody) = %d, want 0", got)
	}
}

func TestPopQueueJumpTo(t *testing.T) {
	q := NewQueue(PolicyPop)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	c := cand("carol", "https://c.example")
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	got, ok := q.JumpTo(c.ID)
	if !ok || got.ID != c.ID {
		t.Fatalf("jump = %+v ok=%v, want %s", got, ok, c.ID)
	}
	if active, _ := q.Active(); active.ID != c.ID {
		t.Errorf("active after jump = %s, want %s", active.ID, c.ID)
	}
	// b stays pending and keeps its position as the next head.
	next, ok := q.Advance()
	if !ok || next.ID != b.ID {
		t.Errorf("advance after jump = %+v ok=%v, want %s", next, ok, b.ID)
	}

	if _, ok := q.JumpTo("no-such-id"); ok {
		t.Error("jump to unknown id must report false")
	}
}

func TestPopQueueClear(t *testing.T) {
	q := NewQueue(PolicyPop)
	q.Enqueue(cand("alice", "https://a.example"))
	q.Enqueue(cand("bob", "https://b.example"))
	q.Clear()
	if q.Len() != 0 {
		t.Errorf("len after clear = %d, want 0", q.Len())
	}
	if _, ok := q.Active(); ok {
		t.Error("clear must empty the active slot")
	}
}

func TestMarkQueueAdvance(t *testing.T) {
	q := NewQueue(PolicyMark)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	if q.Enqueue(a) {
		t.Error("mark policy never activates on enqueue")
	}
	q.Enqueue(b)

	got, ok := q.Advance()
	if !ok || got.ID != a.ID {
		t.Fatalf("advance = %+v ok=%v, want earliest pending", got, ok)
	}
	if got.State != StateConsumed {
		t.Errorf("state = %q, want %q", got.State, StateConsumed)
	}
	// Consumed entry is retained until the following advance.
	if q.Len() != 2 {
		t.Errorf("len = %d, want 2 (consumed retained)", q.Len())
	}
	if active, ok := q.Active(); !ok || active.ID != a.ID {
		t.Errorf("active = %+v ok=%v, want last consumed", active, ok)
	}

	got, ok = q.Advance()
	if !ok || got.ID != b.ID {
		t.Fatalf("second advance = %+v ok=%v, want %s", got, ok, b.ID)
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1 (previous consumed discarded)", q.Len())
	}

	if _, ok := q.Advance(); ok {
		t.Error("advance past the last pending must report exhausted")
	}
	if _, ok := q.Active(); ok {
		t.Error("exhausted advance must clear the active view")
	}
}

func TestMarkQueueRemoveAndJump(t *testing.T) {
	q := NewQueue(PolicyMark)
	a := cand("alice", "https://a.example")
	b := cand("bob", "https://b.example")
	c := cand("carol", "https://c.example")
	q.Enqueue(a)
	q.Enqueue(b)
	q.Enqueue(c)

	got, ok := q.JumpTo(b.ID)
	if !ok || got.ID != b.ID {
		t.Fatalf("jump = %+v ok=%v, want %s", got, ok, b.ID)
	}
	if got.State != StateConsumed {
		t.Errorf("jumped state = %q, want %q", got.State, StateConsumed)
	}
	// The jumped candidate stays listed and reportable as active until the
	// next advance discards it, same as an advance-consumed entry.
	if q.Len() != 3 {
		t.Errorf("len after jump = %d, want 3 (consumed retained)", q.Len())
	}
	if active, ok := q.Active(); !ok || active.ID != b.ID {
		t.Errorf("active after jump = %+v ok=%v, want %s", active, ok, b.ID)
	}

	if !q.Remove(a.ID) {
		t.Fatal("remove must succeed")
	}
	next, ok := q.Advance()
	if !ok || next.ID != c.ID {
		t.Errorf("advance = %+v ok=%v, want %s", next, ok, c.ID)
	}
	if q.Len() != 1 {
		t.Errorf("len = %d, want 1 (jumped entry discarded on advance)", q.Len())
	}
}

func TestMarkQueueRemoveByUser(t *testing.T) {
	q := NewQueue(PolicyMark)
	q.Enqueue(cand("spammer", "https://s1.example"))
	q.Enqueue(cand("ok_user", "https://ok.example"))
	q.Enqueue(cand("spammer", "https://s2.example"))

	if got := q.RemoveByUser("spammer"); got != 2 {
		t.Errorf("RemoveByUser = %d, want 2", got)
	}
	items := q.Items()
	if len(items) != 1 || items[0].NormalizedUser != "ok_user" {
		t.Errorf("items = %+v, want only ok_user", items)
	}
}
