package engine

import "fmt"

// Policy selects the queue consumption model.
type Policy string

const (
	// PolicyPop removes the head on advance and makes it the single active
	// candidate. Suited to one consumer driving a shared viewport.
	PolicyPop Policy = "pop"
	// PolicyMark marks the earliest pending candidate consumed on advance
	// without removing it, so multiple independent consumers can each
	// trigger "next" safely.
	PolicyMark Policy = "mark"
)

// ParsePolicy validates a policy name from configuration.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case PolicyPop, PolicyMark:
		return Policy(s), nil
	case "":
		return PolicyPop, nil
	}
	return "", fmt.Errorf("unknown queue policy %q (want pop or mark)", s)
}

// Queue is the ordered collection of candidates plus the consumption
// semantics of the configured policy. Implementations are not goroutine-safe;
// the engine dispatch loop is the only caller.
type Queue interface {
	// Enqueue appends a candidate. Under the pop policy an arrival into an
	// empty active slot is activated immediately; the return value reports
	// that.
	Enqueue(c Candidate) (activated bool)
	// Advance moves consumption forward and returns the candidate to act
	// on. ok is false when the queue is exhausted; that is a well-defined
	// state, never an error.
	Advance() (c Candidate, ok bool)
	// Remove deletes by id; no-op (false) if absent. Removing the active
	// candidate under the pop policy clears the active slot without
	// auto-advancing.
	Remove(id string) bool
	// RemoveByUser deletes all pending entries whose normalized user
	// matches, returning how many were removed.
	RemoveByUser(normalizedUser string) int
	// JumpTo consumes a candidate out of order by id.
	JumpTo(id string) (c Candidate, ok bool)
	// Clear empties the queue and the active slot.
	Clear()
	// Items returns the candidates a consumer should list, in order.
	Items() []Candidate
	// Active returns the current active candidate, if any.
	Active() (c Candidate, ok bool)
	Len() int
}

// NewQueue returns the queue implementation for the given policy.
func NewQueue(policy Policy) Queue {
	if policy == PolicyMark {
		return &markQueue{}
	}
	return &popQueue{}
}

// popQueue: pending list plus a single active slot.
type popQueue struct {
	pending []Candidate
	active  *Candidate
}

func (q *popQueue) Enqueue(c Candidate) bool {
	if q.active == nil {
		c.State = StateActive
		q.active = &c
		return true
	}
	q.pending = append(q.pending, c)
	return false
}

func (q *popQueue) Advance() (Candidate, bool) {
	if len(q.pending) == 0 {
		q.active = nil
		return Candidate{}, false
	}
	head := q.pending[0]
	q.pending = q.pending[1:]
	head.State = StateActive
	q.active = &head
	return head, true
}

func (q *popQueue) Remove(id string) bool {
	if q.active != nil && q.active.ID == id {
		q.active = nil
		return true
	}
	for i, c := range q.pending {
		if c.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			return true
		}
	}
	return false
}

func (q *popQueue) RemoveByUser(normalizedUser string) int {
	kept := q.pending[:0]
	removed := 0
	for _, c := range q.pending {
		if c.NormalizedUser == normalizedUser {
			removed++
			continue
		}
		kept = append(kept, c)
	}
	q.pending = kept
	return removed
}

func (q *popQueue) JumpTo(id string) (Candidate, bool) {
	if q.active != nil && q.active.ID == id {
		return *q.active, true
	}
	for i, c := range q.pending {
		if c.ID == id {
			q.pending = append(q.pending[:i], q.pending[i+1:]...)
			c.State = StateActive
			q.active = &c
			return c, true
		}
	}
	return Candidate{}, false
}

func (q *popQueue) Clear() {
	q.pending = nil
	q.active = nil
}

func (q *popQueue) Items() []Candidate {
	out := make([]Candidate, len(q.pending))
	copy(out, q.pending)
	return out
}

func (q *popQueue) Active() (Candidate, bool) {
	if q.active == nil {
		return Candidate{}, false
	}
	return *q.active, true
}

func (q *popQueue) Len() int { return len(q.pending) }

// markQueue: single list; advance marks instead of removing, and consumed
// entries are retained until the following advance discards them.
type markQueue struct {
	items        []Candidate
	lastConsumed string
}

func (q *markQueue) Enqueue(c Candidate) bool {
	q.items = append(q.items, c)
	return false
}

func (q *markQueue) Advance() (Candidate, bool) {
	kept := q.items[:0]
	for _, c := range q.items {
		if c.State != StateConsumed {
			kept = append(kept, c)
		}
	}
	q.items = kept
	q.lastConsumed = ""
	for i := range q.items {
		if q.items[i].State == StatePending {
			q.items[i].State = StateConsumed
			q.lastConsumed = q.items[i].ID
			return q.items[i], true
		}
	}
	return Candidate{}, false
}

func (q *markQueue) Remove(id string) bool {
	for i, c := range q.items {
		if c.ID == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			if q.lastConsumed == id {
				q.lastConsumed = ""
			}
			return true
		}
	}
	return false
}

func (q *markQueue) RemoveByUser(normalizedUser string) int {
	kept := q.items[:0]
	removed := 0
	for _, c := range q.items {
		if c.NormalizedUser == normalizedUser {
			removed++
			if q.lastConsumed == c.ID {
				q.lastConsumed = ""
			}
			continue
		}
		kept = append(kept, c)
	}
	q.items = kept
	return removed
}

func (q *markQueue) JumpTo(id string) (Candidate, bool) {
	for i := range q.items {
		if q.items[i].ID == id {
			q.items[i].State = StateConsumed
			q.lastConsumed = id
			return q.items[i], true
		}
	}
	return Candidate{}, false
}

func (q *markQueue) Clear() {
	q.items = nil
	q.lastConsumed = ""
}

func (q *markQueue) Items() []Candidate {
	out := make([]Candidate, len(q.items))
	copy(out, q.items)
	return out
}

func (q *markQueue) Active() (Candidate, bool) {
	if q.lastConsumed == "" {
		return Candidate{}, false
	}
	for _, c := range q.items {
		if c.ID == q.lastConsumed {
			return c, true
		}
	}
	return Candidate{}, false
}

func (q *markQueue) Len() int { return len(q.items) }
