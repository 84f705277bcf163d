package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/onnwee/linkline/telemetry"
)

// Transport is the chat client the engine drives. Join and Part must respect
// the context deadline and return an error when the operation could not be
// confirmed in time; all other failure handling lives in the engine.
type Transport interface {
	Connect(ctx context.Context) error
	Join(ctx context.Context, channel string) error
	Part(ctx context.Context, channel string) error
	Disconnect() error
}

// SessionState is the channel session lifecycle state.
type SessionState string

const (
	SessionIdle    SessionState = "idle"
	SessionJoining SessionState = "joining"
	SessionActive  SessionState = "active"
	SessionLeaving SessionState = "leaving"
)

// Options configures an engine instance.
type Options struct {
	Policy       Policy
	IntakeClosed bool          // boot with the intake gate closed (default open)
	JoinTimeout  time.Duration // bounded wait for transport join/part
	EventBuffer  int           // per-consumer delivery buffer
}

// Status is the operator-facing summary returned by Engine.Status.
type Status struct {
	Channel    string       `json:"channel"`
	State      SessionState `json:"state"`
	IntakeOpen bool         `json:"intake_open"`
	QueueDepth int          `json:"queue_depth"`
	Policy     Policy       `json:"policy"`
	Consumers  int          `json:"consumers"`
}

// Engine owns the queue, ban registry, and channel session. All mutations
// run on the dispatch goroutine started by Run; the exported methods post
// operations onto it and are safe to call from any goroutine.
type Engine struct {
	transport Transport
	queue     Queue
	bans      *BanRegistry
	bcast     *Broadcaster
	opts      Options

	ops  chan func()
	msgs chan Message

	// Everything below is touched only by the dispatch goroutine.
	state      SessionState
	channel    string
	intakeOpen bool
	switching  bool
	nextTarget string
	switchGen  uint64
}

// New builds an engine. The transport may be nil in tests that never join.
func New(transport Transport, store BanStore, opts Options) *Engine {
	if opts.JoinTimeout <= 0 {
		opts.JoinTimeout = 10 * time.Second
	}
	if opts.EventBuffer <= 0 {
		opts.EventBuffer = 64
	}
	return &Engine{
		transport:  transport,
		queue:      NewQueue(opts.Policy),
		bans:       NewBanRegistry(store),
		bcast:      NewBroadcaster(opts.EventBuffer),
		opts:       opts,
		ops:        make(chan func(), 64),
		msgs:       make(chan Message, 1024),
		state:      SessionIdle,
		intakeOpen: !opts.IntakeClosed,
	}
}

// Run loads the persisted ban list and serves the dispatch loop until ctx is
// cancelled. It must be running before any control method is called.
func (e *Engine) Run(ctx context.Context) error {
	if err := e.bans.Load(ctx); err != nil {
		slog.Error("ban list load failed; starting with empty set", slog.Any("err", err))
	}
	for {
		select {
		case <-ctx.Done():
			return nil
		case op := <-e.ops:
			op()
		case m := <-e.msgs:
			e.handleMessage(ctx, m)
		}
	}
}

// Deliver hands an inbound chat message to the dispatch loop. It never
// blocks the caller: if the intake buffer is full the message is dropped and
// counted, since chat is a lossy stream by nature.
func (e *Engine) Deliver(m Message) {
	select {
	case e.msgs <- m:
	default:
		telemetry.IncMessagesDropped()
		slog.Warn("chat intake buffer full, dropping message", slog.String("channel", m.Channel))
	}
}

// exec posts fn onto the dispatch loop and waits for it to run.
func (e *Engine) exec(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	select {
	case e.ops <- func() { fn(); close(done) }:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// JoinChannel requests a switch to the named channel. The call returns once
// the switch is scheduled; the outcome is reported via the status event.
// Empty names are ignored; a duplicate join of the active channel is a no-op;
// overlapping requests supersede each other (last-requested wins).
func (e *Engine) JoinChannel(ctx context.Context, channel string) error {
	target := NormalizeChannel(channel)
	if target == "" {
		return nil
	}
	return e.exec(ctx, func() { e.requestJoin(target) })
}

// ToggleIntake opens or closes the candidate intake gate. Queued candidates
// and ban management are unaffected.
func (e *Engine) ToggleIntake(ctx context.Context, open bool) error {
	return e.exec(ctx, func() { e.intakeOpen = open })
}

// Advance moves queue consumption forward per the configured policy.
func (e *Engine) Advance(ctx context.Context) error {
	return e.exec(ctx, func() { e.advance() })
}

// Remove deletes a candidate by id; unknown ids are a no-op.
func (e *Engine) Remove(ctx context.Context, id string) error {
	return e.exec(ctx, func() { e.remove(id) })
}

// RemoveByUser deletes every queued candidate from the given user.
func (e *Engine) RemoveByUser(ctx context.Context, user string) error {
	return e.exec(ctx, func() { e.removeByUser(user) })
}

// JumpTo consumes a candidate out of order by id; unknown ids are a no-op.
func (e *Engine) JumpTo(ctx context.Context, id string) error {
	return e.exec(ctx, func() { e.jumpTo(id) })
}

// Ban adds a user to the ban registry and purges their queued candidates.
func (e *Engine) Ban(ctx context.Context, user string) error {
	return e.exec(ctx, func() { e.ban(ctx, user) })
}

// Unban removes a user from the ban registry. Previously purged candidates
// are not restored.
func (e *Engine) Unban(ctx context.Context, user string) error {
	return e.exec(ctx, func() { e.unban(ctx, user) })
}

// ClearSession leaves the current channel, empties the queue, and resets the
// intake gate to its boot default. The ban registry is untouched.
func (e *Engine) ClearSession(ctx context.Context) error {
	return e.exec(ctx, func() { e.clearSession() })
}

// Subscribe attaches a consumer and returns its id plus the event channel.
// The snapshot events are already queued on the channel on return.
func (e *Engine) Subscribe(ctx context.Context) (string, <-chan Event, error) {
	var id string
	var ch <-chan Event
	err := e.exec(ctx, func() { id, ch = e.bcast.Attach(e.snapshot()) })
	return id, ch, err
}

// Unsubscribe detaches a consumer and closes its channel.
func (e *Engine) Unsubscribe(id string) {
	e.bcast.Detach(id)
}

// Status returns a consistent summary of engine state.
func (e *Engine) Status(ctx context.Context) (Status, error) {
	var st Status
	err := e.exec(ctx, func() {
		st = Status{
			Channel:    e.channel,
			State:      e.state,
			IntakeOpen: e.intakeOpen,
			QueueDepth: e.queue.Len(),
			Policy:     e.opts.Policy,
			Consumers:  e.bcast.ConsumerCount(),
		}
	})
	return st, err
}

// --- dispatch-loop internals -----------------------------------------------

func (e *Engine) snapshot() Snapshot {
	snap := Snapshot{
		Channel: e.channel,
		Intake:  e.intakeOpen,
		Queue:   e.queue.Items(),
		Bans:    e.bans.List(),
	}
	if c, ok := e.queue.Active(); ok {
		snap.Active = &c
	}
	return snap
}

func (e *Engine) publish(ev Event) {
	e.bcast.Publish(ev, e.snapshot)
}

func (e *Engine) publishQueue() {
	items := e.queue.Items()
	e.publish(Event{Type: EventQueueChanged, Queue: items})
	telemetry.SetQueueDepth(len(items))
}

func (e *Engine) publishActive(c Candidate) {
	cc := c
	if IsYouTube(cc.URL) {
		e.publish(Event{Type: EventYouTubeWarning, Candidate: &cc})
	}
	e.publish(Event{Type: EventActiveLink, Active: &cc})
}

func (e *Engine) handleMessage(ctx context.Context, m Message) {
	telemetry.IncMessagesSeen()
	if m.IsSelf {
		return
	}
	if e.state != SessionActive || m.Channel != e.channel {
		return
	}
	if cmd, ok := ParseCommand(m.Text); ok && IsModerator(m.Badges, m.ModTag) {
		// An authorized command is never also scanned for URLs; a
		// malformed one (empty target) is a silent no-op.
		e.applyCommand(ctx, cmd)
		return
	}
	if e.bans.IsBanned(m.Login) {
		telemetry.IncMessagesBanned()
		return
	}
	if !e.intakeOpen {
		return
	}
	urls := ExtractURLs(m.Text)
	if len(urls) == 0 {
		return
	}
	role := ClassifyRole(m.Badges)
	for _, u := range urls {
		c := NewCandidate(m.User, m.Login, u, role)
		if e.queue.Enqueue(c) {
			c.State = StateActive
			e.publishActive(c)
		}
		telemetry.IncCandidatesEnqueued()
	}
	e.publishQueue()
}

func (e *Engine) applyCommand(ctx context.Context, cmd Command) {
	if cmd.Target == "" {
		return
	}
	telemetry.IncCommandsApplied()
	switch cmd.Verb {
	case VerbBan:
		e.ban(ctx, cmd.Target)
	case VerbUnban:
		e.unban(ctx, cmd.Target)
	case VerbRemove:
		e.removeByUser(cmd.Target)
	}
}

func (e *Engine) advance() {
	c, ok := e.queue.Advance()
	if !ok {
		e.publish(Event{Type: EventQueueEmpty})
		e.publish(Event{Type: EventActiveLink})
	} else {
		e.publishActive(c)
	}
	e.publishQueue()
}

func (e *Engine) remove(id string) {
	active, hadActive := e.queue.Active()
	if !e.queue.Remove(id) {
		return
	}
	if hadActive && active.ID == id {
		// Active slot stays empty until an explicit advance.
		e.publish(Event{Type: EventActiveLink})
	}
	e.publishQueue()
}

func (e *Engine) removeByUser(user string) {
	if e.queue.RemoveByUser(NormalizeUser(user)) > 0 {
		e.publishQueue()
	}
}

func (e *Engine) jumpTo(id string) {
	c, ok := e.queue.JumpTo(id)
	if !ok {
		return
	}
	e.publishActive(c)
	e.publishQueue()
}

func (e *Engine) ban(ctx context.Context, user string) {
	changed := e.bans.Ban(ctx, user)
	purged := e.queue.RemoveByUser(NormalizeUser(user))
	if changed {
		e.publish(Event{Type: EventBanList, Bans: e.bans.List()})
	}
	if purged > 0 {
		e.publishQueue()
	}
}

func (e *Engine) unban(ctx context.Context, user string) {
	if e.bans.Unban(ctx, user) {
		e.publish(Event{Type: EventBanList, Bans: e.bans.List()})
	}
}

func (e *Engine) clearSession() {
	// Supersede any in-flight switch so its completion is discarded.
	e.switchGen++
	e.nextTarget = ""
	old := e.channel
	e.channel = ""
	e.state = SessionIdle
	e.queue.Clear()
	e.intakeOpen = !e.opts.IntakeClosed
	if old != "" && e.transport != nil {
		go func() {
			pctx, cancel := context.WithTimeout(context.Background(), e.opts.JoinTimeout)
			defer cancel()
			if err := e.transport.Part(pctx, old); err != nil {
				slog.Warn("part on clear failed", slog.Any("err", &TransportError{Op: "part", Channel: old, Err: err}))
			}
		}()
	}
	e.publish(Event{Type: EventStatus})
	e.publish(Event{Type: EventActiveLink})
	e.publishQueue()
}

func (e *Engine) requestJoin(target string) {
	if e.state == SessionActive && e.channel == target && !e.switching {
		return
	}
	e.switchGen++
	e.nextTarget = target
	if !e.switching {
		e.beginSwitch()
	}
}

// beginSwitch runs part-then-join in a helper goroutine. The old channel is
// released only after the new target has been recorded (nextTarget/gen), and
// the new channel becomes authoritative only once its join confirms.
func (e *Engine) beginSwitch() {
	target := e.nextTarget
	e.nextTarget = ""
	gen := e.switchGen
	old := e.channel
	e.channel = ""
	e.switching = true
	if old != "" {
		e.state = SessionLeaving
	} else {
		e.state = SessionJoining
	}
	go func() {
		sctx, span := telemetry.StartSpan(context.Background(), "engine", "channel-switch")
		defer span.End()
		tctx, cancel := context.WithTimeout(sctx, e.opts.JoinTimeout)
		defer cancel()
		if old != "" {
			if err := e.transport.Part(tctx, old); err != nil {
				slog.Warn("part failed during switch", slog.Any("err", &TransportError{Op: "part", Channel: old, Err: err}))
			}
			e.ops <- func() {
				if gen == e.switchGen && e.switching {
					e.state = SessionJoining
				}
			}
		}
		var err error
		telemetry.TimeFunc(telemetry.JoinDuration, func() {
			err = e.transport.Join(tctx, target)
		})
		if err != nil {
			telemetry.RecordError(span, err)
		} else {
			telemetry.SetSpanSuccess(span)
		}
		e.ops <- func() { e.finishSwitch(gen, target, err) }
	}()
}

func (e *Engine) finishSwitch(gen uint64, target string, err error) {
	e.switching = false
	if gen != e.switchGen {
		// Superseded by a later request: discard this outcome, but release
		// a stray successful join so the old stream cannot leak through.
		if err == nil {
			go func() {
				pctx, cancel := context.WithTimeout(context.Background(), e.opts.JoinTimeout)
				defer cancel()
				_ = e.transport.Part(pctx, target)
			}()
		}
		if e.nextTarget != "" {
			e.beginSwitch()
		}
		return
	}
	if err != nil {
		telemetry.IncSwitchesFailed()
		slog.Error("channel join failed", slog.Any("err", &TransportError{Op: "join", Channel: target, Err: err}))
		e.state = SessionIdle
		e.channel = ""
		e.queue.Clear()
		e.publish(Event{Type: EventStatus})
		e.publish(Event{Type: EventActiveLink})
		e.publishQueue()
		return
	}
	telemetry.IncSwitchesSucceeded()
	e.state = SessionActive
	e.channel = target
	e.queue.Clear()
	e.intakeOpen = !e.opts.IntakeClosed
	slog.Info("channel joined", slog.String("channel", target))
	e.publish(Event{Type: EventStatus, Channel: target})
	e.publish(Event{Type: EventActiveLink})
	e.publishQueue()
}
