// Package telemetry provides Prometheus metrics and correlation-id aware logging helpers.
package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesSeen       prometheus.Counter
	MessagesBanned     prometheus.Counter
	MessagesDropped    prometheus.Counter
	CandidatesEnqueued prometheus.Counter
	CommandsApplied    prometheus.Counter
	SwitchesSucceeded  prometheus.Counter
	SwitchesFailed     prometheus.Counter
	BroadcastDropped   prometheus.Counter

	// Histograms (seconds)
	JoinDuration prometheus.Observer

	// Gauges
	QueueDepthGauge prometheus.Gauge
	ConsumersGauge  prometheus.Gauge
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesSeen = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_seen_total", Help: "Number of chat messages received from the transport"})
		MessagesBanned = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_banned_total", Help: "Number of chat messages dropped because the sender is banned"})
		MessagesDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_messages_dropped_total", Help: "Number of chat messages dropped due to a full intake buffer"})
		CandidatesEnqueued = promauto.NewCounter(prometheus.CounterOpts{Name: "queue_candidates_enqueued_total", Help: "Number of link candidates enqueued"})
		CommandsApplied = promauto.NewCounter(prometheus.CounterOpts{Name: "chat_commands_applied_total", Help: "Number of moderator commands applied"})
		SwitchesSucceeded = promauto.NewCounter(prometheus.CounterOpts{Name: "channel_switches_succeeded_total", Help: "Number of channel switches that confirmed a join"})
		SwitchesFailed = promauto.NewCounter(prometheus.CounterOpts{Name: "channel_switches_failed_total", Help: "Number of channel switches that failed to join"})
		BroadcastDropped = promauto.NewCounter(prometheus.CounterOpts{Name: "broadcast_events_dropped_total", Help: "Number of events dropped for stalled consumers"})
		JoinDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "channel_join_duration_seconds", Help: "Channel join duration seconds", Buckets: prometheus.DefBuckets})
		QueueDepthGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "link_queue_depth", Help: "Current number of queued link candidates"})
		ConsumersGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "broadcast_consumers", Help: "Number of attached event consumers"})
	})
}

// The increment helpers are nil-safe so library code can record metrics
// without caring whether Init ran (tests typically skip it).

func IncMessagesSeen() {
	if MessagesSeen != nil {
		MessagesSeen.Inc()
	}
}

func IncMessagesBanned() {
	if MessagesBanned != nil {
		MessagesBanned.Inc()
	}
}

func IncMessagesDropped() {
	if MessagesDropped != nil {
		MessagesDropped.Inc()
	}
}

func IncCandidatesEnqueued() {
	if CandidatesEnqueued != nil {
		CandidatesEnqueued.Inc()
	}
}

func IncCommandsApplied() {
	if CommandsApplied != nil {
		CommandsApplied.Inc()
	}
}

func IncSwitchesSucceeded() {
	if SwitchesSucceeded != nil {
		SwitchesSucceeded.Inc()
	}
}

func IncSwitchesFailed() {
	if SwitchesFailed != nil {
		SwitchesFailed.Inc()
	}
}

func IncBroadcastDropped() {
	if BroadcastDropped != nil {
		BroadcastDropped.Inc()
	}
}

// SetQueueDepth records the current number of queued candidates.
func SetQueueDepth(n int) {
	if QueueDepthGauge != nil {
		QueueDepthGauge.Set(float64(n))
	}
}

// SetConsumers records the current number of attached consumers.
func SetConsumers(n int) {
	if ConsumersGauge != nil {
		ConsumersGauge.Set(float64(n))
	}
}

// TimeFunc measures the duration of fn and records it in obs if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	if obs != nil {
		obs.Observe(d.Seconds())
	}
	return d
}

// Correlation ID helpers ----------------------------------------------------

type corrKeyType struct{}

var corrKey corrKeyType

// WithCorrelation returns a new context embedding the correlation id.
func WithCorrelation(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, corrKey, id)
}

// GetCorrelation returns the correlation id or empty string.
func GetCorrelation(ctx context.Context) string {
	if s, ok := ctx.Value(corrKey).(string); ok {
		return s
	}
	return ""
}

// LoggerWithCorr returns a logger with the corr attribute if present.
func LoggerWithCorr(ctx context.Context) *slog.Logger {
	if id := GetCorrelation(ctx); id != "" {
		return slog.Default().With(slog.String("corr", id))
	}
	return slog.Default()
}
