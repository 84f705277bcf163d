package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/onnwee/linkline/engine"
	"github.com/onnwee/linkline/telemetry"
)

// keepaliveInterval is how often an SSE comment line is written so proxies do
// not reap an idle stream.
const keepaliveInterval = 25 * time.Second

// HandleEvents streams engine events over SSE. A new consumer receives the
// full snapshot (status, queue, active link, ban list) before any incremental
// event; a consumer that falls behind is resynced with a fresh snapshot by
// the broadcaster rather than blocking everyone else.
func (h *Handlers) HandleEvents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	id, ch, err := h.eng.Subscribe(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	defer h.eng.Unsubscribe(id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	log := telemetry.LoggerWithCorr(r.Context())
	log.Info("event consumer attached", slog.String("consumer_id", id))
	defer log.Info("event consumer detached", slog.String("consumer_id", id))

	keepalive := time.NewTicker(keepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepalive.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case ev, open := <-ch:
			if !open {
				return
			}
			if err := writeSSE(w, ev); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// writeSSE serializes one event in the event/data wire framing.
func writeSSE(w http.ResponseWriter, ev engine.Event) error {
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
