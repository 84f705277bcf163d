package server

import (
	"context"
	"net/http"
	"time"

	"github.com/onnwee/linkline/db"
)

// HandleHealthz is a liveness probe: the process is up and the database
// answers a ping.
func (h *Handlers) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.db.PingContext(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleReadyz is a readiness probe: database reachable, kv store readable,
// and the engine dispatch loop responsive.
func (h *Handlers) HandleReadyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]string{}
	ready := true

	if err := h.db.PingContext(ctx); err != nil {
		checks["database"] = "unreachable"
		ready = false
	} else {
		checks["database"] = "ok"
		if _, err := db.GetKV(ctx, h.db, "readyz-probe"); err != nil {
			checks["kv"] = "unreadable"
			ready = false
		} else {
			checks["kv"] = "ok"
		}
	}

	if _, err := h.eng.Status(ctx); err != nil {
		checks["engine"] = "unresponsive"
		ready = false
	} else {
		checks["engine"] = "ok"
	}

	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{"ready": ready, "checks": checks})
}
