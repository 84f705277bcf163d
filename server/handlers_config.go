package server

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/onnwee/linkline/db"
	"github.com/onnwee/linkline/telemetry"
)

// cfgKeyPrefix namespaces runtime config overrides in the kv table so they
// never collide with engine state keys.
const cfgKeyPrefix = "cfg:"

// safeConfigKeys is the allowlist of keys readable and writable over HTTP.
// Secrets (tokens, passwords, DSNs) are deliberately absent.
var safeConfigKeys = []string{
	"TWITCH_CHANNEL",
	"QUEUE_POLICY",
	"INTAKE_DEFAULT_OPEN",
	"JOIN_TIMEOUT",
	"EVENT_BUFFER",
	"RATE_LIMIT_REQUESTS_PER_IP",
	"RATE_LIMIT_WINDOW_SECONDS",
	"CORS_ALLOWED_ORIGINS",
}

func isSafeConfigKey(key string) bool {
	for _, k := range safeConfigKeys {
		if k == key {
			return true
		}
	}
	return false
}

// HandleConfig serves GET (current effective values: kv override first, then
// environment) and PUT (store overrides in kv). Overrides are picked up on
// the next process start; they do not reconfigure a running engine.
func (h *Handlers) HandleConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		out := map[string]string{}
		for _, key := range safeConfigKeys {
			v, err := db.GetKV(r.Context(), h.db, cfgKeyPrefix+key)
			if err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "config read failed"})
				return
			}
			if v == "" {
				v = os.Getenv(key)
			}
			out[key] = v
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPut:
		var body map[string]string
		if !decodeBody(w, r, &body) {
			return
		}
		for key := range body {
			if !isSafeConfigKey(key) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown or protected key: " + key})
				return
			}
		}
		for key, value := range body {
			if err := db.SetKV(r.Context(), h.db, cfgKeyPrefix+key, value); err != nil {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "config write failed"})
				return
			}
			telemetry.LoggerWithCorr(r.Context()).Info("config override stored", slog.String("key", key))
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stored"})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
