package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/linkline/engine"
	"github.com/onnwee/linkline/telemetry"
	"github.com/onnwee/linkline/twitchapi"
)

// Handlers carries the shared dependencies for every HTTP handler. helix may
// be nil when channel-existence lookups are not configured.
type Handlers struct {
	db    *sql.DB
	eng   *engine.Engine
	helix *twitchapi.HelixClient
}

func NewHandlers(db *sql.DB, eng *engine.Engine, helix *twitchapi.HelixClient) *Handlers {
	return &Handlers{db: db, eng: eng, helix: helix}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to encode response", slog.Any("err", err))
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return false
	}
	return true
}

// HandleStatus returns the engine summary: session state, active channel,
// intake gate, queue depth, policy, and consumer count.
func (h *Handlers) HandleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	st, err := h.eng.Status(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleJoinChannel schedules a switch to the requested channel. When Helix
// credentials are configured the channel is checked for existence first so
// typos fail fast instead of hanging in a join that never confirms.
func (h *Handlers) HandleJoinChannel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Channel string `json:"channel"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	channel := engine.NormalizeChannel(body.Channel)
	if channel == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "channel required"})
		return
	}
	if h.helix != nil {
		exists, err := h.helix.ChannelExists(r.Context(), channel)
		if err != nil {
			telemetry.LoggerWithCorr(r.Context()).Warn("helix lookup failed, joining anyway", slog.String("channel", channel), slog.Any("err", err))
		} else if !exists {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "channel does not exist"})
			return
		}
	}
	if err := h.eng.JoinChannel(r.Context(), channel); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	telemetry.LoggerWithCorr(r.Context()).Info("channel switch requested", slog.String("channel", channel))
	writeJSON(w, http.StatusAccepted, map[string]string{"channel": channel, "status": "switching"})
}

// HandleIntake opens or closes the candidate intake gate.
func (h *Handlers) HandleIntake(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		Open *bool `json:"open"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Open == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "open required"})
		return
	}
	if err := h.eng.ToggleIntake(r.Context(), *body.Open); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"open": *body.Open})
}

// HandleAdvance moves queue consumption forward per the configured policy.
func (h *Handlers) HandleAdvance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.eng.Advance(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "advanced"})
}

// HandleJump consumes a candidate out of order by id.
func (h *Handlers) HandleJump(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		ID string `json:"id"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.ID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id required"})
		return
	}
	if err := h.eng.JumpTo(r.Context(), body.ID); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": body.ID})
}

// HandleQueueDispatcher routes DELETE /queue/{id} and DELETE /queue/user/{name}.
func (h *Handlers) HandleQueueDispatcher(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/queue/")
	if rest == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id required"})
		return
	}
	if name, ok := strings.CutPrefix(rest, "user/"); ok {
		if name == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user required"})
			return
		}
		if err := h.eng.RemoveByUser(r.Context(), name); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"user": engine.NormalizeUser(name)})
		return
	}
	if err := h.eng.Remove(r.Context(), rest); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": rest})
}

// HandleBan adds a user to the ban registry. Removal of queued candidates and
// the ban-list event are handled inside the engine.
func (h *Handlers) HandleBan(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body struct {
		User string `json:"user"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	user := engine.NormalizeUser(body.User)
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user required"})
		return
	}
	if err := h.eng.Ban(r.Context(), user); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	telemetry.LoggerWithCorr(r.Context()).Info("user banned via control surface", slog.String("user", user))
	writeJSON(w, http.StatusOK, map[string]string{"user": user})
}

// HandleUnban handles DELETE /bans/{name}.
func (h *Handlers) HandleUnban(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	name := strings.TrimPrefix(r.URL.Path, "/bans/")
	user := engine.NormalizeUser(name)
	if user == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user required"})
		return
	}
	if err := h.eng.Unban(r.Context(), user); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user": user})
}

// HandleClearSession leaves the channel and resets queue and intake gate.
func (h *Handlers) HandleClearSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.eng.ClearSession(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "engine unavailable"})
		return
	}
	telemetry.LoggerWithCorr(r.Context()).Info("session cleared")
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
