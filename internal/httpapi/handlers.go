package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/arjunv/foldersync/internal/config"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if v == nil {
		return
	}

	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// handleStatus serves GET /api/status (§6's status payload).
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Engine.Status())
}

// handleGetConfig serves GET /api/config.
func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Holder.Config())
}

// handleSetConfig serves POST /api/config, replacing the stored
// configuration after validation and persisting it atomically.
func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var cfg config.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	if err := s.Holder.Update(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	writeJSON(w, http.StatusOK, s.Holder.Config())
}

// handleHistory serves GET /api/history?limit=&offset= (§4.11).
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)

	events, err := s.History.Get(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)

		return
	}

	writeJSON(w, http.StatusOK, events)
}

func queryInt(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}

	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}

	return n
}

// handleTrigger serves POST /api/sync/trigger.
func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Trigger(r.Context()); err != nil {
		writeError(w, http.StatusConflict, err)

		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "triggered"})
}

// handleStart serves POST /api/sync/start.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(context.Background(), startTimeout)
	defer cancel()

	if err := s.Engine.Start(ctx); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	writeJSON(w, http.StatusOK, s.Engine.Status())
}

const startTimeout = 60 * time.Second

// handleStop serves POST /api/sync/stop.
func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.Stop(); err != nil {
		writeError(w, http.StatusConflict, err)

		return
	}

	writeJSON(w, http.StatusOK, s.Engine.Status())
}

// webhookNotification mirrors the shape of a Graph-API change
// notification payload (clientState plus a list of changed resources).
type webhookNotification struct {
	Value []struct {
		ClientState string `json:"clientState"`
		Resource    string `json:"resource"`
	} `json:"value"`
}

// handleWebhook serves POST /api/webhook, the incoming push-notification
// receiver (§6: "optional push-notification receiver"). A valid
// notification short-circuits the next poll by triggering an immediate
// reconciliation instead of waiting for poll_interval to elapse. Disabled
// unless webhook_enabled is set, matching the original's
// WEBHOOK_ENABLED=False default.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	cfg := s.Holder.Config()
	if !cfg.WebhookEnabled {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "webhooks disabled"})

		return
	}

	var note webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&note); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	s.Logger.Info("webhook notification received", slog.Int("resource_count", len(note.Value)))

	if err := s.Engine.Trigger(r.Context()); err != nil {
		s.Logger.Debug("webhook-triggered sync not started", slog.String("error", err.Error()))
	}

	writeJSON(w, http.StatusAccepted, nil)
}
