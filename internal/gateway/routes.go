package gateway

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorkbot/gork/internal/domain"
)

// maxWebhookBody caps webhook payloads. Media arrives as ids, not bytes,
// so real events are far smaller.
const maxWebhookBody = 8 << 20

// registerHTTPRoutes sets up all HTTP routes on the server mux.
func (s *Server) registerHTTPRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST "+s.cfg.WebhookPath, s.handleWebhook)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ws", s.handleWebSocket)

	mux.HandleFunc("/", handleNotFound)
}

// registerRPCHandlers sets up the methods operators may call on the feed.
func (s *Server) registerRPCHandlers() {
	s.Handle("health", s.rpcHealth)
}

func (s *Server) rpcHealth(rc *RequestContext) {
	rc.Respond(HealthResponse{
		Status:        "ok",
		Version:       s.version,
		Clients:       s.clients.Count(),
		DroppedEvents: s.clients.Dropped(),
		UptimeSeconds: int64(s.Uptime().Seconds()),
	})
}

// handleWebhook accepts an Evolution API event, authenticates it by the
// instance key carried in the body and queues it for the pipeline.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "reading body failed"})
		return
	}
	if len(body) > maxWebhookBody {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "body too large"})
		return
	}

	var ev domain.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		s.log.Debug().Err(err).Str("remote", r.RemoteAddr).Msg("rejecting malformed webhook")
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	if s.instanceKey == "" || !safeEqual(ev.APIKey, s.instanceKey) {
		s.log.Warn().Str("remote", r.RemoteAddr).Str("instance", ev.Instance).Msg("rejecting webhook with bad apikey")
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
		return
	}

	if !ev.IsMessageUpsert() {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	if err := s.sink.Submit(&ev); err != nil {
		s.log.Warn().Err(err).Str("messageId", ev.Data.Key.ID).Msg("shedding webhook event")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "busy"})
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]string{"status": "received"})
}
