// ABOUTME: HTTP server exposing the chat API, SSE stream and web page
// ABOUTME: POST submits exchanges, GET /stream pushes display updates to the browser

package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/brayanmnz/finassist/internal/broadcast"
	"github.com/brayanmnz/finassist/internal/chat"
	"github.com/brayanmnz/finassist/internal/dedupe"
	"github.com/brayanmnz/finassist/internal/orchestrator"
)

const heartbeatInterval = 30 * time.Second

// ExchangeSubmitter starts a new exchange for a conversation.
type ExchangeSubmitter interface {
	Submit(ctx context.Context, conversationID, sender, text string) error
}

// Server serves the chat page, the message API and the SSE event stream.
type Server struct {
	store         *chat.ConversationStore
	submitter     ExchangeSubmitter
	hub           *Hub
	broadcaster   *broadcast.Broadcaster
	dedupe        *dedupe.Cache
	conversations []string
	logger        *slog.Logger
}

func NewServer(
	store *chat.ConversationStore,
	submitter ExchangeSubmitter,
	hub *Hub,
	broadcaster *broadcast.Broadcaster,
	dedupeCache *dedupe.Cache,
	conversations []string,
	logger *slog.Logger,
) *Server {
	if len(conversations) == 0 {
		conversations = []string{"general"}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:         store,
		submitter:     submitter,
		hub:           hub,
		broadcaster:   broadcaster,
		dedupe:        dedupeCache,
		conversations: conversations,
		logger:        logger.With("component", "web"),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/", s.handleIndex)
	r.Get("/healthz", s.handleHealth)

	r.Get("/api/conversations", s.handleConversations)
	r.Route("/api/conversations/{conversation}", func(r chi.Router) {
		r.Post("/messages", s.handleSendMessage)
		r.Get("/history", s.handleHistory)
		r.Get("/stream", s.handleStream)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"conversations": s.conversations})
}

// sendMessageRequest is the POST /messages body. MessageID is the client's
// idempotency key; submissions reusing one within the dedupe window are
// dropped.
type sendMessageRequest struct {
	MessageID string `json:"message_id"`
	Sender    string `json:"sender"`
	Text      string `json:"text"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.MessageID != "" && s.dedupe.CheckAndMark(req.MessageID) {
		s.logger.Info("dropping duplicate submission",
			"conversation_id", conversationID,
			"message_id", req.MessageID)
		writeJSON(w, http.StatusOK, map[string]string{"status": "duplicate"})
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		s.forget(req.MessageID)
		w.WriteHeader(http.StatusNoContent)
		return
	}

	sender := req.Sender
	if sender == "" {
		sender = "You"
	}

	err := s.submitter.Submit(r.Context(), conversationID, sender, req.Text)
	if err != nil {
		// The submission was not processed, so its idempotency key must not
		// answer a retry as a duplicate.
		s.forget(req.MessageID)
	}
	switch {
	case err == nil:
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
	case errors.Is(err, chat.ErrUnknownConversation):
		writeError(w, http.StatusNotFound, "unknown conversation")
	case errors.Is(err, orchestrator.ErrExchangeInFlight):
		writeError(w, http.StatusConflict, "a response is already streaming")
	case errors.Is(err, orchestrator.ErrClosed):
		writeError(w, http.StatusServiceUnavailable, "shutting down")
	default:
		s.logger.Error("failed to submit message",
			"conversation_id", conversationID,
			"error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// forget releases a rejected submission's idempotency key.
func (s *Server) forget(messageID string) {
	if messageID != "" {
		s.dedupe.Forget(messageID)
	}
}

// messageView is one history entry as the client sees it.
type messageView struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	HTML      string    `json:"html,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation")
	if !s.store.Valid(conversationID) {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}

	history := s.store.History(conversationID)
	views := make([]messageView, 0, len(history))
	for _, msg := range history {
		if msg.Provisional {
			continue
		}
		views = append(views, messageView{
			ID:        msg.ID,
			Role:      string(msg.Role),
			Author:    msg.Author,
			Text:      msg.Text,
			HTML:      renderHTML(msg, s.logger),
			Timestamp: msg.Timestamp,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"conversation_id": conversationID,
		"messages":        views,
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversation")
	if !s.store.Valid(conversationID) {
		writeError(w, http.StatusNotFound, "unknown conversation")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	events, sessionID := s.hub.Subscribe(conversationID)
	defer s.hub.Unsubscribe(conversationID, sessionID)

	committed, subID := s.broadcaster.Subscribe(r.Context(), conversationID)
	defer s.broadcaster.Unsubscribe(conversationID, subID)

	fmt.Fprintf(w, "event: connected\ndata: {\"conversation_id\": %q}\n\n", conversationID)
	flusher.Flush()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()

		case ev, ok := <-events:
			if !ok {
				return
			}
			s.writeEvent(w, flusher, ev)

		case msg, ok := <-committed:
			if !ok {
				return
			}
			s.writeEvent(w, flusher, messageEvent(msg, renderHTML(msg, s.logger)))
		}
	}
}

func (s *Server) writeEvent(w http.ResponseWriter, flusher http.Flusher, ev *StreamEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal stream event", "type", ev.Type, "error", err)
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	flusher.Flush()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
