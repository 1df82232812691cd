// ABOUTME: HTTP-level tests for the chat API and SSE stream
// ABOUTME: Uses a stub submitter; streaming is exercised against a live httptest server

package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brayanmnz/finassist/internal/broadcast"
	"github.com/brayanmnz/finassist/internal/chat"
	"github.com/brayanmnz/finassist/internal/dedupe"
	"github.com/brayanmnz/finassist/internal/orchestrator"
)

type stubSubmitter struct {
	mu    sync.Mutex
	calls []submission
	err   error
}

type submission struct {
	conversationID string
	sender         string
	text           string
}

func (s *stubSubmitter) Submit(_ context.Context, conversationID, sender, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, submission{conversationID, sender, text})
	return s.err
}

func (s *stubSubmitter) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

type testServer struct {
	server      *Server
	store       *chat.ConversationStore
	submitter   *stubSubmitter
	hub         *Hub
	broadcaster *broadcast.Broadcaster
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := chat.NewConversationStore([]string{"budget", "savings"})
	submitter := &stubSubmitter{}
	hub := NewHub(nil)
	broadcaster := broadcast.New(nil)
	cache := dedupe.New(time.Minute, 100)
	t.Cleanup(func() {
		hub.Close()
		broadcaster.Close()
		cache.Close()
	})
	return &testServer{
		server:      NewServer(store, submitter, hub, broadcaster, cache, []string{"budget", "savings"}, nil),
		store:       store,
		submitter:   submitter,
		hub:         hub,
		broadcaster: broadcaster,
	}
}

func postMessage(t *testing.T, handler http.Handler, conversation string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/"+conversation+"/messages", bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServer_SendMessageAccepted(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	rec := postMessage(t, router, "budget", sendMessageRequest{Sender: "You", Text: "How much did I spend?"})

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, ts.submitter.callCount())
	assert.Equal(t, submission{"budget", "You", "How much did I spend?"}, ts.submitter.calls[0])
}

func TestServer_SendMessageBlankReturnsNoContent(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	rec := postMessage(t, router, "budget", sendMessageRequest{Sender: "You", Text: "   \n\t"})

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, ts.submitter.callCount())
}

func TestServer_SendMessageDuplicateDropped(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	body := sendMessageRequest{MessageID: "msg-1", Sender: "You", Text: "hello"}
	first := postMessage(t, router, "budget", body)
	second := postMessage(t, router, "budget", body)

	assert.Equal(t, http.StatusAccepted, first.Code)
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Contains(t, second.Body.String(), "duplicate")
	assert.Equal(t, 1, ts.submitter.callCount())
}

func TestServer_RejectedSubmissionReleasesIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	body := sendMessageRequest{MessageID: "msg-1", Sender: "You", Text: "hello"}

	ts.submitter.err = orchestrator.ErrExchangeInFlight
	first := postMessage(t, router, "budget", body)
	require.Equal(t, http.StatusConflict, first.Code)

	// A retry with the same id must be processed, not dropped as a duplicate.
	ts.submitter.err = nil
	retry := postMessage(t, router, "budget", body)
	assert.Equal(t, http.StatusAccepted, retry.Code)
	assert.Equal(t, 2, ts.submitter.callCount())
}

func TestServer_BlankSubmissionReleasesIdempotencyKey(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	blank := postMessage(t, router, "budget", sendMessageRequest{MessageID: "msg-1", Text: "  \n"})
	require.Equal(t, http.StatusNoContent, blank.Code)

	retry := postMessage(t, router, "budget", sendMessageRequest{MessageID: "msg-1", Text: "hello"})
	assert.Equal(t, http.StatusAccepted, retry.Code)
	assert.Equal(t, 1, ts.submitter.callCount())
}

func TestServer_SendMessageDefaultsSender(t *testing.T) {
	ts := newTestServer(t)
	router := ts.server.Router()

	postMessage(t, router, "budget", sendMessageRequest{Text: "hello"})

	require.Equal(t, 1, ts.submitter.callCount())
	assert.Equal(t, "You", ts.submitter.calls[0].sender)
}

func TestServer_SendMessageErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"unknown conversation", chat.ErrUnknownConversation, http.StatusNotFound},
		{"exchange in flight", orchestrator.ErrExchangeInFlight, http.StatusConflict},
		{"closed", orchestrator.ErrClosed, http.StatusServiceUnavailable},
		{"other", assert.AnError, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.submitter.err = tc.err
			rec := postMessage(t, ts.server.Router(), "budget", sendMessageRequest{Text: "hello"})
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestServer_SendMessageInvalidBody(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/conversations/budget/messages", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_HistoryOmitsProvisionalAndRendersMarkdown(t *testing.T) {
	ts := newTestServer(t)

	require.NoError(t, ts.store.Append("budget", chat.NewMessage("budget", chat.RoleHuman, "You", "What is compounding?")))
	require.NoError(t, ts.store.Append("budget", chat.NewMessage("budget", chat.RoleAssistant, "AI Assistant", "**Compounding** grows savings.")))
	require.NoError(t, ts.store.Append("budget", chat.NewProvisionalMessage("budget", "AI Assistant")))

	req := httptest.NewRequest(http.MethodGet, "/api/conversations/budget/history", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ConversationID string        `json:"conversation_id"`
		Messages       []messageView `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Messages, 2)
	assert.Equal(t, "human", resp.Messages[0].Role)
	assert.Empty(t, resp.Messages[0].HTML)
	assert.Equal(t, "assistant", resp.Messages[1].Role)
	assert.Contains(t, resp.Messages[1].HTML, "<strong>Compounding</strong>")
}

func TestServer_HistoryUnknownConversation(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations/unlisted/history", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_ConversationsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Conversations []string `json:"conversations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"budget", "savings"}, resp.Conversations)
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}

func TestServer_IndexServesPage(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "finassist")
}

func TestServer_StreamDeliversEvents(t *testing.T) {
	ts := newTestServer(t)
	httpServer := httptest.NewServer(ts.server.Router())
	defer httpServer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, httpServer.URL+"/api/conversations/budget/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	// Wait for the subscription to land, then drive the stream.
	require.Eventually(t, func() bool {
		return ts.hub.SubscriberCount("budget") == 1
	}, time.Second, 10*time.Millisecond)

	sink := NewSink(ts.hub)
	ref := sink.InsertPlaceholder("budget")
	sink.Mutate("budget", ref, "You spent")
	sink.Remove("budget", ref)
	ts.broadcaster.Publish("budget", chat.NewMessage("budget", chat.RoleAssistant, "AI Assistant", "You spent **$42**."))

	var types []string
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			types = append(types, strings.TrimPrefix(line, "event: "))
		}
		seenAll := indexOf(types, eventPlaceholder) >= 0 &&
			indexOf(types, eventUpdate) >= 0 &&
			indexOf(types, eventRemove) >= 0 &&
			indexOf(types, eventMessage) >= 0
		if seenAll {
			break
		}
	}

	// Placeholder lifecycle events share one channel, so their relative
	// order is guaranteed; the committed message may interleave anywhere.
	require.NotEmpty(t, types)
	assert.Equal(t, "connected", types[0])
	assert.Less(t, indexOf(types, eventPlaceholder), indexOf(types, eventUpdate))
	assert.Less(t, indexOf(types, eventUpdate), indexOf(types, eventRemove))
	assert.GreaterOrEqual(t, indexOf(types, eventMessage), 1)
}

func indexOf(list []string, want string) int {
	for i, v := range list {
		if v == want {
			return i
		}
	}
	return -1
}

func TestServer_StreamUnknownConversation(t *testing.T) {
	ts := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/conversations/unlisted/stream", nil)
	rec := httptest.NewRecorder()
	ts.server.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
