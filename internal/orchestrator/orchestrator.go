// ABOUTME: Drives one streaming exchange per submission against store and UI sink
// ABOUTME: Placeholder insertion, fragment accumulation, completion commit, error rollback

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brayanmnz/finassist/internal/chat"
	"github.com/brayanmnz/finassist/internal/llm"
)

// FallbackResponse replaces a fully blank completed answer so a committed
// assistant message is never empty.
const FallbackResponse = "No response generated."

// systemErrorPrefix starts the user-visible text of a rollback entry; the
// failure's description is appended to it.
const systemErrorPrefix = "Sorry, an error occurred while trying to respond: "

// DefaultStreamTimeout bounds an exchange that never completes or fails on
// its own.
const DefaultStreamTimeout = 2 * time.Minute

// ErrExchangeInFlight is returned when a submission arrives for a
// conversation that already has a pending or streaming exchange. The caller
// must wait for the terminal outcome before submitting again.
var ErrExchangeInFlight = errors.New("an exchange is already streaming for this conversation")

// ErrClosed is returned by Submit after Close.
var ErrClosed = errors.New("orchestrator is closed")

// StreamClient is what the orchestrator needs from the model layer.
type StreamClient interface {
	StreamChat(ctx context.Context, prompt string, prior []chat.ContextMessage) (<-chan llm.Event, error)
}

// Publisher receives every committed message for fan-out to collaborators.
type Publisher interface {
	Publish(conversationID string, msg *chat.Message)
}

// Recorder receives every committed message for durable transcript keeping.
type Recorder interface {
	Record(msg *chat.Message)
}

// Options configures optional orchestrator collaborators.
type Options struct {
	Publisher     Publisher     // nil disables fan-out
	Recorder      Recorder      // nil disables the transcript ledger
	StreamTimeout time.Duration // zero means DefaultStreamTimeout
	Identities    chat.Identities
	Logger        *slog.Logger
}

// Orchestrator turns user submissions into streamed assistant replies,
// reconciling each reply with the conversation's committed history. Every
// mutation that touches the UI sink or shared history runs on the
// conversation's apply loop; at most one exchange streams per conversation
// at a time.
type Orchestrator struct {
	store      *chat.ConversationStore
	client     StreamClient
	sink       UISink
	publisher  Publisher
	recorder   Recorder
	identities chat.Identities
	timeout    time.Duration
	logger     *slog.Logger

	mu       sync.Mutex
	closed   bool
	inflight map[string]*exchange
	loops    map[string]*applyLoop
	wg       sync.WaitGroup
}

// New creates an orchestrator.
func New(store *chat.ConversationStore, client StreamClient, sink UISink, opts Options) *Orchestrator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.StreamTimeout
	if timeout <= 0 {
		timeout = DefaultStreamTimeout
	}
	identities := opts.Identities
	if identities.Assistant.Name == "" {
		identities = chat.DefaultIdentities()
	}
	return &Orchestrator{
		store:      store,
		client:     client,
		sink:       sink,
		publisher:  opts.Publisher,
		recorder:   opts.Recorder,
		identities: identities,
		timeout:    timeout,
		logger:     logger.With("component", "orchestrator"),
		inflight:   make(map[string]*exchange),
		loops:      make(map[string]*applyLoop),
	}
}

// Submit starts one exchange for the conversation. Blank or whitespace-only
// text is silently ignored: no exchange, no history mutation, no model call.
// Returns ErrExchangeInFlight while a previous exchange on the same
// conversation has not reached a terminal state, and
// chat.ErrUnknownConversation for an id rejected by configuration.
//
// Results arrive asynchronously through the UI sink, publisher and store;
// a nil return only means the exchange was accepted (or ignored as blank).
func (o *Orchestrator) Submit(ctx context.Context, conversationID, sender, text string) error {
	if strings.TrimSpace(text) == "" {
		o.logger.Debug("ignoring blank submission", "conversation_id", conversationID)
		return nil
	}
	if !o.store.Valid(conversationID) {
		return chat.ErrUnknownConversation
	}
	if sender == "" {
		sender = "user"
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if _, busy := o.inflight[conversationID]; busy {
		o.mu.Unlock()
		return ErrExchangeInFlight
	}
	ex := &exchange{
		id:             uuid.New().String(),
		conversationID: conversationID,
		status:         StatusPending,
	}
	o.inflight[conversationID] = ex
	loop := o.loopLocked(conversationID)
	o.wg.Add(1)
	o.mu.Unlock()

	// Context for the model call is the committed prefix before this turn;
	// the new user text travels separately as the prompt.
	prior := chat.ModelContext(o.store.History(conversationID))
	userMsg := chat.NewMessage(conversationID, chat.RoleHuman, sender, text)

	loop.post(func() {
		if err := o.store.Append(conversationID, userMsg); err != nil {
			o.logger.Error("failed to append user message", "conversation_id", conversationID, "error", err)
		}
		o.record(userMsg)
		o.publish(userMsg)

		ex.placeholder = chat.NewProvisionalMessage(conversationID, o.identities.Assistant.Name)
		if err := o.store.Append(conversationID, ex.placeholder); err != nil {
			o.logger.Error("failed to append placeholder", "conversation_id", conversationID, "error", err)
		}
		ex.ref = o.sink.InsertPlaceholder(conversationID)
	})

	go o.runExchange(ex, loop, text, prior)

	o.logger.Debug("exchange started",
		"conversation_id", conversationID,
		"exchange_id", ex.id,
		"sender", sender)
	return nil
}

// Busy reports whether an exchange is currently pending or streaming on the
// conversation.
func (o *Orchestrator) Busy(conversationID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, busy := o.inflight[conversationID]
	return busy
}

// Close stops accepting submissions, waits for in-flight exchanges to reach
// a terminal state, then drains and stops every apply loop.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	o.mu.Unlock()

	o.wg.Wait()

	o.mu.Lock()
	loops := o.loops
	o.loops = make(map[string]*applyLoop)
	o.mu.Unlock()

	for _, loop := range loops {
		loop.stop()
	}
}

// loopLocked returns the conversation's apply loop, creating it on first
// touch. Caller holds o.mu.
func (o *Orchestrator) loopLocked(conversationID string) *applyLoop {
	loop, ok := o.loops[conversationID]
	if !ok {
		loop = newApplyLoop()
		o.loops[conversationID] = loop
	}
	return loop
}

// runExchange consumes the fragment stream on the producer side and posts
// each application onto the conversation's apply loop in arrival order. The
// exchange survives caller cancellation: a detached UI must not lose a
// completed answer, so only the stream timeout bounds it.
func (o *Orchestrator) runExchange(ex *exchange, loop *applyLoop, prompt string, prior []chat.ContextMessage) {
	defer o.wg.Done()

	streamCtx, cancel := context.WithTimeout(context.Background(), o.timeout)
	defer cancel()

	events, err := o.client.StreamChat(streamCtx, prompt, prior)
	if err != nil {
		loop.post(func() { o.rollback(ex, err) })
		return
	}

	terminal := false
	for ev := range events {
		switch ev.Kind {
		case llm.EventFragment:
			fragment := ev.Text
			loop.post(func() { o.applyFragment(ex, fragment) })
		case llm.EventDone:
			terminal = true
			loop.post(func() { o.commit(ex) })
		case llm.EventError:
			terminal = true
			cause := ev.Err
			loop.post(func() { o.rollback(ex, cause) })
		}
	}
	if !terminal {
		loop.post(func() { o.rollback(ex, fmt.Errorf("stream closed without completion")) })
	}
}

// applyFragment runs on the apply loop. Leading blank fragments are
// swallowed so an empty bubble never flashes; every applied fragment
// replaces the placeholder's full content.
func (o *Orchestrator) applyFragment(ex *exchange, fragment string) {
	if ex.terminal() {
		return
	}
	if ex.buffer.Len() == 0 && strings.TrimSpace(fragment) == "" {
		return
	}

	ex.status = StatusStreaming
	ex.buffer.WriteString(fragment)
	ex.placeholder.Text = ex.buffer.String()

	if o.sink.Alive(ex.conversationID) {
		o.sink.Mutate(ex.conversationID, ex.ref, ex.buffer.String())
	}
}

// commit runs on the apply loop after every prior fragment application.
// The committed answer replaces the provisional placeholder in history even
// when the sink is gone; only the display-side mutation is skipped then.
func (o *Orchestrator) commit(ex *exchange) {
	if ex.terminal() {
		return
	}

	final := strings.TrimSpace(ex.buffer.String())
	if final == "" {
		final = FallbackResponse
	}

	// The provisional placeholder is the conversation's last entry; swap it
	// for the committed answer in place.
	msg := chat.NewMessage(ex.conversationID, chat.RoleAssistant, o.identities.Assistant.Name, final)
	o.store.ReplaceLast(ex.conversationID, msg)

	if o.sink.Alive(ex.conversationID) {
		o.sink.Remove(ex.conversationID, ex.ref)
	}

	// Release the single-flight slot before fan-out: a client that resubmits
	// the moment it sees the terminal message must not be rejected.
	ex.status = StatusCompleted
	o.finish(ex)

	o.record(msg)
	o.publish(msg)

	o.logger.Debug("exchange committed",
		"conversation_id", ex.conversationID,
		"exchange_id", ex.id,
		"chars", len(final))
}

// rollback runs on the apply loop. The placeholder is excised from display
// and, defensively, from history; a committed system-error entry takes its
// place. The cause is logged and never re-raised.
func (o *Orchestrator) rollback(ex *exchange, cause error) {
	if ex.terminal() {
		return
	}

	if o.sink.Alive(ex.conversationID) && ex.ref != "" {
		o.sink.Remove(ex.conversationID, ex.ref)
	}
	if ex.placeholder != nil {
		o.store.RemoveIfPresent(ex.conversationID, ex.placeholder.ID)
	}

	msg := chat.NewMessage(ex.conversationID, chat.RoleSystemError,
		o.identities.SystemError.Name, systemErrorPrefix+cause.Error())
	if err := o.store.Append(ex.conversationID, msg); err != nil {
		o.logger.Error("failed to append system-error message",
			"conversation_id", ex.conversationID,
			"error", err)
	}

	if errors.Is(cause, context.DeadlineExceeded) {
		ex.status = StatusTimedOut
	} else {
		ex.status = StatusFailed
	}
	o.finish(ex)

	o.record(msg)
	o.publish(msg)

	o.logger.Error("exchange rolled back",
		"conversation_id", ex.conversationID,
		"exchange_id", ex.id,
		"status", ex.status.String(),
		"error", cause)
}

// finish releases the conversation's single-flight slot.
func (o *Orchestrator) finish(ex *exchange) {
	o.mu.Lock()
	delete(o.inflight, ex.conversationID)
	o.mu.Unlock()
}

func (o *Orchestrator) publish(msg *chat.Message) {
	if o.publisher != nil {
		o.publisher.Publish(msg.ConversationID, msg)
	}
}

func (o *Orchestrator) record(msg *chat.Message) {
	if o.recorder != nil {
		o.recorder.Record(msg)
	}
}
