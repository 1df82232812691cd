// ABOUTME: In-memory fan-out of committed messages for cross-client sharing
// ABOUTME: Subscribers register per conversation and receive entries as they commit

package broadcast

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/brayanmnz/finassist/internal/chat"
)

// subscriberBufferSize is the channel buffer for each subscriber.
const subscriberBufferSize = 64

// Broadcaster provides in-memory pub/sub for committed conversation entries.
// Every participant viewing a conversation subscribes to it and sees messages
// as they commit, which is what turns a single submission into a shared,
// multi-user chat. Publish never blocks: a slow subscriber drops entries
// rather than stalling the exchange that produced them.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan *chat.Message // conversationID -> subID -> ch
	logger      *slog.Logger
}

// New creates a broadcaster. Pass nil logger for the default.
func New(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan *chat.Message),
		logger:      logger.With("component", "broadcast"),
	}
}

// Subscribe registers a subscriber for the conversation. The subscription is
// cleaned up automatically when ctx is cancelled; the returned id allows
// explicit unsubscription.
func (b *Broadcaster) Subscribe(ctx context.Context, conversationID string) (<-chan *chat.Message, string) {
	subID := uuid.New().String()
	ch := make(chan *chat.Message, subscriberBufferSize)

	b.mu.Lock()
	if _, ok := b.subscribers[conversationID]; !ok {
		b.subscribers[conversationID] = make(map[string]chan *chat.Message)
	}
	b.subscribers[conversationID][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added",
		"conversation_id", conversationID,
		"sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(conversationID, subID)
	}()

	return ch, subID
}

// Publish delivers a committed message to every subscriber of the
// conversation. Entries are dropped for subscribers whose channels are full.
func (b *Broadcaster) Publish(conversationID string, msg *chat.Message) {
	b.mu.RLock()
	subs, ok := b.subscribers[conversationID]
	if !ok || len(subs) == 0 {
		b.mu.RUnlock()
		return
	}
	targets := make([]chan *chat.Message, 0, len(subs))
	for _, ch := range subs {
		targets = append(targets, ch)
	}
	b.mu.RUnlock()

	for _, ch := range targets {
		select {
		case ch <- msg:
		default:
			b.logger.Debug("dropped message for slow subscriber",
				"conversation_id", conversationID,
				"message_id", msg.ID)
		}
	}
}

// SubscriberCount returns the number of active subscribers for the
// conversation. Used to decide whether a rendering target is still alive.
func (b *Broadcaster) SubscriberCount(conversationID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[conversationID])
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(conversationID, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[conversationID]
	if !ok {
		return
	}
	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, conversationID)
	}

	b.logger.Debug("subscriber removed",
		"conversation_id", conversationID,
		"sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for conversationID, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, conversationID)
	}

	b.logger.Debug("broadcaster closed")
}
