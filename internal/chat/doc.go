// Package chat defines the conversation data model shared across the
// application.
//
// # Messages
//
// A Message is either provisional or committed:
//
//   - Provisional: still streaming. Its text is mutable, it exists only as a
//     display placeholder, and it is never replayed into model context.
//   - Committed: finalized and immutable. Committed human and assistant
//     messages become model context for subsequent turns.
//
// System-error messages are committed immediately but are display-only; they
// are never sent back to the model.
//
// # ConversationStore
//
// The ConversationStore keeps the ordered history of each conversation in
// memory:
//
//	store := chat.NewConversationStore(nil)
//	store.Append("general", chat.NewMessage("general", chat.RoleHuman, "you", "Hello"))
//	history := store.History("general") // snapshot, insertion order
//
// History returns snapshots: appends made after the call never mutate a
// slice that was already handed out. Conversations are created lazily on
// first touch unless an allow-list was configured, in which case unknown
// ids fail with ErrUnknownConversation.
//
// # Model context
//
// ModelContext turns a history snapshot into the role-tagged entries the
// model client replays on a new turn (human → "user", assistant →
// "assistant", system-error excluded).
package chat
