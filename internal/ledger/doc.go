// Package ledger persists committed conversation entries to SQLite.
//
// The ledger is an audit transcript, not a source of truth: the in-memory
// ConversationStore owns the history used for model context, and a failed
// ledger write never fails the exchange that produced it.
package ledger
