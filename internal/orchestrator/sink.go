// ABOUTME: UISink contract consumed by the orchestrator for display mutations
// ABOUTME: Mutations are idempotent total replacements applied on one serialized queue

package orchestrator

// PlaceholderRef identifies a provisional display element within a
// conversation's rendering target.
type PlaceholderRef string

// UISink is the presentation-side consumer of ordered display mutations.
// Implementations serialize all mutations for one conversation onto a single
// logical update queue. Every Mutate call is a total replacement of the
// element's content, never an append, so re-applying the same displayed state
// is harmless.
//
// A sink that is no longer alive turns display mutation into a no-op; it is
// a degraded condition, not an error.
type UISink interface {
	// Alive reports whether the conversation's rendering target still exists.
	Alive(conversationID string) bool

	// InsertPlaceholder adds an empty pending assistant entry and returns a
	// reference for later mutation and removal.
	InsertPlaceholder(conversationID string) PlaceholderRef

	// Mutate replaces the placeholder's content with fullText.
	Mutate(conversationID string, ref PlaceholderRef, fullText string)

	// Remove deletes the placeholder from the display.
	Remove(conversationID string, ref PlaceholderRef)
}
