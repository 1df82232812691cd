// Package orchestrator turns a user submission into a token-by-token
// streamed assistant reply and reconciles the result with the conversation's
// committed history.
//
// # Exchange lifecycle
//
// Each non-blank submission creates one StreamingExchange:
//
//	Created → Placeholder-Inserted → Accumulating → {Committed | RolledBack}
//
//   - A provisional placeholder is inserted into the UI sink for immediate
//     feedback and appended to the store as a provisional entry, which is
//     excluded from model context and history reads.
//   - Each arriving fragment is appended to an accumulation buffer and the
//     placeholder content is replaced with the full accumulated text so far.
//     Leading blank fragments are swallowed.
//   - On completion the trimmed text (or a fixed fallback when blank)
//     replaces the provisional entry in the store and the placeholder is
//     removed from the display.
//   - On failure or timeout the placeholder is removed and a committed
//     system-error entry takes its place. The cause is logged, never
//     re-raised.
//
// # Ordering and concurrency
//
// Fragment delivery happens on a producer goroutine independent of the
// presentation context. Every mutation that touches the UI sink or shared
// history is posted onto the conversation's single apply loop, so within one
// exchange fragments apply in arrival order and the terminal commit/rollback
// applies after the last fragment. Different conversations are independent.
//
// At most one exchange may stream per conversation: Submit returns
// ErrExchangeInFlight until the previous exchange reaches a terminal state.
//
// # Degraded display
//
// If the rendering target detaches mid-stream, fragment application becomes
// a no-op but the exchange still runs to its terminal state, and a completed
// answer is still committed to history. Losing a generated answer is worse
// than a harmless skipped render.
package orchestrator
