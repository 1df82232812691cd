// Package dedupe provides submission deduplication using a time-based cache
// so a redelivered collaboration submission starts at most one exchange.
package dedupe
