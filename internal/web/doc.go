// Package web serves the finassist chat UI and its HTTP API.
//
// # Endpoints
//
//	GET  /                                        chat page
//	GET  /healthz                                 liveness probe
//	GET  /api/conversations                       configured conversation ids
//	POST /api/conversations/{id}/messages         submit a message
//	GET  /api/conversations/{id}/history          committed transcript
//	GET  /api/conversations/{id}/stream           SSE display updates
//
// # Streaming
//
// The SSE stream carries two kinds of traffic: placeholder lifecycle events
// (placeholder, update, remove) published by the Sink while an exchange is
// accumulating, and committed message events fanned out by the broadcaster
// once an exchange settles. Update events always carry the full accumulated
// text, so clients replace rather than append.
//
// The Hub tracks attached SSE sessions per conversation; the Sink reports a
// conversation alive while at least one session is attached. Streaming to a
// conversation nobody watches degrades to history-only commits.
//
// # Submission semantics
//
//	202  exchange accepted and streaming
//	204  blank text, silently ignored
//	200  duplicate message_id within the dedupe window, dropped
//	404  conversation not in the allow-list
//	409  an exchange is already in flight for the conversation
package web
