// Package session implements the conversational session manager for one
// scope: it sends user messages to the answer backend, assembles the
// streamed response into committed messages, and manages conversation
// lifecycle (restoration, persistence, retry, cancellation).
//
// # State machine
//
// A session is Idle, Sending or Streaming. Send appends an optimistic user
// message, opens a stream and consumes it to a terminal event; done commits
// one assistant message, a protocol or transport error records lastError
// and keeps the user message for retry, and Stop commits whatever partial
// content had accumulated. At most one exchange streams at a time; a
// concurrent Send returns ErrBusy without touching state.
//
// # Staleness guard
//
// Every exchange captures a generation number. Stop, teardown, reset and a
// new exchange increment it; any continuation arriving afterwards compares
// generations and discards its mutation silently. This is what keeps a
// slow, superseded exchange from corrupting newer session state.
//
// # Events
//
// Sessions publish on an event bus (see internal/event) so renderers and
// logs can observe streaming deltas, committed messages and state changes
// without polling Snapshot.
package session
