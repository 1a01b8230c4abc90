// Package audit implements async event dispatching for token lifecycle operations.
//
//   - [Sink] receives events (channel, JSON writer, no-op).
//   - [Dispatcher] is a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event] is one structured audit record.
//
// This package does not decide which events to emit; the engine does.
package audit
