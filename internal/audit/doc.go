// Package audit delivers auth events to pluggable sinks.
//
// # Components
//
//   - [Sink] consumers: no-op, channel, JSON lines writer, zap logger.
//   - [Dispatcher] buffered async relay with drop-if-full or block-if-full.
//   - [Event] one record: type, role, principal, IP, request id, outcome.
//
// # What this package must NOT do
//
//   - Decide which events exist; the engine owns the event vocabulary.
//   - Import eduAuth or any sibling internal package.
package audit
