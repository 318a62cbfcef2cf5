// Package bridge exposes the extraction pipeline to a front-end process over
// stdio.
//
// # Protocol
//
// JSON-RPC 2.0, one message per line:
//   - Input: requests on stdin
//   - Output: responses and notifications on stdout
//
// Methods:
//   - initialize: handshake, returns server info and the method list
//   - ping: health check
//   - ocr/submit: start recognition of {path} or of the first file in a
//     {drop} payload
//   - ocr/state: current session snapshot plus engine readiness
//   - session/clear, session/copy, session/save, session/fontSize
//
// Notifications sent by the server:
//   - ocr/statusChanged: {message, severity}
//   - ocr/resultReady: recognized text, fragments and a PNG thumbnail
//   - ocr/failure: {requestId, sourcePath, kind, message}
//
// # Threading
//
// Run owns the session. Requests and pipeline events are handled on the same
// goroutine, so the front-end observes events in publication order and
// responses are never interleaved with notifications on the wire.
//
// # Error Handling
//
// Rejected submissions use application codes: -32001 when a recognition is
// already running and -32002 while the engine is still initializing. Copy or
// save with an empty session returns -32003. Standard JSON-RPC codes are used
// for malformed params (-32602) and unknown methods (-32601).
package bridge
