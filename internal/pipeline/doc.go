// Package pipeline runs image-to-text extraction off the interactive
// goroutine with a single-flight guarantee.
//
// A Pipeline accepts at most one request at a time. Submit never blocks: it
// either starts a background goroutine and returns the accepted Request, or
// rejects the call with a *Failure of kind KindEngineNotReady or KindBusy.
// Rejected requests are dropped, never queued.
//
// The background goroutine checks the path, decodes the image, calls the
// recognition engine, joins fragments with newlines, writes the sidecar file
// ("<stem>_txt.txt" next to the image) and then publishes exactly one outcome
// through the Notifier. The busy flag is released on every exit path,
// including engine panics.
//
// Sidecar persistence is best effort. A write failure is logged as
// KindPersistence and the result is still published as a success.
//
// # Notifications
//
// The worker only hands immutable values to the Notifier. Dispatcher is a
// Notifier that queues those values for the interactive goroutine, which
// drains them and remains the only writer of presentation state.
package pipeline
