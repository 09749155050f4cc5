// Package router demultiplexes push-channel envelopes to subscribers.
//
// Subscriptions are opaque per-registration handles: many independent
// subscribers can watch the same event name, each with its own predicate,
// and removing one never disturbs the others. Dispatch is serialized through
// a single goroutine, so no two handlers run concurrently.
package router
