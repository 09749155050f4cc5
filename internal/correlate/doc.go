// Package correlate matches asynchronous submissions to their eventual
// push-channel completion events.
//
// A submission yields a server-assigned request id; the result arrives later
// as a disjoint push event carrying the same id. Await turns that pattern
// into an ordinary blocking wait with timeout and cancellation. The pending
// entry, its router subscription, and its delivery room are registered
// before Await returns, so a completion can never race ahead of the caller
// starting to listen. Every exit path (completion, timeout, cancellation)
// releases the timer, the subscription, and the room.
package correlate
