// Package connection manages the single long-lived push channel to the
// lotto server: an authenticated websocket carrying JSON event envelopes.
//
// The Manager owns one Client, reconnects with exponential backoff after
// unexpected drops, and replays every joined room on reconnect; the server
// does not remember room membership across connections.
package connection
