// Package model defines shared data types for the lotto client.
//
// Conventions:
//   - JSON tags mirror the wire contract of the lotto/mining API
//   - Ticket and attempt timestamps are RFC 3339 strings as sent by the
//     server; block timestamps are Unix seconds
//   - IDs are opaque strings assigned by the server
package model
