// Package api provides the REST client for the lotto/mining API.
//
// Endpoints:
//   - POST api/v1/mining/energy       synchronous (low-effort) entropy
//   - POST api/v1/mining/energy/high  asynchronous (high-effort) entropy ack
//   - GET  api/lotto/tickets          ticket list (auth)
//   - POST api/lotto/tickets          ticket creation (auth)
//   - GET  api/lotto/tickets/{id}     ticket detail (auth)
//   - GET  api/lotto/tickets/{id}/attempts  attempt history (auth)
//   - GET  api/lotto/stats            aggregate stats (auth)
//
// The high-entropy endpoint only acknowledges the submission; the real
// result arrives over the push channel (see internal/correlate).
package api
