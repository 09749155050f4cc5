// Package ticket holds the authoritative client-side view of tickets and
// aggregate stats.
//
// Push events merge idempotently: counters are always set from the
// authoritative server-supplied values in the payload, never incremented
// locally. Several event kinds can describe the same underlying attempt
// (ticket activity, block found, entropy completion); blind increments from
// each would double count. When a payload carries no authoritative counters
// the store requests a targeted refetch instead of guessing.
package ticket
