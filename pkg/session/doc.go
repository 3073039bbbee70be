/*
Package session implements session management and per-customer concurrency control.

The Manager loads, validates and saves Session records under a short in-process
(and optionally distributed) lock. The Coordinator builds on it to give each
customer a single processing owner: inbound messages are queued in the session
record, the first arrival acquires the processing lock, waits for a debounce
window so bursts coalesce into one turn, and hands the aggregated input to a
Handler. Locks older than the stale threshold are reclaimed by the next message.
*/
package session
