/*
Package ports defines the driven ports (interfaces) of the ordering bot.

These interfaces decouple the conversation core from external implementations,
allowing it to work with various storage backends, messaging providers and
language services.

# Key Interfaces

  - SessionStore: Persists and loads customer Sessions.
  - DistributedLocker: Provides distributed locking for concurrent session access.
  - Claimer: Records processed message ids for deduplication.
  - Catalog: Read-only access to products, steps and categories.
  - OrderStore: Idempotent order persistence.
  - Classifier and Transcriber: Fallible language services.
  - Gateway: Outbound delivery of structured Responses.
  - Clock: Time source with a cancellable Sleep so debounce windows can be faked.
*/
package ports
