/*
Package domain contains the core models of the ordering bot.

It defines the per-customer Session with its conversation Mode, the catalog
entities used to build products, the checkout data collected before an order is
committed and the structured Responses sent back to the customer. This package
is kept pure and free of I/O so it can be shared by every adapter.

# Key Entities

  - Session: Runtime snapshot of one customer conversation (Mode, pending queue, lock, cart).
  - Mode: Sum type of NormalMode, BuilderMode, CheckoutMode and PausedMode.
  - Product: Catalog entry, optionally composed of ordered customization Steps.
  - Response: Structured outbound message (text, buttons, list or location).
*/
package domain
