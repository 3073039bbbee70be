/*
Package observability turns the bot's lifecycle hooks into Prometheus metrics.

Metrics are registered on their own registry so tests and embedded bots do not
collide on the global default one. Serve them with Metrics.Handler.
*/
package observability
