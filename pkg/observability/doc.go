/*
Package observability exposes Prometheus metrics for a bootstrap run.

Metrics observes every finished command (ports.OutcomeObserver), every supervisor
heartbeat (ports.HeartbeatSink) and the start and end of each stage. It owns a private
registry so tests and embedders never collide on the global one.
*/
package observability
