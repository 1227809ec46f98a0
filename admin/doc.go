// Package admin assembles the operational HTTP subtree of a configuration registry.
//
// New mounts the ops handlers under fixed paths:
//
//	GET  /healthz           liveness
//	GET  /readyz            ready once the registry serves
//	GET  /config            all parameters
//	GET  /config/get        ?name=
//	GET  /config/overrides  parameters that differ from their default
//	POST /config/set        ?name=&value=
//	POST /config/reset      ?name=
//	GET  /metrics           only with WithMetrics
//
// Write endpoints deny every request unless a write guard is configured with
// WithWriteGuard. The whole subtree recovers handler panics.
package admin
