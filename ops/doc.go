// Package ops provides net/http handlers for operating a configuration registry.
//
// Handlers are meant to be mounted into your own routing tree. They do not choose
// paths, do not make authn/authz decisions and do not start servers.
//
// # Formats
//
// Handlers render text by default. The default can be configured by options and
// overridden per request by URL query:
//   - ?format=text
//   - ?format=json
//
// Text output is line-based and greppable. JSON output is meant for tooling.
//
// # What ops provides
//
//   - configuration: ConfigSnapshotHandler, ConfigGetHandler, ConfigSetHandler,
//     ConfigResetHandler, ConfigOverridesHandler (rt/config integration)
//   - health: HealthzHandler (liveness), ReadyzHandler (ready once the registry serves)
//   - metrics: NewRegistryCollector, NewPoolCollector, NewSetCounter (Prometheus)
//
// Write handlers map registry errors to status codes: malformed names or values,
// out-of-range values and validator rejections are 400, start-up-only parameters
// are 403, unknown parameters are 404.
//
// # Security notes
//
// Mount these handlers behind your own authentication middleware, and consider
// restricting write handlers with WithConfigAllowNames.
package ops
