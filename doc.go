// Package searchopts is the configuration layer of a search module: a registry of typed,
// validated parameters that operators can inspect and change while the server runs.
//
// Committing a value runs its side effects (resizing a thread pool, re-initializing
// logging) without a restart. The building blocks live in subpackages:
//
//   - rt/config: Number, Boolean and Enum parameters, builders and the Registry
//   - options: the module's parameter catalogue and typed accessors
//   - rt/pool: resizable worker pools driven by the thread-count parameters
//   - rt/logging: the charmbracelet/log logger driven by the log-level parameter
//   - startup: YAML file, environment and flag layers applied before serving
//   - ops, httpx, admin: HTTP handlers, middlewares and their assembly
//   - cmd/searchoptsd: the daemon wiring all of the above
//
// # Quick start
//
//	reg := config.New()
//	opts := options.MustRegister(reg, options.Hooks{InitLogging: logging.Init})
//	// apply start-up values, then:
//	reg.Serve()
//
//	if n := opts.MaxIndexes().Get(); count >= n {
//		return errTooManyIndexes
//	}
//
//	http.Handle("/-/", http.StripPrefix("/-", admin.New(reg, admin.WithWriteGuard(guard))))
package searchopts
