package admin

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/evan-idocoding/searchopts/httpx"
	"github.com/evan-idocoding/searchopts/ops"
	"github.com/evan-idocoding/searchopts/rt/config"
)

// Option configures admin assembly.
type Option func(*Builder)

// Builder collects the admin configuration. Users configure it through Options.
type Builder struct {
	readGuard  httpx.Middleware
	writeGuard httpx.Middleware
	gatherer   prometheus.Gatherer
	sets       *prometheus.CounterVec
	log        *log.Logger
	checks     []ops.ReadyCheck
	format     ops.Format
}

// WithReadGuard guards read endpoints (everything except /healthz). Default allows all.
func WithReadGuard(g httpx.Middleware) Option {
	return func(b *Builder) { b.readGuard = g }
}

// WithWriteGuard guards /config/set and /config/reset. Default denies all.
func WithWriteGuard(g httpx.Middleware) Option {
	return func(b *Builder) { b.writeGuard = g }
}

// WithMetrics mounts /metrics over g.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(b *Builder) { b.gatherer = g }
}

// WithSetCounter counts write outcomes. See ops.NewSetCounter.
func WithSetCounter(c *prometheus.CounterVec) Option {
	return func(b *Builder) { b.sets = c }
}

// WithLogger sets the logger for panics and successful writes. Default is log.Default().
func WithLogger(l *log.Logger) Option {
	return func(b *Builder) { b.log = l }
}

// WithReadyCheck adds a readiness check to /readyz.
func WithReadyCheck(c ops.ReadyCheck) Option {
	return func(b *Builder) { b.checks = append(b.checks, c) }
}

// WithDefaultFormat sets the default response format of every endpoint.
func WithDefaultFormat(f ops.Format) Option {
	return func(b *Builder) { b.format = f }
}

// AllowAll is a guard that admits every request.
func AllowAll() httpx.Middleware {
	return func(next http.Handler) http.Handler { return next }
}

// DenyAll is a guard that answers 403 to every request.
func DenyAll() httpx.Middleware {
	return func(http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "forbidden", http.StatusForbidden)
		})
	}
}

// New returns the admin subtree handler for reg. It panics if reg is nil.
func New(reg *config.Registry, opts ...Option) http.Handler {
	if reg == nil {
		panic("admin: nil config.Registry")
	}
	b := &Builder{readGuard: AllowAll(), writeGuard: DenyAll()}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	if b.log == nil {
		b.log = log.Default()
	}
	return b.build(reg)
}

func (b *Builder) build(reg *config.Registry) http.Handler {
	read := []ops.ConfigOption{ops.WithConfigDefaultFormat(b.format)}
	write := []ops.ConfigOption{
		ops.WithConfigDefaultFormat(b.format),
		ops.WithConfigLogger(b.log),
		ops.WithSetCounter(b.sets),
	}
	health := []ops.HealthOption{ops.WithHealthDefaultFormat(b.format)}
	for _, c := range b.checks {
		health = append(health, ops.WithReadyCheck(c))
	}

	mux := http.NewServeMux()
	mount := func(pattern string, guard httpx.Middleware, h http.Handler) {
		mux.Handle(pattern, httpx.Wrap(h, guard))
	}
	mount("/healthz", nil, ops.HealthzHandler(health...))
	mount("/readyz", b.readGuard, ops.ReadyzHandler(reg, health...))
	mount("/config", b.readGuard, ops.ConfigSnapshotHandler(reg, read...))
	mount("/config/get", b.readGuard, ops.ConfigGetHandler(reg, read...))
	mount("/config/overrides", b.readGuard, ops.ConfigOverridesHandler(reg, read...))
	mount("/config/set", b.writeGuard, ops.ConfigSetHandler(reg, write...))
	mount("/config/reset", b.writeGuard, ops.ConfigResetHandler(reg, write...))
	if b.gatherer != nil {
		mount("/metrics", b.readGuard, promhttp.HandlerFor(b.gatherer, promhttp.HandlerOpts{}))
	}
	return httpx.Wrap(mux, httpx.Recover(b.log))
}
