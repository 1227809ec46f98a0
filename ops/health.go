package ops

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/evan-idocoding/searchopts/rt/config"
)

type healthConfig struct {
	format Format
	checks []ReadyCheck
}

// HealthOption configures HealthzHandler / ReadyzHandler.
type HealthOption func(*healthConfig)

// WithHealthDefaultFormat sets the default response format for health handlers.
// Default is FormatText; ?format= overrides it per request.
func WithHealthDefaultFormat(f Format) HealthOption {
	return func(c *healthConfig) { c.format = f }
}

// WithReadyCheck appends a readiness check run after the built-in serving check.
func WithReadyCheck(c ReadyCheck) HealthOption {
	return func(cfg *healthConfig) { cfg.checks = append(cfg.checks, c) }
}

func applyHealthOptions(opts []HealthOption) healthConfig {
	cfg := healthConfig{format: FormatText}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.format = normalizeFormat(cfg.format)
	for i, c := range cfg.checks {
		if c.Name == "" || c.Func == nil {
			panic(fmt.Sprintf("ops: ready check[%d] needs Name and Func", i))
		}
	}
	return cfg
}

// ReadyCheckFunc returns nil when healthy. It must respect ctx cancellation.
type ReadyCheckFunc func(context.Context) error

// ReadyCheck is a named readiness check.
type ReadyCheck struct {
	Name    string
	Func    ReadyCheckFunc
	Timeout time.Duration // <= 0 means no extra timeout
}

// ReadyCheckResult is a single check execution result.
type ReadyCheckResult struct {
	Name     string        `json:"name"`
	OK       bool          `json:"ok"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// ReadyzReport is a point-in-time readiness report.
type ReadyzReport struct {
	OK     bool               `json:"ok"`
	Checks []ReadyCheckResult `json:"checks,omitempty"`
}

var errStartingUp = errors.New("registry is still in the start-up phase")

// ServingCheck reports ready once reg.Serve has been called.
func ServingCheck(reg *config.Registry) ReadyCheck {
	mustRegistry(reg)
	return ReadyCheck{Name: "config.serving", Func: func(context.Context) error {
		if !reg.Serving() {
			return errStartingUp
		}
		return nil
	}}
}

// HealthzHandler returns a liveness handler that always responds 200 OK for GET/HEAD.
func HealthzHandler(opts ...HealthOption) http.Handler {
	cfg := applyHealthOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r) {
			rep := ReadyzReport{}
			writeResponse(w, r, format, http.StatusMethodNotAllowed, false, "method not allowed", rep, nil)
			return
		}
		writeResponse(w, r, format, http.StatusOK, true, "", ReadyzReport{OK: true}, func() string { return "ok\n" })
	})
}

// ReadyzHandler returns a readiness handler. It responds 503 until reg is serving and
// while any extra check fails.
func ReadyzHandler(reg *config.Registry, opts ...HealthOption) http.Handler {
	cfg := applyHealthOptions(opts)
	checks := append([]ReadyCheck{ServingCheck(reg)}, cfg.checks...)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r) {
			writeResponse(w, r, format, http.StatusMethodNotAllowed, false, "method not allowed", ReadyzReport{}, nil)
			return
		}
		rep := RunReadyzChecks(r.Context(), checks)
		code := http.StatusOK
		if !rep.OK {
			code = http.StatusServiceUnavailable
		}
		// Text: "ok" or one "fail <name>: <error>" line per failed check.
		render := func() string {
			if rep.OK {
				return "ok\n"
			}
			var b strings.Builder
			for _, c := range rep.Checks {
				if !c.OK {
					b.WriteString("fail " + c.Name + ": " + escapeTextField(c.Error) + "\n")
				}
			}
			return b.String()
		}
		writeResponse(w, r, format, code, true, "", rep, render)
	})
}

// RunReadyzChecks executes checks sequentially and returns a report.
func RunReadyzChecks(ctx context.Context, checks []ReadyCheck) ReadyzReport {
	out := ReadyzReport{OK: true, Checks: make([]ReadyCheckResult, 0, len(checks))}
	for _, c := range checks {
		cr := runOneCheck(ctx, c)
		out.Checks = append(out.Checks, cr)
		out.OK = out.OK && cr.OK
	}
	return out
}

func runOneCheck(parent context.Context, c ReadyCheck) (cr ReadyCheckResult) {
	cr.Name = c.Name
	start := time.Now()
	ctx, cancel := parent, context.CancelFunc(func() {})
	if c.Timeout > 0 {
		ctx, cancel = context.WithTimeout(parent, c.Timeout)
	}
	defer cancel()
	defer func() {
		cr.Duration = time.Since(start)
		if p := recover(); p != nil {
			cr.OK, cr.Error = false, fmt.Sprintf("panic: %v", p)
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) && cr.Error == "" {
			cr.OK, cr.Error = false, "timeout"
		}
	}()
	if err := c.Func(ctx); err != nil {
		cr.Error = err.Error()
		return cr
	}
	cr.OK = true
	return cr
}
