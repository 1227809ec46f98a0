package ops

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/evan-idocoding/searchopts/rt/config"
)

type configConfig struct {
	format Format
	guard  func(name string) bool
	sets   *prometheus.CounterVec
	log    *log.Logger
}

// ConfigOption configures configuration handlers.
type ConfigOption func(*configConfig)

// WithConfigDefaultFormat sets the default response format for configuration handlers.
//
// This default can be overridden per request by URL query:
//   - ?format=json
//   - ?format=text
//
// Default is FormatText.
func WithConfigDefaultFormat(f Format) ConfigOption {
	return func(c *configConfig) { c.format = f }
}

// WithConfigNameGuard appends a name guard. Guards are combined with AND and apply to
// both read and write handlers.
func WithConfigNameGuard(fn func(name string) bool) ConfigOption {
	return func(c *configConfig) {
		if fn == nil {
			return
		}
		prev := c.guard
		if prev == nil {
			c.guard = fn
			return
		}
		c.guard = func(name string) bool { return prev(name) && fn(name) }
	}
}

// WithConfigAllowNames restricts handlers to an explicit set of parameter names.
//
// If no non-empty name is provided, this option denies all names.
func WithConfigAllowNames(names ...string) ConfigOption {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			set[n] = struct{}{}
		}
	}
	return WithConfigNameGuard(func(name string) bool {
		_, ok := set[name]
		return ok
	})
}

// WithSetCounter counts write outcomes by parameter name and result
// ("ok" or an error class). See NewSetCounter.
func WithSetCounter(c *prometheus.CounterVec) ConfigOption {
	return func(cfg *configConfig) { cfg.sets = c }
}

// WithConfigLogger logs successful writes. Default is no logging.
func WithConfigLogger(l *log.Logger) ConfigOption {
	return func(c *configConfig) { c.log = l }
}

func applyConfigOptions(opts []ConfigOption) configConfig {
	cfg := configConfig{format: FormatText}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.format = normalizeFormat(cfg.format)
	return cfg
}

func (c *configConfig) allowed(name string) bool { return c.guard == nil || c.guard(name) }

type configSnapshotResponse struct {
	OK     bool             `json:"ok"`
	Error  string           `json:"error,omitempty"`
	Config *config.Snapshot `json:"config,omitempty"`
}

type configOverridesResponse struct {
	OK        bool                  `json:"ok"`
	Error     string                `json:"error,omitempty"`
	Overrides []config.OverrideItem `json:"overrides,omitempty"`
}

type configItemResponse struct {
	OK    bool         `json:"ok"`
	Error string       `json:"error,omitempty"`
	Item  *config.Item `json:"item,omitempty"`
}

type configWriteResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	Name string       `json:"name,omitempty"`
	Old  *config.Item `json:"old,omitempty"`
	New  *config.Item `json:"new,omitempty"`
}

// ConfigSnapshotHandler returns a handler that lists every parameter in declaration order.
//
// GET/HEAD only; other methods return 405.
func ConfigSnapshotHandler(reg *config.Registry, opts ...ConfigOption) http.Handler {
	mustRegistry(reg)
	cfg := applyConfigOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r) {
			resp := configSnapshotResponse{Error: "method not allowed"}
			writeResponse(w, r, format, http.StatusMethodNotAllowed, false, resp.Error, resp, nil)
			return
		}
		snap := reg.Snapshot()
		if cfg.guard != nil {
			items := make([]config.Item, 0, len(snap.Items))
			for _, it := range snap.Items {
				if cfg.guard(it.Name) {
					items = append(items, it)
				}
			}
			snap.Items = items
		}
		resp := configSnapshotResponse{OK: true, Config: &snap}
		writeResponse(w, r, format, http.StatusOK, true, "", resp, func() string {
			var b strings.Builder
			for _, it := range snap.Items {
				appendItemLines(&b, it, "")
			}
			return b.String()
		})
	})
}

// ConfigOverridesHandler returns a handler that lists parameters whose value differs
// from the default.
//
// GET/HEAD only; other methods return 405.
func ConfigOverridesHandler(reg *config.Registry, opts ...ConfigOption) http.Handler {
	mustRegistry(reg)
	cfg := applyConfigOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		if !allowRead(w, r) {
			resp := configOverridesResponse{Error: "method not allowed"}
			writeResponse(w, r, format, http.StatusMethodNotAllowed, false, resp.Error, resp, nil)
			return
		}
		var ovs []config.OverrideItem
		for _, ov := range reg.ExportOverrides() {
			if cfg.allowed(ov.Name) {
				ovs = append(ovs, ov)
			}
		}
		resp := configOverridesResponse{OK: true, Overrides: ovs}
		writeResponse(w, r, format, http.StatusOK, true, "", resp, func() string {
			// Format: config_override\t<name>\t<type>\t<value>\n
			var b strings.Builder
			for _, ov := range ovs {
				b.WriteString("config_override\t")
				b.WriteString(ov.Name)
				b.WriteByte('\t')
				b.WriteString(string(ov.Type))
				b.WriteByte('\t')
				b.WriteString(escapeTextField(ov.Value))
				b.WriteByte('\n')
			}
			return b.String()
		})
	})
}

// ConfigGetHandler returns a handler that describes a single parameter.
//
// Input:
//   - GET/HEAD only
//   - URL query: ?name=<parameter name>
func ConfigGetHandler(reg *config.Registry, opts ...ConfigOption) http.Handler {
	mustRegistry(reg)
	cfg := applyConfigOptions(opts)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		fail := func(code int, msg string) {
			resp := configItemResponse{Error: msg}
			writeResponse(w, r, format, code, false, msg, resp, nil)
		}
		if !allowRead(w, r) {
			fail(http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		name, code, msg := requestName(r, &cfg)
		if code != http.StatusOK {
			fail(code, msg)
			return
		}
		it, found := reg.Describe(name)
		if !found {
			fail(http.StatusNotFound, "parameter not found")
			return
		}
		resp := configItemResponse{OK: true, Item: &it}
		writeResponse(w, r, format, http.StatusOK, true, "", resp, func() string {
			var b strings.Builder
			appendItemLines(&b, it, "")
			return b.String()
		})
	})
}

// ConfigSetHandler returns a handler that sets a parameter from its string form.
//
// Input:
//   - POST only
//   - URL query: ?name=<parameter name>&value=<string representation>
//
// The response carries the item before and after the write.
func ConfigSetHandler(reg *config.Registry, opts ...ConfigOption) http.Handler {
	mustRegistry(reg)
	cfg := applyConfigOptions(opts)
	return writeHandler(reg, &cfg, "set", true, func(name, value string) error {
		return reg.SetFromString(name, value)
	})
}

// ConfigResetHandler returns a handler that restores a parameter to its default.
//
// Input:
//   - POST only
//   - URL query: ?name=<parameter name>
func ConfigResetHandler(reg *config.Registry, opts ...ConfigOption) http.Handler {
	mustRegistry(reg)
	cfg := applyConfigOptions(opts)
	return writeHandler(reg, &cfg, "reset", false, func(name, _ string) error {
		return reg.ResetToDefault(name)
	})
}

func writeHandler(reg *config.Registry, cfg *configConfig, op string, needValue bool, apply func(name, value string) error) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		format := formatFromRequest(r, cfg.format)
		reply := func(code int, resp configWriteResponse) {
			writeResponse(w, r, format, code, resp.OK, resp.Error, resp, func() string {
				var b strings.Builder
				if resp.Old != nil {
					appendItemLines(&b, *resp.Old, "old.")
				}
				if resp.New != nil {
					appendItemLines(&b, *resp.New, "new.")
				}
				return b.String()
			})
		}
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			reply(http.StatusMethodNotAllowed, configWriteResponse{Error: "method not allowed"})
			return
		}
		name, code, msg := requestName(r, cfg)
		if code != http.StatusOK {
			reply(code, configWriteResponse{Error: msg})
			return
		}
		var value string
		if needValue {
			var ok bool
			if value, ok = getQuery(r, "value"); !ok {
				reply(http.StatusBadRequest, configWriteResponse{Error: "missing value", Name: name})
				return
			}
		}
		old, found := reg.Describe(name)
		if !found {
			cfg.count(name, "not_found")
			reply(http.StatusNotFound, configWriteResponse{Error: "parameter not found", Name: name})
			return
		}

		if err := apply(name, value); err != nil {
			cfg.count(name, errorClass(err))
			reply(writeErrorStatus(err), configWriteResponse{Error: err.Error(), Name: name, Old: &old})
			return
		}
		cfg.count(name, "ok")
		newIt, _ := reg.Describe(name)
		if cfg.log != nil {
			cfg.log.Info("parameter updated", "op", op, "name", name, "old", old.Value, "new", newIt.Value)
		}
		reply(http.StatusOK, configWriteResponse{OK: true, Name: name, Old: &old, New: &newIt})
	})
}

func (c *configConfig) count(name, result string) {
	if c.sets != nil {
		c.sets.WithLabelValues(name, result).Inc()
	}
}

func mustRegistry(reg *config.Registry) {
	if reg == nil {
		panic("ops: nil config.Registry")
	}
}

func allowRead(w http.ResponseWriter, r *http.Request) bool {
	if r.Method == http.MethodGet || r.Method == http.MethodHead {
		return true
	}
	w.Header().Set("Allow", "GET, HEAD")
	return false
}

// requestName extracts and checks ?name=. It returns http.StatusOK on success.
func requestName(r *http.Request, cfg *configConfig) (string, int, string) {
	name, ok := getQuery(r, "name")
	if !ok || name == "" {
		return "", http.StatusBadRequest, "missing name"
	}
	if err := config.ValidateName(name); err != nil {
		return "", http.StatusBadRequest, err.Error()
	}
	if !cfg.allowed(name) {
		return "", http.StatusForbidden, "name not allowed"
	}
	return name, http.StatusOK, ""
}

func writeErrorStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, config.ErrInvalidKey),
		errors.Is(err, config.ErrInvalidValue),
		errors.Is(err, config.ErrOutOfRange),
		errors.Is(err, config.ErrInvalidArgument),
		errors.Is(err, config.ErrTypeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, config.ErrImmutable):
		return http.StatusForbidden
	case errors.Is(err, config.ErrNotFound):
		return http.StatusNotFound
	default:
		// ErrReentrantWrite and ErrInvalidConfig are programming errors.
		return http.StatusInternalServerError
	}
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, config.ErrInvalidValue):
		return "invalid_value"
	case errors.Is(err, config.ErrOutOfRange):
		return "out_of_range"
	case errors.Is(err, config.ErrInvalidArgument):
		return "invalid_argument"
	case errors.Is(err, config.ErrImmutable):
		return "immutable"
	case errors.Is(err, config.ErrNotFound):
		return "not_found"
	default:
		return "error"
	}
}

// appendItemLines renders it as stable, greppable lines:
// config\t<name>\t<prefix><field>\t<value>\n
func appendItemLines(b *strings.Builder, it config.Item, prefix string) {
	write := func(field, value string) {
		b.WriteString("config\t")
		b.WriteString(it.Name)
		b.WriteByte('\t')
		b.WriteString(prefix)
		b.WriteString(field)
		b.WriteByte('\t')
		b.WriteString(value)
		b.WriteByte('\n')
	}
	write("type", string(it.Type))
	write("value", formatValue(it.Value))
	write("default", formatValue(it.DefaultValue))
	write("mutable", strconv.FormatBool(it.Mutable))
	write("source", it.Source.String())
	if it.Constraints.Min != nil {
		write("min", *it.Constraints.Min)
	}
	if it.Constraints.Max != nil {
		write("max", *it.Constraints.Max)
	}
	if len(it.Constraints.Domain) > 0 {
		write("domain", escapeTextField(strings.Join(it.Constraints.Domain, ",")))
	}
	if !it.LastUpdatedAt.IsZero() {
		write("last_updated_at", it.LastUpdatedAt.Format(time.RFC3339Nano))
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return escapeTextField(x)
	case bool:
		return strconv.FormatBool(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	default:
		return ""
	}
}
