package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Registry holds the set of configuration parameters of a process.
//
// Parameters are registered once at start-up (see the builders) and never removed;
// only their values change. A Registry starts in the start-up phase, where hidden
// parameters may still be written. Serve switches it to the serving phase.
//
// It is safe for concurrent use. The zero value is ready to use.
type Registry struct {
	mu     sync.RWMutex
	params map[string]Param
	order  []Param

	serving atomic.Bool

	log *log.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used to report modify callback failures.
//
// Default is the charmbracelet/log default logger.
func WithLogger(l *log.Logger) Option {
	return func(r *Registry) { r.log = l }
}

// New creates a new Registry.
func New(opts ...Option) *Registry {
	r := &Registry{params: make(map[string]Param)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

var (
	defaultOnce sync.Once
	defaultR    *Registry
)

// Default returns the process-wide Registry.
func Default() *Registry {
	defaultOnce.Do(func() { defaultR = New() })
	return defaultR
}

// Serve ends the start-up phase. Afterwards hidden parameters reject runtime writes.
//
// It is idempotent and cannot be undone.
func (r *Registry) Serve() { r.serving.Store(true) }

// Serving reports whether Serve has been called.
func (r *Registry) Serving() bool { return r.serving.Load() }

// Lookup returns the parameter registered under name.
func (r *Registry) Lookup(name string) (Param, bool) {
	if r == nil {
		return nil, false
	}
	r.mu.RLock()
	p, ok := r.params[name]
	r.mu.RUnlock()
	return p, ok
}

// Params returns all parameters in declaration order.
func (r *Registry) Params() []Param {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Param(nil), r.order...)
}

// Len returns the number of registered parameters.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Describe returns a point-in-time view of a single parameter.
func (r *Registry) Describe(name string) (Item, bool) {
	p, ok := r.Lookup(name)
	if !ok {
		return Item{}, false
	}
	return p.Describe(), true
}

// Snapshot returns a point-in-time view of all parameters, in declaration order.
func (r *Registry) Snapshot() Snapshot {
	params := r.Params()
	out := make([]Item, 0, len(params))
	for _, p := range params {
		out = append(out, p.Describe())
	}
	return Snapshot{Items: out}
}

// ExportOverrides returns the parameters whose value differs from the default,
// in declaration order.
func (r *Registry) ExportOverrides() []OverrideItem {
	var out []OverrideItem
	for _, p := range r.Params() {
		if ov, ok := p.override(); ok {
			out = append(out, ov)
		}
	}
	return out
}

// ExportOverridesJSON exports overrides as JSON bytes.
func (r *Registry) ExportOverridesJSON() ([]byte, error) {
	return json.Marshal(r.ExportOverrides())
}

// SetFromString sets a parameter from its string representation (admin usage).
func (r *Registry) SetFromString(name, value string) error {
	p, err := r.find(name)
	if err != nil {
		return err
	}
	return p.SetFromString(value)
}

// Set sets a parameter from a typed Go value.
//
// Accepted value types: int, int64 for numbers; bool for booleans;
// int (code) or string (name) for enums. Other types return ErrTypeMismatch.
func (r *Registry) Set(name string, value any) error {
	p, err := r.find(name)
	if err != nil {
		return err
	}
	switch pp := p.(type) {
	case *Number:
		switch x := value.(type) {
		case int64:
			return pp.Set(x)
		case int:
			return pp.Set(int64(x))
		}
	case *Boolean:
		if x, ok := value.(bool); ok {
			return pp.Set(x)
		}
	case *Enum:
		switch x := value.(type) {
		case int:
			return pp.Set(x)
		case string:
			return pp.SetName(x)
		}
	default:
		return fmt.Errorf("%w: %q unknown parameter type", ErrInvalidConfig, name)
	}
	return fmt.Errorf("%w: %q expects %s, got %T", ErrTypeMismatch, name, p.Type(), value)
}

// ResetToDefault restores a single parameter to its declared default.
func (r *Registry) ResetToDefault(name string) error {
	p, err := r.find(name)
	if err != nil {
		return err
	}
	return p.ResetToDefault()
}

// MustNumber returns the Number registered under name.
//
// It panics if name is not registered or is not a Number.
func MustNumber(r *Registry, name string) *Number {
	p := mustLookup(r, name)
	n, ok := p.(*Number)
	if !ok {
		panic(fmt.Sprintf("config: %q is %s, not %s", name, p.Type(), TypeNumber))
	}
	return n
}

// MustBoolean returns the Boolean registered under name.
//
// It panics if name is not registered or is not a Boolean.
func MustBoolean(r *Registry, name string) *Boolean {
	p := mustLookup(r, name)
	b, ok := p.(*Boolean)
	if !ok {
		panic(fmt.Sprintf("config: %q is %s, not %s", name, p.Type(), TypeBool))
	}
	return b
}

// MustEnum returns the Enum registered under name.
//
// It panics if name is not registered or is not an Enum.
func MustEnum(r *Registry, name string) *Enum {
	p := mustLookup(r, name)
	e, ok := p.(*Enum)
	if !ok {
		panic(fmt.Sprintf("config: %q is %s, not %s", name, p.Type(), TypeEnum))
	}
	return e
}

func mustLookup(r *Registry, name string) Param {
	if r == nil {
		r = Default()
	}
	p, ok := r.Lookup(name)
	if !ok {
		panic(fmt.Sprintf("config: %q is not registered", name))
	}
	return p
}

func (r *Registry) find(name string) (Param, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: nil Registry", ErrInvalidConfig)
	}
	if err := validateKey(name); err != nil {
		return nil, err
	}
	p, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

func (r *Registry) register(p Param) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.params == nil {
		r.params = make(map[string]Param)
	}
	if _, ok := r.params[p.Name()]; ok {
		return &DuplicateRegistrationError{Name: p.Name()}
	}
	r.params[p.Name()] = p
	r.order = append(r.order, p)
	return nil
}

func (r *Registry) logger() *log.Logger {
	if r == nil || r.log == nil {
		return log.Default()
	}
	return r.log
}

// ValidateName reports whether name is a well-formed parameter name: non-empty, [A-Za-z0-9._-].
// The returned error wraps ErrInvalidKey.
func ValidateName(name string) error { return validateKey(name) }

func validateKey(key string) error {
	if key == "" {
		return fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	for i := 0; i < len(key); i++ {
		c := key[i]
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '.' || c == '_' || c == '-':
		default:
			if c == '/' {
				return fmt.Errorf("%w: %q contains '/' (not allowed)", ErrInvalidKey, key)
			}
			if strings.ContainsRune(" \t\r\n", rune(c)) {
				return fmt.Errorf("%w: %q contains whitespace (not allowed)", ErrInvalidKey, key)
			}
			return fmt.Errorf("%w: %q contains invalid char %q (allowed: [A-Za-z0-9._-])", ErrInvalidKey, key, c)
		}
	}
	return nil
}
