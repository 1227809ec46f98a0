package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/evan-idocoding/searchopts/rt/config"
)

// DefaultEnvPrefix is the environment variable prefix used unless WithEnvPrefix is given.
const DefaultEnvPrefix = "SEARCHOPTS_"

// Parameter names never contain '/', so it is safe as the koanf path delimiter.
const delim = "/"

// Origin names the layer a start-up value came from.
type Origin string

const (
	OriginFile Origin = "file"
	OriginEnv  Origin = "env"
	OriginFlag Origin = "flag"
)

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix. Default is DefaultEnvPrefix.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) { l.envPrefix = prefix }
}

// WithLogger sets the logger used for applied and ignored keys. Default is log.Default().
func WithLogger(lg *log.Logger) Option {
	return func(l *Loader) { l.log = lg }
}

// Loader merges start-up layers and applies them to a registry.
//
// A Loader is not safe for concurrent use.
type Loader struct {
	reg       *config.Registry
	k         *koanf.Koanf
	log       *log.Logger
	envPrefix string
	origins   map[string]Origin
}

// NewLoader returns a Loader for reg. A nil reg means config.Default().
func NewLoader(reg *config.Registry, opts ...Option) *Loader {
	if reg == nil {
		reg = config.Default()
	}
	l := &Loader{
		reg:       reg,
		k:         koanf.New(delim),
		envPrefix: DefaultEnvPrefix,
		origins:   make(map[string]Origin),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	if l.log == nil {
		l.log = log.Default()
	}
	return l
}

// LoadFile merges a YAML file. A missing file is not an error.
func (l *Loader) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		l.log.Debug("start-up file not found", "path", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("startup: read %s: %w", path, err)
	}
	return l.LoadYAML(data)
}

// LoadYAML merges YAML content mapping parameter names to scalars.
func (l *Loader) LoadYAML(data []byte) error {
	p := yamlBytes(data)
	m, err := p.Read()
	if err != nil {
		return err
	}
	if err := l.k.Load(p, nil); err != nil {
		return fmt.Errorf("startup: load yaml: %w", err)
	}
	for key := range flatten(m, "") {
		l.origins[key] = OriginFile
	}
	return nil
}

// LoadEnv merges environment variables carrying the loader's prefix.
// SEARCHOPTS_MAX_TAG_FIELD_LENGTH maps to max-tag-field-length.
func (l *Loader) LoadEnv() error {
	var keys []string
	err := l.k.Load(env.Provider(delim, env.Opt{
		Prefix: l.envPrefix,
		TransformFunc: func(k, v string) (string, any) {
			key := EnvToName(l.envPrefix, k)
			if key != "" {
				keys = append(keys, key)
			}
			return key, v
		},
	}), nil)
	if err != nil {
		return fmt.Errorf("startup: load env: %w", err)
	}
	for _, key := range keys {
		l.origins[key] = OriginEnv
	}
	return nil
}

// EnvToName converts an environment variable name to a parameter name.
// It returns "" when key does not carry prefix.
func EnvToName(prefix, key string) string {
	if !strings.HasPrefix(key, prefix) {
		return ""
	}
	s := strings.ToLower(strings.TrimPrefix(key, prefix))
	return strings.ReplaceAll(s, "_", "-")
}

// NameToEnv is the inverse of EnvToName.
func NameToEnv(prefix, name string) string {
	return prefix + strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(name))
}

// BindFlags defines one string flag per registered parameter on fs.
func (l *Loader) BindFlags(fs *pflag.FlagSet) {
	for _, p := range l.reg.Params() {
		it := p.Describe()
		if fs.Lookup(it.Name) != nil {
			continue
		}
		fs.String(it.Name, flagDefault(it.DefaultValue), flagUsage(it, p.Flags().Hidden()))
	}
}

// LoadFlags merges the flags of fs that were explicitly set.
func (l *Loader) LoadFlags(fs *pflag.FlagSet) error {
	var err error
	fs.Visit(func(f *pflag.Flag) {
		if err != nil {
			return
		}
		if _, ok := l.reg.Lookup(f.Name); !ok {
			return
		}
		if err = l.k.Set(f.Name, f.Value.String()); err == nil {
			l.origins[f.Name] = OriginFlag
		}
	})
	if err != nil {
		return fmt.Errorf("startup: load flags: %w", err)
	}
	return nil
}

// Origins returns, for each merged key, the layer that supplied its value.
func (l *Loader) Origins() map[string]Origin {
	out := make(map[string]Origin, len(l.origins))
	for k, v := range l.origins {
		out[k] = v
	}
	return out
}

// Apply writes the merged values to the registry in declaration order.
// It stops at the first rejected value.
func (l *Loader) Apply() error {
	seen := make(map[string]struct{})
	for _, p := range l.reg.Params() {
		name := p.Name()
		if !l.k.Exists(name) {
			continue
		}
		seen[name] = struct{}{}
		value := l.k.String(name)
		if err := p.SetFromString(value); err != nil {
			return fmt.Errorf("startup: %s from %s: %w", name, l.origins[name], err)
		}
		l.log.Info("applied start-up value", "name", name, "value", value, "origin", l.origins[name])
	}
	for _, key := range l.k.Keys() {
		if _, ok := seen[key]; !ok {
			l.log.Debug("ignoring unknown start-up key", "key", key, "origin", l.origins[key])
		}
	}
	return nil
}

// yamlBytes is a koanf.Provider over YAML content.
type yamlBytes []byte

func (y yamlBytes) Read() (map[string]any, error) {
	var m map[string]any
	if err := yaml.Unmarshal(y, &m); err != nil {
		return nil, fmt.Errorf("startup: parse yaml: %w", err)
	}
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
	return m, nil
}

func (y yamlBytes) ReadBytes() ([]byte, error) {
	return nil, errors.New("startup: ReadBytes not supported")
}

func flatten(m map[string]any, prefix string) map[string]struct{} {
	out := make(map[string]struct{})
	for k, v := range m {
		if sub, ok := v.(map[string]any); ok {
			for kk := range flatten(sub, prefix+k+delim) {
				out[kk] = struct{}{}
			}
			continue
		}
		out[prefix+k] = struct{}{}
	}
	return out
}

func flagDefault(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}

func flagUsage(it config.Item, hidden bool) string {
	var b strings.Builder
	b.WriteString(string(it.Type))
	switch {
	case it.Constraints.Min != nil && it.Constraints.Max != nil:
		b.WriteString(" in [" + *it.Constraints.Min + ", " + *it.Constraints.Max + "]")
	case len(it.Constraints.Domain) > 0:
		b.WriteString(" one of " + strings.Join(it.Constraints.Domain, ", "))
	}
	if hidden {
		b.WriteString(" (start-up only)")
	}
	return b.String()
}
