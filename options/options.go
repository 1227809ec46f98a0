// Package options declares the configuration catalogue of the search module.
//
// Register builds every parameter into a config.Registry once, at module load.
// Consumers read values through the typed accessors of Options, for example
// opts.MaxIndexes().Get() on a per-request limit check.
package options

import (
	"fmt"
	"math"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/shirou/gopsutil/v4/cpu"

	"github.com/evan-idocoding/searchopts/rt/config"
	"github.com/evan-idocoding/searchopts/rt/logging"
)

// Parameter names.
const (
	HNSWBlockSizeName      = "hnsw-block-size"
	ReaderThreadsName      = "reader-threads"
	WriterThreadsName      = "writer-threads"
	UseCoordinatorName     = "use-coordinator"
	LogLevelName           = "log-level"
	MaxIndexesName         = "max-indexes"
	MaxPrefixesName        = "max-prefixes"
	MaxTagFieldLenName     = "max-tag-field-length"
	MaxNumericFieldLenName = "max-numeric-field-length"
)

const (
	DefaultHNSWBlockSize      = 10240
	MinHNSWBlockSize          = 0
	MaxThreadsCount           = 1024
	DefaultMaxIndexes         = 10
	DefaultMaxPrefixes        = 16
	DefaultMaxTagFieldLen     = 10000
	DefaultMaxNumericFieldLen = 256
)

// LogLevel codes of the log-level enum.
const (
	LogLevelWarning = iota
	LogLevelNotice
	LogLevelVerbose
	LogLevelDebug
)

var (
	logLevelNames = []string{logging.LevelWarning, logging.LevelNotice, logging.LevelVerbose, logging.LevelDebug}
	logLevelCodes = []int{LogLevelWarning, LogLevelNotice, LogLevelVerbose, LogLevelDebug}
)

// Resizer is the thread pool contract consumed by the thread-count parameters.
type Resizer interface {
	Resize(n int) error
}

// Hooks are the collaborators reconfigured by modify callbacks.
type Hooks struct {
	// InitLogging re-initializes logging at a level name; nil disables the callback.
	InitLogging func(level string) error
	// Logger receives callback failures. Default is the charmbracelet/log default logger.
	Logger *log.Logger
}

// Options gives typed access to the catalogue registered in a Registry.
type Options struct {
	reg   *config.Registry
	hooks Hooks

	hnswBlockSize      *config.Number
	readerThreads      *config.Number
	writerThreads      *config.Number
	useCoordinator     *config.Boolean
	logLevel           *config.Enum
	maxIndexes         *config.Number
	maxPrefixes        *config.Number
	maxTagFieldLen     *config.Number
	maxNumericFieldLen *config.Number

	mu      sync.RWMutex
	readers Resizer
	writers Resizer
}

// Register declares the catalogue in reg. It fails if any name is already taken.
func Register(reg *config.Registry, hooks Hooks) (*Options, error) {
	if reg == nil {
		reg = config.Default()
	}
	if hooks.Logger == nil {
		hooks.Logger = log.Default()
	}
	o := &Options{reg: reg, hooks: hooks}
	threads := DefaultThreadsCount()

	steps := []func() (err error){
		func() (err error) {
			o.hnswBlockSize, err = config.NewNumberBuilder(HNSWBlockSizeName, DefaultHNSWBlockSize, MinHNSWBlockSize, math.MaxUint32).
				WithValidationCallback(ValidateHNSWBlockSize).
				Build(reg)
			return err
		},
		func() (err error) {
			o.readerThreads, err = config.NewNumberBuilder(ReaderThreadsName, threads, 1, MaxThreadsCount).
				WithModifyCallback(func(n int64) { o.resize(ReaderThreadsName, o.readerPool(), n) }).
				Build(reg)
			return err
		},
		func() (err error) {
			o.writerThreads, err = config.NewNumberBuilder(WriterThreadsName, threads, 1, MaxThreadsCount).
				WithModifyCallback(func(n int64) { o.resize(WriterThreadsName, o.writerPool(), n) }).
				Build(reg)
			return err
		},
		func() (err error) {
			// Can only be set during start-up.
			o.useCoordinator, err = config.NewBooleanBuilder(UseCoordinatorName, false).
				WithFlags(config.FlagHidden).
				Build(reg)
			return err
		},
		func() (err error) {
			o.logLevel, err = config.NewEnumBuilder(LogLevelName, LogLevelNotice, logLevelNames, logLevelCodes).
				WithValidationCallback(ValidateLogLevel).
				WithModifyCallback(o.applyLogLevel).
				Build(reg)
			return err
		},
		limit(reg, &o.maxIndexes, MaxIndexesName, DefaultMaxIndexes),
		limit(reg, &o.maxPrefixes, MaxPrefixesName, DefaultMaxPrefixes),
		limit(reg, &o.maxTagFieldLen, MaxTagFieldLenName, DefaultMaxTagFieldLen),
		limit(reg, &o.maxNumericFieldLen, MaxNumericFieldLenName, DefaultMaxNumericFieldLen),
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// MustRegister is like Register but panics on error.
func MustRegister(reg *config.Registry, hooks Hooks) *Options {
	o, err := Register(reg, hooks)
	if err != nil {
		panic(err)
	}
	return o
}

func limit(reg *config.Registry, dst **config.Number, name string, def int64) func() error {
	return func() (err error) {
		*dst, err = config.NewNumberBuilder(name, def, 1, math.MaxUint32).Build(reg)
		return err
	}
}

// DefaultThreadsCount returns the number of physical CPU cores, clamped to
// [1, MaxThreadsCount]. It falls back to logical CPUs if the count is unavailable.
func DefaultThreadsCount() int64 {
	n, err := cpu.Counts(false)
	if err != nil || n < 1 {
		n = runtime.NumCPU()
	}
	return int64(min(max(n, 1), MaxThreadsCount))
}

// SetThreadPools binds the pools resized by reader-threads and writer-threads.
// Either may be nil, which turns the corresponding callback into a no-op.
func (o *Options) SetThreadPools(readers, writers Resizer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.readers = readers
	o.writers = writers
}

func (o *Options) readerPool() Resizer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.readers
}

func (o *Options) writerPool() Resizer {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.writers
}

// Registry returns the registry holding the catalogue.
func (o *Options) Registry() *config.Registry { return o.reg }

func (o *Options) HNSWBlockSize() *config.Number { return o.hnswBlockSize }

// ReaderThreadCount controls the number of reader threads.
func (o *Options) ReaderThreadCount() *config.Number {
	return o.readerThreads
}

// WriterThreadCount controls the number of writer threads.
func (o *Options) WriterThreadCount() *config.Number {
	return o.writerThreads
}

// MaxIndexes is the maximum number of indexes allowed to be created.
func (o *Options) MaxIndexes() *config.Number { return o.maxIndexes }

// MaxPrefixes is the maximum number of prefixes per index.
func (o *Options) MaxPrefixes() *config.Number { return o.maxPrefixes }

// MaxTagFieldLen is the maximum length of a tag field.
func (o *Options) MaxTagFieldLen() *config.Number {
	return o.maxTagFieldLen
}

// MaxNumericFieldLen is the maximum length of a numeric field.
func (o *Options) MaxNumericFieldLen() *config.Number {
	return o.maxNumericFieldLen
}

// UseCoordinator reports whether this instance uses the coordinator. It is
// start-up-only; callers should only read it.
func (o *Options) UseCoordinator() *config.Boolean {
	return o.useCoordinator
}

func (o *Options) LogLevel() *config.Enum { return o.logLevel }

// Reset restores the parameters that tests toggle (use-coordinator) to their defaults.
// It is idempotent.
func (o *Options) Reset() error {
	return o.UseCoordinator().ResetToDefault()
}

// ResetAll restores every catalogue parameter to its default, running modify callbacks.
func (o *Options) ResetAll() error {
	for _, name := range Names() {
		if err := o.reg.ResetToDefault(name); err != nil {
			return fmt.Errorf("reset %s: %w", name, err)
		}
	}
	return nil
}

// Names returns the catalogue names in declaration order.
func Names() []string {
	return []string{
		HNSWBlockSizeName,
		ReaderThreadsName,
		WriterThreadsName,
		UseCoordinatorName,
		LogLevelName,
		MaxIndexesName,
		MaxPrefixesName,
		MaxTagFieldLenName,
		MaxNumericFieldLenName,
	}
}
