// Package logging is the process logger of searchopts, built on charmbracelet/log.
//
// Verbosity is expressed with the server's four level names, from least to most verbose:
// warning, notice, verbose, debug. Init can be called any number of times; the new
// level applies to every log line emitted afterwards, including lines from holders of
// a *log.Logger obtained earlier via L.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/log"
)

// Level names, ordered from least to most verbose.
const (
	LevelWarning = "warning"
	LevelNotice  = "notice"
	LevelVerbose = "verbose"
	LevelDebug   = "debug"
)

// Names returns the level names ordered from least to most verbose.
func Names() []string {
	return []string{LevelWarning, LevelNotice, LevelVerbose, LevelDebug}
}

// ParseLevel maps a level name (case-insensitive) to a charmbracelet/log level.
//
// verbose and debug both enable debug lines; debug additionally reports callers.
func ParseLevel(name string) (log.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case LevelWarning:
		return log.WarnLevel, nil
	case LevelNotice:
		return log.InfoLevel, nil
	case LevelVerbose, LevelDebug:
		return log.DebugLevel, nil
	default:
		return 0, fmt.Errorf("logging: unknown level %q (want one of %s)", name, strings.Join(Names(), ", "))
	}
}

// Config configures a Logging instance.
type Config struct {
	Output     io.Writer
	JSON       bool
	Prefix     string
	TimeFormat string
	// Level is the initial level name. Empty means notice.
	Level string
}

// Logging owns a single charmbracelet logger whose level can be re-initialized.
type Logging struct {
	mu    sync.Mutex
	l     *log.Logger
	level atomic.Value // string
	inits atomic.Int64
}

// New creates a Logging instance.
func New(cfg Config) (*Logging, error) {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	if cfg.TimeFormat == "" {
		cfg.TimeFormat = "15:04:05"
	}
	if cfg.Level == "" {
		cfg.Level = LevelNotice
	}
	l := log.NewWithOptions(cfg.Output, log.Options{
		ReportTimestamp: true,
		TimeFormat:      cfg.TimeFormat,
		Prefix:          cfg.Prefix,
	})
	if cfg.JSON {
		l.SetFormatter(log.JSONFormatter)
	} else {
		l.SetFormatter(log.TextFormatter)
	}
	g := &Logging{l: l}
	if err := g.apply(cfg.Level); err != nil {
		return nil, err
	}
	return g, nil
}

// Init re-initializes the logger at the given level name.
//
// An unknown name returns an error and leaves the current level in place.
func (g *Logging) Init(level string) error {
	if err := g.apply(level); err != nil {
		return err
	}
	g.inits.Add(1)
	return nil
}

func (g *Logging) apply(level string) error {
	lv, err := ParseLevel(level)
	if err != nil {
		return err
	}
	name := strings.ToLower(strings.TrimSpace(level))

	g.mu.Lock()
	defer g.mu.Unlock()
	g.l.SetLevel(lv)
	g.l.SetReportCaller(name == LevelDebug)
	g.level.Store(name)
	return nil
}

// Level returns the current level name.
func (g *Logging) Level() string {
	s, _ := g.level.Load().(string)
	return s
}

// Inits returns how many times Init succeeded.
func (g *Logging) Inits() int64 { return g.inits.Load() }

// L returns the underlying logger.
func (g *Logging) L() *log.Logger { return g.l }

// Slog returns a *slog.Logger backed by the same handler.
func (g *Logging) Slog() *slog.Logger { return slog.New(g.l) }

var (
	defaultOnce sync.Once
	defaultG    *Logging
)

// Default returns the process-wide Logging instance (stderr, text, notice).
func Default() *Logging {
	defaultOnce.Do(func() {
		g, err := New(Config{})
		if err != nil {
			// Config{} always uses a valid level.
			panic(err)
		}
		defaultG = g
	})
	return defaultG
}

// Init re-initializes the process-wide logger. See Logging.Init.
func Init(level string) error { return Default().Init(level) }

// L returns the process-wide logger.
func L() *log.Logger { return Default().L() }
