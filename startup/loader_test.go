package startup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-idocoding/searchopts/options"
	"github.com/evan-idocoding/searchopts/rt/config"
)

const testPrefix = "SEARCHOPTS_TEST_"

func newTestLoader(t *testing.T) (*Loader, *options.Options, *bytes.Buffer) {
	t.Helper()
	reg := config.New()
	opts, err := options.Register(reg, options.Hooks{})
	require.NoError(t, err)
	out := &bytes.Buffer{}
	lg := log.New(out)
	lg.SetLevel(log.DebugLevel)
	return NewLoader(reg, WithEnvPrefix(testPrefix), WithLogger(lg)), opts, out
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "searchopts.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFile(t *testing.T) {
	t.Run("Should apply scalar values by parameter name", func(t *testing.T) {
		l, opts, _ := newTestLoader(t)
		path := writeFile(t, "max-indexes: 42\nuse-coordinator: true\nlog-level: debug\n")
		require.NoError(t, l.LoadFile(path))
		require.NoError(t, l.Apply())

		assert.Equal(t, int64(42), opts.MaxIndexes().Get())
		assert.True(t, opts.UseCoordinator().Get())
		assert.Equal(t, "debug", opts.LogLevel().GetName())
		assert.Equal(t, OriginFile, l.Origins()["max-indexes"])
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		l, opts, _ := newTestLoader(t)
		require.NoError(t, l.LoadFile(filepath.Join(t.TempDir(), "absent.yaml")))
		require.NoError(t, l.Apply())
		assert.Equal(t, int64(options.DefaultMaxIndexes), opts.MaxIndexes().Get())
	})

	t.Run("Should reject malformed YAML", func(t *testing.T) {
		l, _, _ := newTestLoader(t)
		require.Error(t, l.LoadFile(writeFile(t, "max-indexes: [1,\n")))
	})

	t.Run("Should ignore unknown keys with a debug log", func(t *testing.T) {
		l, _, out := newTestLoader(t)
		require.NoError(t, l.LoadYAML([]byte("no-such-option: 1\nnested:\n  key: 2\n")))
		require.NoError(t, l.Apply())
		assert.Contains(t, out.String(), "ignoring unknown start-up key")
		assert.Contains(t, out.String(), "no-such-option")
	})

	t.Run("Should abort on an invalid value", func(t *testing.T) {
		l, opts, _ := newTestLoader(t)
		require.NoError(t, l.LoadYAML([]byte("reader-threads: 0\n")))
		err := l.Apply()
		require.ErrorIs(t, err, config.ErrOutOfRange)
		assert.Contains(t, err.Error(), "reader-threads from file")
		assert.Equal(t, options.DefaultThreadsCount(), opts.ReaderThreadCount().Get())
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("Should map prefixed variables to parameter names", func(t *testing.T) {
		t.Setenv(testPrefix+"MAX_TAG_FIELD_LENGTH", "500")
		t.Setenv(testPrefix+"LOG_LEVEL", "warning")
		l, opts, _ := newTestLoader(t)
		require.NoError(t, l.LoadEnv())
		require.NoError(t, l.Apply())

		assert.Equal(t, int64(500), opts.MaxTagFieldLen().Get())
		assert.Equal(t, options.LogLevelWarning, opts.LogLevel().Get())
		assert.Equal(t, OriginEnv, l.Origins()["max-tag-field-length"])
	})

	t.Run("Should convert names both ways", func(t *testing.T) {
		assert.Equal(t, "max-numeric-field-length", EnvToName("P_", "P_MAX_NUMERIC_FIELD_LENGTH"))
		assert.Equal(t, "", EnvToName("P_", "OTHER_VAR"))
		assert.Equal(t, "P_HNSW_BLOCK_SIZE", NameToEnv("P_", "hnsw-block-size"))
	})
}

func TestPrecedence(t *testing.T) {
	t.Run("Should let env override file and flags override env", func(t *testing.T) {
		t.Setenv(testPrefix+"MAX_PREFIXES", "20")
		t.Setenv(testPrefix+"MAX_INDEXES", "30")
		l, opts, _ := newTestLoader(t)

		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		l.BindFlags(fs)
		require.NoError(t, fs.Parse([]string{"--max-indexes=40"}))

		require.NoError(t, l.LoadYAML([]byte("max-prefixes: 10\nmax-indexes: 10\nhnsw-block-size: 512\n")))
		require.NoError(t, l.LoadEnv())
		require.NoError(t, l.LoadFlags(fs))
		require.NoError(t, l.Apply())

		assert.Equal(t, int64(512), opts.HNSWBlockSize().Get())
		assert.Equal(t, int64(20), opts.MaxPrefixes().Get())
		assert.Equal(t, int64(40), opts.MaxIndexes().Get())
		origins := l.Origins()
		assert.Equal(t, OriginFile, origins["hnsw-block-size"])
		assert.Equal(t, OriginEnv, origins["max-prefixes"])
		assert.Equal(t, OriginFlag, origins["max-indexes"])
	})
}

func TestBindFlags(t *testing.T) {
	t.Run("Should define one flag per parameter with its default", func(t *testing.T) {
		l, _, _ := newTestLoader(t)
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		l.BindFlags(fs)

		for _, name := range options.Names() {
			require.NotNil(t, fs.Lookup(name), name)
		}
		assert.Equal(t, "10240", fs.Lookup(options.HNSWBlockSizeName).DefValue)
		assert.Equal(t, "notice", fs.Lookup(options.LogLevelName).DefValue)
		assert.Contains(t, fs.Lookup(options.UseCoordinatorName).Usage, "start-up only")
		assert.Contains(t, fs.Lookup(options.LogLevelName).Usage, "warning=0")
	})

	t.Run("Should apply only flags that were set", func(t *testing.T) {
		l, opts, _ := newTestLoader(t)
		require.NoError(t, opts.MaxPrefixes().Set(99))
		fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
		l.BindFlags(fs)
		require.NoError(t, fs.Parse([]string{"--use-coordinator=true"}))
		require.NoError(t, l.LoadFlags(fs))
		require.NoError(t, l.Apply())

		assert.True(t, opts.UseCoordinator().Get())
		assert.Equal(t, int64(99), opts.MaxPrefixes().Get())
	})

	t.Run("Should fail for hidden parameters once serving", func(t *testing.T) {
		l, opts, _ := newTestLoader(t)
		opts.Registry().Serve()
		require.NoError(t, l.LoadYAML([]byte("use-coordinator: true\n")))
		require.ErrorIs(t, l.Apply(), config.ErrImmutable)
	})
}
