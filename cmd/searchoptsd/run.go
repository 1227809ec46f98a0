package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/evan-idocoding/searchopts/admin"
	"github.com/evan-idocoding/searchopts/httpx"
	"github.com/evan-idocoding/searchopts/ops"
	"github.com/evan-idocoding/searchopts/options"
	"github.com/evan-idocoding/searchopts/rt/config"
	"github.com/evan-idocoding/searchopts/rt/logging"
	"github.com/evan-idocoding/searchopts/rt/pool"
	"github.com/evan-idocoding/searchopts/startup"
)

type daemon struct {
	logging *logging.Logging
	reg     *config.Registry
	opts    *options.Options
	readers *pool.Pool
	writers *pool.Pool
	metrics *prometheus.Registry
	sets    *prometheus.CounterVec
}

// newDaemon wires the registry, its collaborators and the start-up layers.
// The returned registry is still in the start-up phase.
func newDaemon(f *flags, fs *pflag.FlagSet) (*daemon, error) {
	lg, err := logging.New(logging.Config{Output: os.Stderr, JSON: f.logJSON, Prefix: "searchoptsd"})
	if err != nil {
		return nil, err
	}
	l := lg.L()
	reg := config.New(config.WithLogger(l))
	opts, err := options.Register(reg, options.Hooks{InitLogging: lg.Init, Logger: l})
	if err != nil {
		return nil, fmt.Errorf("register options: %w", err)
	}

	threads := options.DefaultThreadsCount()
	readers, err := pool.New("reader", int(threads), pool.WithQueueSize(f.queueSize), pool.WithLogger(l))
	if err != nil {
		return nil, err
	}
	writers, err := pool.New("writer", int(threads), pool.WithQueueSize(f.queueSize), pool.WithLogger(l))
	if err != nil {
		return nil, err
	}
	opts.SetThreadPools(readers, writers)

	loader := startup.NewLoader(reg, startup.WithEnvPrefix(f.envPrefix), startup.WithLogger(l))
	if err := loader.LoadFile(f.configFile); err != nil {
		return nil, err
	}
	if err := loader.LoadEnv(); err != nil {
		return nil, err
	}
	if fs != nil {
		if err := loader.LoadFlags(fs); err != nil {
			return nil, err
		}
	}
	if err := loader.Apply(); err != nil {
		return nil, err
	}

	metrics := prometheus.NewRegistry()
	sets := ops.NewSetCounter()
	metrics.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		ops.NewRegistryCollector(reg),
		ops.NewPoolCollector(readers, writers),
		sets,
	)
	return &daemon{
		logging: lg,
		reg:     reg,
		opts:    opts,
		readers: readers,
		writers: writers,
		metrics: metrics,
		sets:    sets,
	}, nil
}

// handler returns the admin surface. Without admin tokens, writes are open to anyone
// who can reach the admin address.
func (d *daemon) handler(tokens ...string) http.Handler {
	l := d.logging.L()
	guard := admin.AllowAll()
	if set := httpx.NewTokenSet(tokens...); set.Len() > 0 {
		guard = httpx.RequireToken(set)
	} else {
		l.Warn("admin writes are not authenticated; set --admin-token to require a token")
	}
	return admin.New(d.reg,
		admin.WithWriteGuard(guard),
		admin.WithMetrics(d.metrics),
		admin.WithSetCounter(d.sets),
		admin.WithLogger(l),
	)
}

// shutdown drains both pools.
func (d *daemon) shutdown(ctx context.Context) error {
	return errors.Join(d.readers.Shutdown(ctx), d.writers.Shutdown(ctx))
}

func run(ctx context.Context, f *flags, fs *pflag.FlagSet) error {
	d, err := newDaemon(f, fs)
	if err != nil {
		return err
	}
	l := d.logging.L()

	ln, err := net.Listen("tcp", f.adminAddr)
	if err != nil {
		_ = d.shutdown(context.Background())
		return fmt.Errorf("listen %s: %w", f.adminAddr, err)
	}
	srv := &http.Server{
		Handler:           d.handler(f.adminTokens...),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          l.StandardLog(log.StandardLogOptions{ForceLevel: log.ErrorLevel}),
	}

	d.reg.Serve()
	l.Info("serving",
		"addr", ln.Addr().String(),
		"reader_threads", d.opts.ReaderThreadCount().Get(),
		"writer_threads", d.opts.WriterThreadCount().Get(),
		"log_level", d.opts.LogLevel().GetName(),
		"use_coordinator", d.opts.UseCoordinator().Get(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		l.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), f.shutdownTimeout)
		defer cancel()
		return errors.Join(srv.Shutdown(sctx), d.shutdown(sctx))
	})
	return g.Wait()
}
