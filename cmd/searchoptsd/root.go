package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/evan-idocoding/searchopts/options"
	"github.com/evan-idocoding/searchopts/rt/config"
	"github.com/evan-idocoding/searchopts/startup"
)

type flags struct {
	configFile      string
	adminAddr       string
	adminTokens     []string
	logJSON         bool
	queueSize       int
	shutdownTimeout time.Duration
	envPrefix       string
}

func rootCmd() *cobra.Command {
	f := &flags{}
	// Flags for parameters are generated from a throwaway catalogue; run builds the real one.
	catalogue := config.New()
	options.MustRegister(catalogue, options.Hooks{})

	cmd := &cobra.Command{
		Use:           "searchoptsd",
		Short:         "Serve the search module configuration registry",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f, cmd.Flags())
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&f.configFile, "config", "searchopts.yaml", "Path to the start-up YAML file")
	fs.StringVar(&f.adminAddr, "admin-addr", "127.0.0.1:9090", "Admin HTTP listen address")
	fs.StringSliceVar(&f.adminTokens, "admin-token", nil, "Token required by admin write endpoints (repeatable)")
	fs.BoolVar(&f.logJSON, "log-json", false, "Write logs as JSON")
	fs.IntVar(&f.queueSize, "queue-size", 1024, "Task queue size of each thread pool")
	fs.DurationVar(&f.shutdownTimeout, "shutdown-timeout", 10*time.Second, "Graceful shutdown timeout")
	fs.StringVar(&f.envPrefix, "env-prefix", startup.DefaultEnvPrefix, "Environment variable prefix for parameters")
	startup.NewLoader(catalogue).BindFlags(fs)
	return cmd
}
