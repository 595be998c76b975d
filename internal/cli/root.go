// Package cli defines the Cobra commands of the labauth CLI.
// This file holds the root command, shared flags and client lifecycle.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/labkm/labauth"
	promexport "github.com/labkm/labauth/metrics/export/prometheus"
)

var version = "dev" // set via ldflags at build time

// app carries flag values and the client built for one invocation.
type app struct {
	configPath   string
	baseURL      string
	storePath    string
	logLevel     string
	printMetrics bool

	client *labauth.Client
}

// newRootCommand builds the command tree around a.
func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "labauth",
		Short: "Session client for the lab knowledge-management API",
		Long: `labauth keeps an authenticated session against the lab
knowledge-management backend. Credentials persist between invocations
in a local file, and expired access tokens are refreshed transparently.`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.open(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close(cmd.ErrOrStderr())
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.baseURL, "base-url", "", "API base URL (overrides config)")
	flags.StringVar(&a.storePath, "store-path", "", "credential file (default: user config dir)")
	flags.StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	flags.BoolVar(&a.printMetrics, "metrics", false, "print Prometheus metrics to stderr on exit")

	root.AddCommand(
		newLoginCmd(a),
		newLogoutCmd(a),
		newWhoamiCmd(a),
		newRefreshCmd(a),
		newGetCmd(a),
		newNavigateCmd(a),
		newRoutesCmd(a),
	)
	return root
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := Run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Run executes one invocation with the given arguments and streams. The
// client is closed even when the command fails.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{}
	root := newRootCommand(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if cerr := a.close(stderr); err == nil {
		err = cerr
	}
	return err
}

func (a *app) open(cmd *cobra.Command) error {
	cfg, err := labauth.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if a.baseURL != "" {
		cfg.Transport.BaseURL = a.baseURL
	}
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}

	// A memory store forgets the session between invocations.
	if a.storePath != "" {
		cfg.Storage.Backend = labauth.StoreFile
		cfg.Storage.Path = a.storePath
	} else if cfg.Storage.Backend == labauth.StoreMemory {
		path, err := defaultStorePath()
		if err != nil {
			return err
		}
		cfg.Storage.Backend = labauth.StoreFile
		cfg.Storage.Path = path
	}

	logger := labauth.NewLogger(cfg.Log.Level, cfg.Log.Format, cmd.ErrOrStderr())
	client, err := labauth.New().
		WithConfig(cfg).
		WithLogger(logger).
		Build(cmd.Context())
	if err != nil {
		return fmt.Errorf("building client: %w", err)
	}
	a.client = client
	return nil
}

func (a *app) close(w io.Writer) error {
	if a.client == nil {
		return nil
	}
	if a.printMetrics {
		fmt.Fprint(w, promexport.NewPrometheusExporter(a.client).Render())
	}
	err := a.client.Close()
	a.client = nil
	return err
}

func defaultStorePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("locating config dir: %w", err)
	}
	return filepath.Join(dir, "labauth", "credentials.json"), nil
}
