package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jward/lattice"
	"github.com/jward/lattice/internal/config"
	"github.com/spf13/cobra"
)

var (
	flagDB       string
	flagFormat   string
	flagConfig   string
	flagLogLevel string
)

// cfg is loaded once per invocation by the root PersistentPreRunE.
var cfg config.Config

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "lattice",
	Short:         "Class hierarchy and subtype queries for Java code",
	Long:          "Lattice indexes Java sources with tree-sitter into a SQLite database and answers subtype and class hierarchy queries over it.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadConfig()
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "database path (default: .lattice/index.db relative to repo root)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: "+config.DefaultFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(runCmd)
}

// loadConfig reads the config file and environment, applies flag
// overrides, and installs the default logger.
func loadConfig() error {
	c, err := config.Load(flagConfig)
	if err != nil {
		return err
	}
	if flagLogLevel != "" {
		c.LogLevel = flagLogLevel
		if err := c.Validate(); err != nil {
			return err
		}
	}
	cfg = c

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	return nil
}

// engineOptions maps the loaded configuration to engine options.
func engineOptions() []lattice.Option {
	markers := make([]lattice.ClassType, len(cfg.MarkerInterfaces))
	for i, m := range cfg.MarkerInterfaces {
		markers[i] = lattice.ClassOf(m)
	}
	return []lattice.Option{
		lattice.WithLogger(slog.Default()),
		lattice.WithWorkers(cfg.Workers),
		lattice.WithRootClass(lattice.ClassOf(cfg.RootClass)),
		lattice.WithMarkerInterfaces(markers...),
		lattice.WithDeepArrayCovariance(cfg.DeepArrayCovariance),
		lattice.WithBootstrap(cfg.Bootstrap),
	}
}

// findRepoRoot walks up from startDir looking for a .git directory.
// Returns the directory containing .git, or startDir if not found.
func findRepoRoot(startDir string) string {
	dir := startDir
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return startDir
		}
		dir = parent
	}
}

// resolveDBPath returns the database path from the --db flag or the
// configuration, relative to repoRoot unless absolute.
func resolveDBPath(repoRoot string) string {
	path := cfg.DB
	if flagDB != "" {
		path = flagDB
	}
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(repoRoot, path)
}
