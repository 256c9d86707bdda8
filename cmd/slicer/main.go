package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/jward/slicer"
	"github.com/jward/slicer/internal/config"
	"github.com/jward/slicer/internal/content"
	"github.com/jward/slicer/internal/logging"
	"github.com/jward/slicer/internal/store"
)

var (
	flagDB       string
	flagDriver   string
	flagConfig   string
	flagFormat   string
	flagLogLevel string
)

// errorHandled is set by outputError so main() doesn't double-print.
var errorHandled bool

// Loaded by the root command's PersistentPreRunE.
var (
	cfg    *config.Config
	logger *slog.Logger
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errorHandled {
			fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "slicer",
	Short:         "Extract compilable slices of a Java corpus",
	Long:          "Slicer computes the closure of a set of seed entities over a fact store of Java entities and relations, and reconstructs the selected code as a zip of .java files.",
	SilenceErrors: true,
	SilenceUsage:  true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := validateFormat(flagFormat); err != nil {
			return err
		}
		return loadConfig(cmd)
	},
	// No Run; prints help by default.
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "fact store DSN: SQLite path or PostgreSQL URL (default: slicer.db)")
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "database driver: sqlite3|pgx")
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: ./slicer.yaml if present)")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "json", "output format: json|text")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: debug|info|warn|error")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loadCmd)
	rootCmd.AddCommand(sliceCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(entityCmd)
	rootCmd.AddCommand(relationsCmd)
	rootCmd.AddCommand(filesCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(mirrorCmd)
}

// configFlags maps config keys to the flags that override them. Flags a
// command does not define are nil and ignored.
func configFlags(cmd *cobra.Command) map[string]*pflag.Flag {
	return map[string]*pflag.Flag{
		"database.dsn":       cmd.Root().PersistentFlags().Lookup("db"),
		"database.driver":    cmd.Root().PersistentFlags().Lookup("driver"),
		"log.level":          cmd.Root().PersistentFlags().Lookup("log-level"),
		"slice.timeout":      cmd.Flags().Lookup("timeout"),
		"slice.workers":      cmd.Flags().Lookup("workers"),
		"slice.check_syntax": cmd.Flags().Lookup("check-syntax"),
		"serve.addr":         cmd.Flags().Lookup("addr"),
	}
}

func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load(flagConfig, configFlags(cmd))
	if err != nil {
		return err
	}
	cfg = c
	logger = logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	return nil
}

// openStore opens the configured fact store.
func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.Database.Driver, cfg.Database.DSN,
		store.WithMaxOpenConns(cfg.Database.MaxOpenConns),
		store.WithConnMaxIdleTime(cfg.Database.ConnMaxIdleTime),
	)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", cfg.Database.DSN, err)
	}
	return s, nil
}

// newProvider builds the configured content provider. files resolves file
// paths for the repo and s3 providers.
func newProvider(files content.Locator) (slicer.ContentProvider, error) {
	return content.New(contentConfig(), files)
}

func contentConfig() content.Config {
	c := cfg.Content
	return content.Config{
		Kind: c.Provider,
		URL:  c.URL,
		Repo: c.Repo,
		S3: content.S3Config{
			Endpoint:  c.S3.Endpoint,
			Region:    c.S3.Region,
			AccessKey: c.S3.AccessKey,
			SecretKey: c.S3.SecretKey,
			Bucket:    c.S3.Bucket,
			Prefix:    c.S3.Prefix,
			UseSSL:    c.S3.Secure,
		},
		CacheSize: cfg.Cache.Contents,
	}
}

func newSlicer(open slicer.Opener) *slicer.Slicer {
	return slicer.New(open, slicer.WithLogger(logger))
}

func newReconstructor(p slicer.ContentProvider) *slicer.Reconstructor {
	return slicer.NewReconstructor(p,
		slicer.WithReconstructLogger(logger),
		slicer.WithSyntaxCheck(cfg.Slice.CheckSyntax),
	)
}
