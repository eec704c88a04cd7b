// Package cmd implements the boardsync command line interface.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/meridianlabs/boardsync/internal/boardapi"
	"github.com/meridianlabs/boardsync/internal/config"
	"github.com/meridianlabs/boardsync/pkg/logging"
)

var (
	mappingFile string
	verbose     bool
	quiet       bool

	// Version information set by main.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// Date is the build date.
	Date = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "boardsync",
	Short: "Board reconciliation tool",
	Long: `Boardsync merges the records of one board into another: it builds a
duplicate-detection index over the target board, matches each source
record by its identity keys, and either enriches the existing record or
creates a new one, applying the configured column mappings, transforms
and merge strategies along the way.`,
	SilenceUsage: true,
}

// Execute runs the root command with signal-aware context.
func Execute(version, commit, date string) {
	Version = version
	Commit = commit
	Date = date
	rootCmd.Version = version

	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&mappingFile, "mapping", "mapping.yaml", "column mapping configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "only log warnings and errors")
}

// initConfig loads .env files and configures logging before any command
// runs.
func initConfig() {
	// .env.local overrides .env.
	for _, envFile := range []string{".env", ".env.local"} {
		if err := godotenv.Overload(envFile); err == nil && verbose {
			fmt.Fprintf(os.Stderr, "Loaded %s\n", envFile)
		}
	}

	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	if quiet {
		level = zerolog.WarnLevel
	}
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		if parsed, err := zerolog.ParseLevel(envLevel); err == nil {
			level = parsed
		}
	}

	zerolog.SetGlobalLevel(level)
	logging.SetDefault(logging.Default().Level(level))
}

// newClient builds the remote board API client from validated settings.
func newClient(settings *config.Settings) (*boardapi.Client, error) {
	opts := []boardapi.Option{}
	if settings.Endpoint != "" {
		opts = append(opts, boardapi.WithEndpoint(settings.Endpoint))
	}
	return boardapi.New(settings.Token, opts...)
}

// loadRun loads settings and the mapping file for commands that talk to
// the remote board store.
func loadRun() (*config.Settings, *config.Mapping, *boardapi.Client, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, nil, err
	}

	mapping, err := config.LoadMapping(mappingFile)
	if err != nil {
		return nil, nil, nil, err
	}

	client, err := newClient(settings)
	if err != nil {
		return nil, nil, nil, err
	}
	return settings, mapping, client, nil
}
