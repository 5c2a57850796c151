// Package commands provides the CLI commands for the assist client.
package commands

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/grantline/assist/internal/config"
	"github.com/grantline/assist/internal/logging"
	"github.com/grantline/assist/internal/session"
	"github.com/grantline/assist/internal/state"
	"github.com/grantline/assist/internal/transport"
	"github.com/grantline/assist/pkg/types"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	flagServer   string
	flagScope    string
	flagLogLevel string
	flagNoColor  bool
)

// appConfig is the resolved configuration, loaded before any command runs.
var appConfig *config.Config

var rootCmd = &cobra.Command{
	Use:   "assist",
	Short: "Grantline assistant - contextual Q&A for your grants",
	Long: `The Grantline assistant answers questions about your grant portfolio,
individual grants and workstreams, with citations back to the source
records.

Run 'assist chat' for an interactive conversation, 'assist ask' for a
one-shot question, or 'assist serve' to run the local stub backend.`,
	Version:           Version,
	PersistentPreRunE: setup,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagServer, "server", "", "Answer service URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagScope, "scope", "", `Scope, e.g. "global", "grant/g1", "workstream/w2"`)
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("assist %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
}

// setup loads environment, configuration and logging before any command.
func setup(cmd *cobra.Command, args []string) error {
	_ = godotenv.Load()

	dir, err := os.Getwd()
	if err != nil {
		dir = ""
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	if flagServer != "" {
		cfg.BaseURL = flagServer
	}
	if flagScope != "" {
		cfg.Scope = flagScope
	}
	if flagLogLevel != "" {
		cfg.LogLevel = flagLogLevel
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.LogLevel),
		Output: os.Stderr,
		Pretty: cfg.Pretty,
	})

	appConfig = cfg
	return nil
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// newSession builds a session for the configured scope and backend.
func newSession() (*session.Session, types.Scope) {
	scope := types.ParseScope(appConfig.Scope)
	client := transport.NewClient(transport.Config{
		BaseURL: appConfig.BaseURL,
		APIKey:  appConfig.APIKey,
	})
	store := state.New(appConfig.DataDir)

	return session.New(session.Options{
		Scope:   scope,
		Backend: client,
		Store:   store,
	}), scope
}
