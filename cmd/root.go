package cmd

import (
	"fmt"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"wingo/config"
)

var rootCmd = &cobra.Command{
	Use:   "wingo",
	Short: "Wingo round lifecycle and settlement engine",
	Long: `Wingo opens fixed-length betting rounds for every configured interval,
settles expired rounds by drawing a digit and pays out winning bets.

Example:
  wingo migrate up
  wingo serve
  wingo demo-users add 42
  wingo rounds recent --interval 1m`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		config.Set(cfg)
		return setupLogging(cfg)
	},
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(demoUsersCmd)
	rootCmd.AddCommand(roundsCmd)
	rootCmd.AddCommand(simulateCmd)
}

func setupLogging(cfg *config.Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log.SetLevel(level)

	switch strings.ToLower(cfg.LogFormat) {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)
	return nil
}
