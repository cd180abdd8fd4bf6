package cmd

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	relayURL string
	verbose  bool
)

var rootCmd = &cobra.Command{
	Use:   "relayctl",
	Short: "relayctl drives a Kroger login through a hosted kroger-relay",
	Long: `A command-line interface for the kroger-relay OAuth broker: log in via
the browser flow, refresh tokens, and obtain client-credential tokens,
all without holding the confidential Kroger client secret locally.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.WarnLevel
		if verbose {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&relayURL, "relay-url", "", "Base URL of the relay (defaults to the hosted instance)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
}
