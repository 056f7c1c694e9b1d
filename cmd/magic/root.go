package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.yaml"

// newRootCommand creates the root command. It shows help by default.
func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "magic",
		Short: "Generate occasion messages with moderation, quotas and caching",
		Long: `magic asks the generation endpoint for a message for an occasion,
relationship and tone. Input is screened locally, usage is capped per session
and per day, and identical requests are served from an in-process cache.

Configuration is read from config.yaml (missing file = defaults) and
MAGIC_* environment variables.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringP("config", "c", defaultConfigPath, "Path to config file")

	rootCmd.AddCommand(
		newGenerateCommand(),
		newAdviseCommand(),
		newUsageCommand(),
		newEncryptCommand(),
	)

	return rootCmd
}

// configPathFrom extracts the persistent --config flag.
func configPathFrom(cmd *cobra.Command) (string, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return "", fmt.Errorf("failed to get config flag: %w", err)
	}
	return path, nil
}
