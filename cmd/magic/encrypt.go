package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mensajemagico/internal/infra/config"
)

// newEncryptCommand creates the encrypt command.
func newEncryptCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "encrypt VALUE",
		Short: "Encrypt a secret for the config file",
		Long: `Encrypt a secret such as api.auth_token with the passphrase in
` + config.KeyEnv + `. Paste the printed enc: value into config.yaml.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := os.Getenv(config.KeyEnv)
			if key == "" {
				return fmt.Errorf("%s is not set", config.KeyEnv)
			}
			enc, err := config.EncryptValue(args[0], key)
			if err != nil {
				return fmt.Errorf("encrypt: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "enc:%s\n", enc)
			return nil
		},
	}
}
