package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"mensajemagico/internal/domain"
	"mensajemagico/internal/infra/config"
	"mensajemagico/internal/infra/logger"
)

// newAdviseCommand creates the advise command.
func newAdviseCommand() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "advise [relationship] [tone]",
		Short: "Show advisory warnings for a relationship and tone",
		Example: `  magic advise ex romántico
  magic advise --list`,
		Args: func(cmd *cobra.Command, args []string) error {
			if list {
				return cobra.NoArgs(cmd, args)
			}
			return cobra.ExactArgs(2)(cmd, args)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := configPathFrom(cmd)
			if err != nil {
				return err
			}
			cfg, err := config.Load(path)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			log, closeLog, err := logger.New(cfg.Logger)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			defer closeLog()

			engine, err := initAdvisory(cfg, log)
			if err != nil {
				return fmt.Errorf("advisory: %w", err)
			}

			out := cmd.OutOrStdout()
			if list {
				fmt.Fprintln(out, strings.Join(engine.Relationships(), "\n"))
				return nil
			}

			tone, err := domain.ParseTone(args[1])
			if err != nil {
				return err
			}
			advice := engine.Advise(args[0], tone)
			if !advice.HasWarning() {
				fmt.Fprintln(out, "Sin advertencias.")
				return nil
			}
			printAdvice(out, advice)
			return nil
		},
	}
	cmd.Flags().BoolVar(&list, "list", false, "List relationships that have advisory rules")
	return cmd
}
