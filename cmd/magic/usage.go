package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// usageReport is the YAML shape printed by the usage command.
type usageReport struct {
	Limits struct {
		Session     int    `yaml:"session"`
		Daily       int    `yaml:"daily"`
		MinInterval string `yaml:"min_interval"`
	} `yaml:"limits"`
	Session struct {
		Count   int    `yaml:"count"`
		Daily   int    `yaml:"daily"`
		Last    string `yaml:"last_generation,omitempty"`
		Allowed bool   `yaml:"allowed"`
		Wait    string `yaml:"wait,omitempty"`
		Message string `yaml:"message,omitempty"`
	} `yaml:"session"`
}

// newUsageCommand creates the usage command.
func newUsageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show the configured usage limits",
		Long: `Show the configured usage limits and whether a generation would be
allowed right now.

Usage counters live in memory for a single invocation, so the session counts
start at zero on every run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newAppFromCommand(cmd)
			if err != nil {
				return err
			}
			defer a.Close(cmd.Context())

			limits := a.governor.Limits()
			state := a.governor.Snapshot()
			decision := a.governor.Check()

			var r usageReport
			r.Limits.Session = limits.SessionLimit
			r.Limits.Daily = limits.DailyLimit
			r.Limits.MinInterval = limits.MinInterval.String()
			r.Session.Count = state.SessionCount
			r.Session.Daily = state.DailyCount
			if !state.LastGenerationAt.IsZero() {
				r.Session.Last = state.LastGenerationAt.Format(time.RFC3339)
			}
			r.Session.Allowed = decision.Allowed
			if decision.Delay > 0 {
				r.Session.Wait = decision.Delay.String()
			}
			r.Session.Message = decision.Message

			data, err := yaml.Marshal(&r)
			if err != nil {
				return fmt.Errorf("marshal usage: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
}
