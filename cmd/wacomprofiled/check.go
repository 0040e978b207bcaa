package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merklejerk/wacom-profile-daemon/internal/config"
	"github.com/merklejerk/wacom-profile-daemon/internal/rules"
)

func newCheckCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the config file without starting the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			rulesets, err := rules.Compile(cfg)
			if err != nil {
				return err
			}
			ruleCount := 0
			for _, rs := range rulesets {
				ruleCount += len(rs.Rules)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d device prefixes, %d rules)\n", opts.configPath, len(rulesets), ruleCount)
			return nil
		},
	}
}
