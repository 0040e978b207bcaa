package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/merklejerk/wacom-profile-daemon/internal/logging"
	"github.com/merklejerk/wacom-profile-daemon/internal/xorg"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List connected tablet components",
		RunE: func(cmd *cobra.Command, args []string) error {
			logging.Setup(opts.verbosity, opts.logFile)
			wacom := xorg.NewWacom()
			devices, err := wacom.ListDevices(cmd.Context())
			if err != nil {
				return fmt.Errorf("list devices: %w", err)
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no tablet devices found")
				return nil
			}
			for _, dev := range devices {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\tid: %s\ttype: %s\n", dev.Name, dev.ID, dev.Type)
			}
			return nil
		},
	}
}
