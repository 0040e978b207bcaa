package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logFile    string
	verbosity  int
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "wacomprofiled",
		Short:         "Per-application Wacom tablet profile daemon",
		Long:          "wacomprofiled watches the focused X11 window and applies per-application\ntablet settings: pad button bindings, stylus and eraser options, and\ntablet-to-screen area mappings.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath(), "path to the rules config file")
	cmd.PersistentFlags().StringVar(&opts.logFile, "log-file", "", "also write logs to this file")
	cmd.PersistentFlags().CountVarP(&opts.verbosity, "verbose", "v", "increase log verbosity (repeatable)")

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newCheckCommand(opts))
	return cmd
}

func defaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, "wacom-profile-daemon", "config.json")
}
