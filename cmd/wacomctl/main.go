package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/merklejerk/wacom-profile-daemon/internal/control/client"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var socketPath string
	cmd := &cobra.Command{
		Use:           "wacomctl",
		Short:         "Control a running wacomprofiled daemon",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&socketPath, "socket", "", "path to the daemon control socket")

	newClient := func() (*client.Client, error) {
		return client.New(socketPath)
	}

	cmd.AddCommand(newStatusCommand(newClient))
	cmd.AddCommand(newDevicesCommand(newClient))
	cmd.AddCommand(newReloadCommand(newClient))
	cmd.AddCommand(newResolveCommand(newClient))
	cmd.AddCommand(newMetricsCommand(newClient))
	return cmd
}

type clientFactory func() (*client.Client, error)

func newStatusCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon state",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			status, err := cli.Status()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "dry run: %v\n", status.DryRun)
			if status.ActiveWindow != nil {
				fmt.Fprintf(out, "active window: %s %q", status.ActiveWindow.ID, status.ActiveWindow.Title)
				if len(status.ActiveWindow.Classes) > 0 {
					fmt.Fprintf(out, " [%s]", strings.Join(status.ActiveWindow.Classes, ", "))
				}
				fmt.Fprintln(out)
			} else {
				fmt.Fprintln(out, "active window: none")
			}
			fmt.Fprintf(out, "devices: %d\n", len(status.Devices))
			for _, rs := range status.Rulesets {
				fmt.Fprintf(out, "ruleset %q: %s\n", rs.Prefix, strings.Join(rs.Rules, ", "))
			}
			return nil
		},
	}
}

func newDevicesCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List tracked tablet components",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			devices, err := cli.Devices()
			if err != nil {
				return err
			}
			if len(devices) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no devices tracked")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tTYPE\tAREA")
			for _, dev := range devices {
				area := dev.InitialArea
				if area == "" {
					area = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", dev.ID, dev.Name, dev.Type, area)
			}
			return w.Flush()
		},
	}
}

func newReloadCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reload",
		Short: "Trigger a live config reload",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			if err := cli.Reload(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "reload ok")
			return nil
		},
	}
}

func newResolveCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "resolve",
		Short: "Preview rule resolution for the focused window",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			result, err := cli.Resolve()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(result.Resolutions) == 0 {
				fmt.Fprintln(out, "no device prefixes configured")
				return nil
			}
			for _, res := range result.Resolutions {
				fmt.Fprintf(out, "%s:\n", res.Prefix)
				if len(res.Matched) == 0 {
					fmt.Fprintln(out, "  no rules matched")
					continue
				}
				fmt.Fprintf(out, "  matched: %s\n", strings.Join(res.Matched, ", "))
				if res.Mapping != "" {
					fmt.Fprintf(out, "  mapping: %s\n", res.Mapping)
				}
				printActions(out, "pad", res.Pad)
				printActions(out, "stylus", res.Stylus)
				printActions(out, "eraser", res.Eraser)
			}
			return nil
		},
	}
}

func printActions(out io.Writer, label string, actions []string) {
	if len(actions) == 0 {
		return
	}
	fmt.Fprintf(out, "  %s: %s\n", label, strings.Join(actions, "; "))
}

func newMetricsCommand(newClient clientFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Show daemon counters",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := newClient()
			if err != nil {
				return err
			}
			result, err := cli.Metrics()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			totals := result.Metrics.Totals
			fmt.Fprintf(out, "matched %d, applied %d, mapping errors %d, dispatch errors %d\n",
				totals.Matched, totals.Applied, totals.MappingErrors, totals.DispatchErrors)
			if len(result.Metrics.Rules) == 0 {
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "PREFIX\tRULE\tMATCHED\tAPPLIED\tMAP ERR\tDISPATCH ERR")
			for _, rule := range result.Metrics.Rules {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
					rule.Prefix, rule.Rule, rule.Matched, rule.Applied, rule.MappingErrors, rule.DispatchErrors)
			}
			return w.Flush()
		},
	}
}
