package main

import (
	"fmt"
	"os"
	"time"

	"github.com/aretw0/nexus-bootstrap/internal/cli"
	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/aretw0/nexus-bootstrap/internal/presentation/tui"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "List recent bootstrap runs, or the commands of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		runID := ""
		if len(args) == 1 {
			runID = args[0]
		}
		limit, _ := cmd.Flags().GetInt("limit")

		md, err := cli.History(cmd.Context(), cfg, runID, limit)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, md)
	},
}

var hostsCmd = &cobra.Command{
	Use:   "hosts",
	Short: "Show supervised nodes with a live heartbeat in Redis",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		beats, err := cli.Hosts(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return printMarkdown(cmd, tui.HostsMarkdown(beats, time.Now()))
	},
}

// printMarkdown renders md with glamour when stdout is a terminal.
func printMarkdown(cmd *cobra.Command, md string) error {
	if cli.IsTerminal(os.Stdout) {
		if rendered, err := tui.NewRenderer(0)(md); err == nil {
			md = rendered
		}
	}
	_, err := fmt.Fprint(cmd.OutOrStdout(), md)
	return err
}

func init() {
	rootCmd.AddCommand(historyCmd, hostsCmd)
	historyCmd.Flags().IntP("limit", "n", 20, "Number of runs to show")
}
