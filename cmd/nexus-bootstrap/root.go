package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	nexusbootstrap "github.com/aretw0/nexus-bootstrap"
	"github.com/aretw0/nexus-bootstrap/internal/cli"
	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/aretw0/nexus-bootstrap/internal/presentation/tui"
	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "nexus-bootstrap",
	Short: "Install, register and run a Nexus network node",
	Long: `nexus-bootstrap prepares the host, installs the Nexus CLI and starts the node.

Without arguments it performs a full bootstrap. Identity comes from WALLET_ADDRESS or
NODE_ID; local runs prompt for it when neither is set.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()

		return cli.Bootstrap(ctx, cli.Options{
			ConfigPath: configPath(cmd),
			Banner: func(w io.Writer) {
				tui.PrintBanner(w, strings.TrimSpace(nexusbootstrap.Version))
			},
		})
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var se *domain.StageError
		if !errors.As(err, &se) {
			// Stage errors are already logged by the bootstrapper.
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func configPath(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("config")
	return path
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the bootstrap YAML config (default $"+config.EnvConfigPath+" or ~/.nexus/bootstrap.yaml)")
}
