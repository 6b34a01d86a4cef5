package main

import (
	"fmt"

	"github.com/aretw0/nexus-bootstrap/internal/cli"
	"github.com/aretw0/nexus-bootstrap/internal/config"
	"github.com/aretw0/nexus-bootstrap/internal/logging"
	"github.com/aretw0/nexus-bootstrap/pkg/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Print the detected runtime environment",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cli.NewDetector(cfg, cli.Options{}).Detect())
		return nil
	},
}

var locateCmd = &cobra.Command{
	Use:   "locate",
	Short: "Print the path of the node binary",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		runner := cli.NewRunner(cfg, cli.Options{}, logging.NewNop())
		bin, ok := cli.NewLocator(cfg, runner.LookPath, logging.NewNop()).Locate()
		if !ok {
			return fmt.Errorf("%w: %s", domain.ErrBinaryNotFound, cfg.BinaryName)
		}
		fmt.Fprintln(cmd.OutOrStdout(), bin)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as YAML",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		out, err := yaml.Marshal(cfg.Map())
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(out)
		return err
	},
}

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Print the identity saved by the last bootstrap (masked)",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd), nil)
		if err != nil {
			return err
		}
		id, err := cli.SavedIdentity(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id.Mode(), id.Masked())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(detectCmd, locateCmd, configCmd, identityCmd)
}
