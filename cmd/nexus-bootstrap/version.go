package main

import (
	"fmt"
	"strings"

	nexusbootstrap "github.com/aretw0/nexus-bootstrap"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of nexus-bootstrap",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "nexus-bootstrap version %s\n", strings.TrimSpace(nexusbootstrap.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
