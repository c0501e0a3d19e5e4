package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"envmap/pkg/interpolation"
	"envmap/pkg/projection"
)

var formatsCmd = &cobra.Command{
	Use:   "formats",
	Short: "List supported projections and interpolation methods",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Projections: %s\n", strings.Join(projection.SupportedNames(), ", "))
		fmt.Fprintf(out, "Methods: %s, %s\n", interpolation.Linear, interpolation.Nearest)
	},
}

func init() {
	rootCmd.AddCommand(formatsCmd)
}
