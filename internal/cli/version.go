package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

const modulePath = "github.com/mesh-intelligence/rim"

// Version is the rimctl release, overridden at link time with
// -ldflags "-X github.com/mesh-intelligence/rim/internal/cli.Version=...".
var Version = "0.1.0"

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the rimctl version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "rimctl v%s\nmodule: %s\n", Version, modulePath)
			return nil
		},
	}
}
