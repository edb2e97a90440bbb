// Package cli implements the rimctl command-line interface.
package cli

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rim/pkg/rest"
	"github.com/mesh-intelligence/rim/pkg/types"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	dataDir   string
	jsonMode  bool
}

// NewRootCmd creates the top-level "rimctl" command with global flags and
// all subcommands registered.
func NewRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:   "rimctl",
		Short: "Work with rim collections from the command line",
		Long: "rimctl drives rim collection services against a REST server.\n" +
			"Collections are cached in a local snapshot between runs, so list works offline.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flags.configDir, "config-dir", "", "configuration directory (default: $RIM_CONFIG_DIR or the user config dir)")
	root.PersistentFlags().StringVar(&flags.dataDir, "data-dir", "", "snapshot directory (default: data_dir from config.yaml, $RIM_DATA_DIR, or the user data dir)")
	root.PersistentFlags().BoolVar(&flags.jsonMode, "json", false, "output in JSON format")

	root.AddCommand(
		newVersionCmd(),
		newInitCmd(flags),
		newServeCmd(flags),
		newHydrateCmd(flags),
		newListCmd(flags),
		newGetCmd(flags),
		newCreateCmd(flags),
		newUpdateCmd(flags),
		newDeleteCmd(flags),
		newSearchCmd(flags),
		newStatusCmd(flags),
		newExportCmd(flags),
		newImportCmd(flags),
	)
	return root
}

// Execute runs the root command and exits with the appropriate code.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(exitCode(err))
	}
	os.Exit(exitSuccess)
}

// exitCode separates mistakes the user can fix from failures of the
// environment.
func exitCode(err error) int {
	var callErr *rest.CallError
	if errors.As(err, &callErr) && callErr.StatusCode < http.StatusInternalServerError {
		return exitUserError
	}
	switch {
	case errors.Is(err, types.ErrValidationFailed),
		errors.Is(err, types.ErrUnknownCollection),
		errors.Is(err, types.ErrNotFound),
		errors.Is(err, errUsage):
		return exitUserError
	default:
		return exitSysError
	}
}

var errUsage = errors.New("usage")
