package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rim/internal/snapshot"
)

func newInitCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the configuration and snapshot store",
		Long:  "Write a default config.yaml if none exists, then create the snapshot database.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := loadSettings(flags)
			if err != nil {
				return err
			}
			store := snapshot.NewStore(nil)
			if err := store.Attach(st.DataDir); err != nil {
				return fmt.Errorf("initialize snapshot store: %w", err)
			}
			path := store.Path()
			if err := store.Detach(); err != nil {
				return fmt.Errorf("finalize snapshot store: %w", err)
			}

			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), map[string]string{"config_dir": st.ConfigDir, "snapshot": path})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Config: %s\nSnapshot: %s\n", st.ConfigDir, path)
			return nil
		},
	}
}
