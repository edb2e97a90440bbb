package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newExportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "export <collection> <file>",
		Short: "Write a cached collection to a JSONL file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				if _, err := s.service(args[0]); err != nil {
					return err
				}
				n, err := s.store.Export(cmd.Context(), args[0], args[1])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d %s records to %s\n", n, args[0], args[1])
				return nil
			})
		},
	}
}

func newImportCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Replace a cached collection with a JSONL file",
		Long: "Import loads one JSON document per line into the local snapshot. The\n" +
			"server is not contacted; malformed lines are skipped.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			// The import replaces the snapshot, so the restored state must not
			// be saved over it.
			defer s.close(cmd.Context(), false)

			svc, err := s.service(args[0])
			if err != nil {
				return err
			}
			info, err := s.store.Import(cmd.Context(), args[0], svc.Kind(), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d %s records\n", info.Records, args[0])
			return nil
		},
	}
}
