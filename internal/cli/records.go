package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/service"
)

func newHydrateCmd(flags *rootFlags) *cobra.Command {
	var user string
	cmd := &cobra.Command{
		Use:   "hydrate",
		Short: "Load every collection from the server",
		Long: "Hydrate fetches the session payload and replaces each configured\n" +
			"collection with the documents it carries. With --user it logs in instead.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				names := s.names()
				if len(names) == 0 {
					return fmt.Errorf("%w: no collections configured", errUsage)
				}
				svc := s.services[names[0]]
				if user != "" {
					if err := svc.Login(cmd.Context(), sessionKind.New(map[string]any{"user": user})); err != nil {
						return err
					}
				} else if err := svc.Hydrate(cmd.Context(), sessionKind.New(nil)); err != nil {
					return err
				}
				counts := make(map[string]int, len(names))
				for _, name := range names {
					counts[name] = s.services[name].State().Len()
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), counts)
				}
				for _, name := range names {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\n", name, counts[name])
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "log in as user instead of hydrating")
	return cmd
}

func newListCmd(flags *rootFlags) *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "list <collection>",
		Short: "List the cached records of a collection",
		Long: "List prints the records held in the local snapshot. Use --refresh to\n" +
			"hydrate from the server first.\n\nExample:\n  rimctl list User\n  rimctl list Membership --refresh --json",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				if refresh {
					if err := svc.Hydrate(cmd.Context(), sessionKind.New(nil)); err != nil {
						return err
					}
				}
				return printRecords(cmd.OutOrStdout(), flags.jsonMode, svc.Objects())
			})
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "hydrate from the server before listing")
	return cmd
}

func newGetCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "get <collection> <id>",
		Short: "Read one record from the server",
		Long:  "Get reads a record by identity. Relationship records use left/right.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				r, err := recordFor(svc, args[1])
				if err != nil {
					return err
				}
				if err := svc.Read(cmd.Context(), r); err != nil {
					return err
				}
				return printStored(cmd, flags, svc, r.Identity())
			})
		},
	}
}

func newCreateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "create <collection> <json>",
		Short: "Create a record on the server",
		Long: "Create builds a new record from a JSON document and saves it. The server\n" +
			"assigns the identity of single-key records.\n\nExample:\n  rimctl create User '{\"first_name\":\"Ada\"}'",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				doc, err := parseDocument(args[1])
				if err != nil {
					return err
				}
				if err := svc.CreateNew(doc); err != nil {
					return err
				}
				draft, ok := svc.GetEditing()
				if !ok {
					return fmt.Errorf("create %s: no draft", args[0])
				}
				svc.SetCurrent(draft)
				if err := svc.SaveNew(cmd.Context(), draft); err != nil {
					_ = svc.CancelNew()
					return err
				}
				saved, ok := svc.GetCurrent()
				if !ok {
					return fmt.Errorf("create %s: saved record not found", args[0])
				}
				return printStored(cmd, flags, svc, saved.Identity())
			})
		},
	}
}

func newUpdateCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "update <collection> <id> <json>",
		Short: "Change fields of a record on the server",
		Long: "Update sets each top-level field of the JSON document on the record and\n" +
			"saves it.\n\nExample:\n  rimctl update User 42 '{\"last_name\":\"Lovelace\"}'",
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				r, err := recordFor(svc, args[1])
				if err != nil {
					return err
				}
				changes, err := parseDocument(args[2])
				if err != nil {
					return err
				}
				if _, cached := svc.GetByID(r.Identity()); !cached {
					if err := svc.Read(cmd.Context(), r); err != nil {
						return err
					}
					r, _ = svc.GetByID(r.Identity())
				}
				if err := svc.StartEdit(r); err != nil {
					return err
				}
				for key, value := range changes {
					if err := svc.Edit(r, key, value); err != nil {
						_ = svc.CancelEdit()
						return err
					}
				}
				edited, ok := svc.GetEditing()
				if !ok {
					return fmt.Errorf("update %s: nothing being edited", r)
				}
				if err := svc.SaveUpdate(cmd.Context(), edited); err != nil {
					_ = svc.CancelEdit()
					return err
				}
				return printStored(cmd, flags, svc, edited.Identity())
			})
		},
	}
}

func newDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection> <id>",
		Short: "Delete a record on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				r, err := recordFor(svc, args[1])
				if err != nil {
					return err
				}
				if err := svc.StartDelete(r); err != nil {
					return err
				}
				if err := svc.CommitDelete(cmd.Context(), r); err != nil {
					_ = svc.CancelDelete()
					return err
				}
				if flags.jsonMode {
					return printJSON(cmd.OutOrStdout(), map[string]string{"deleted": r.Identity()})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s %s\n", args[0], r.Identity())
				return nil
			})
		},
	}
}

func newSearchCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "search <collection> <query>",
		Short: "Search a collection on the server",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd.Context(), flags, func(s *session) error {
				svc, err := s.service(args[0])
				if err != nil {
					return err
				}
				if err := svc.Search(cmd.Context(), args[1]); err != nil {
					return err
				}
				return printDocuments(cmd.OutOrStdout(), flags.jsonMode, svc.SearchResults())
			})
		},
	}
}

func newStatusCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cached snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer s.close(cmd.Context(), false)

			infos, err := s.store.Collections(cmd.Context())
			if err != nil {
				return err
			}
			if flags.jsonMode {
				return printJSON(cmd.OutOrStdout(), infos)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "snapshot: %s\napi: %s\n", s.store.Path(), s.settings.APIURL)
			for _, info := range infos {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d records\tsaved %s\n",
					info.Collection, info.Records, info.SavedAt.Format("2006-01-02 15:04:05"))
			}
			return nil
		},
	}
}

// printStored prints the stored record with identity id.
func printStored(cmd *cobra.Command, flags *rootFlags, svc *service.Service, id string) error {
	r, ok := svc.GetByID(id)
	if !ok {
		return fmt.Errorf("%s %s is not in the collection", svc.Name(), id)
	}
	if flags.jsonMode {
		return printJSON(cmd.OutOrStdout(), r.Data())
	}
	return printRecords(cmd.OutOrStdout(), false, []*record.Record{r})
}
