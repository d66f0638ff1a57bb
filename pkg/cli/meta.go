package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/common"
)

func newMetaCommand(a *app) *cobra.Command {
	metaCmd := &cobra.Command{
		Use:   "meta",
		Short: "Attach free-form key/value metadata to photos",
	}

	metaCmd.AddCommand(&cobra.Command{
		Use:   "set <photo-id> <key> <value>",
		Short: "Set a key, replacing any earlier value",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().SetCustomMetadata(cmd.Context(), id, args[1], args[2]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %s on photo %d\n", args[1], id)
				return nil
			})
		},
	})

	metaCmd.AddCommand(&cobra.Command{
		Use:   "get <photo-id> [key]",
		Short: "Print one key or every key of a photo",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				entries, err := st.CustomMetadata(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(args) == 2 {
					for _, m := range entries {
						if m.Key == args[1] {
							fmt.Fprintln(out, m.Value)
							return nil
						}
					}
					return common.NewNotFoundError("meta get", fmt.Sprintf("key %q on photo %d", args[1], id))
				}
				rows := make([][]string, 0, len(entries))
				for _, m := range entries {
					rows = append(rows, []string{m.Key, m.Value})
				}
				printTable(out, "No custom metadata.", []string{"Key", "Value"}, rows, nil)
				return nil
			})
		},
	})

	metaCmd.AddCommand(&cobra.Command{
		Use:   "delete <photo-id> <key>",
		Short: "Remove a key from a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().DeleteCustomMetadata(cmd.Context(), id, args[1]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s from photo %d\n", args[1], id)
				return nil
			})
		},
	})

	return metaCmd
}
