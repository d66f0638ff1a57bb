package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/models"
)

func newCollectionsCommand(a *app) *cobra.Command {
	collectionsCmd := &cobra.Command{
		Use:     "collections",
		Aliases: []string{"collection"},
		Short:   "Group photos into named collections",
	}

	collectionsCmd.AddCommand(newCollectionsCreateCommand(a))
	collectionsCmd.AddCommand(newCollectionsListCommand(a))
	collectionsCmd.AddCommand(newCollectionsUpdateCommand(a))
	collectionsCmd.AddCommand(newCollectionsDeleteCommand(a))
	collectionsCmd.AddCommand(newCollectionsAddCommand(a))
	collectionsCmd.AddCommand(newCollectionsRemoveCommand(a))
	collectionsCmd.AddCommand(newCollectionsPhotosCommand(a))

	return collectionsCmd
}

func newCollectionsCreateCommand(a *app) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withLibrary(func(svc *library.Service) error {
				c, err := svc.Store().CreateCollection(cmd.Context(), args[0], description)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created collection %d %q\n", c.ID, c.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Collection description")
	return cmd
}

func newCollectionsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				collections, err := st.ListCollections(cmd.Context())
				if err != nil {
					return err
				}
				printCollections(cmd, collections)
				return nil
			})
		},
	}
}

func printCollections(cmd *cobra.Command, collections []*models.Collection) {
	rows := make([][]string, 0, len(collections))
	for _, c := range collections {
		rows = append(rows, []string{
			strconv.FormatInt(c.ID, 10),
			c.Name,
			c.Description,
			c.CreatedDate.Format("2006-01-02"),
		})
	}
	printTable(cmd.OutOrStdout(), "No collections.", []string{"ID", "Name", "Description", "Created"}, rows,
		[]columnAlignment{alignRight})
}

func newCollectionsUpdateCommand(a *app) *cobra.Command {
	var name, description string

	cmd := &cobra.Command{
		Use:   "update <collection-id>",
		Short: "Rename a collection or change its description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("collection", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				ctx := cmd.Context()
				current, err := svc.Store().GetCollection(ctx, id)
				if err != nil {
					return err
				}
				if !cmd.Flags().Changed("name") {
					name = current.Name
				}
				if !cmd.Flags().Changed("description") {
					description = current.Description
				}
				c, err := svc.Store().UpdateCollection(ctx, id, name, description)
				if err != nil {
					return err
				}
				printCollections(cmd, []*models.Collection{c})
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "New name")
	cmd.Flags().StringVarP(&description, "description", "d", "", "New description")
	return cmd
}

func newCollectionsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <collection-id>",
		Short: "Delete a collection; its photos stay in the library",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("collection", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().DeleteCollection(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted collection %d\n", id)
				return nil
			})
		},
	}
}

func newCollectionsAddCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add <collection-id> <photo-id>...",
		Short: "Add photos to a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, photoIDs, err := parseMembershipArgs(args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().AddPhotosToCollection(cmd.Context(), collectionID, photoIDs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %d photos to collection %d\n", len(photoIDs), collectionID)
				return nil
			})
		},
	}
}

func newCollectionsRemoveCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <collection-id> <photo-id>...",
		Short: "Remove photos from a collection",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collectionID, photoIDs, err := parseMembershipArgs(args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().RemovePhotosFromCollection(cmd.Context(), collectionID, photoIDs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %d photos from collection %d\n", len(photoIDs), collectionID)
				return nil
			})
		},
	}
}

func newCollectionsPhotosCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "photos <collection-id>",
		Short: "List the photos in a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("collection", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				photos, err := st.CollectionPhotos(cmd.Context(), id)
				if err != nil {
					return err
				}
				printPhotos(cmd, photos)
				return nil
			})
		},
	}
}

func parseMembershipArgs(args []string) (int64, []int64, error) {
	collectionID, err := parseID("collection", args[0])
	if err != nil {
		return 0, nil, err
	}
	photoIDs, err := parseIDs("photo", args[1:])
	if err != nil {
		return 0, nil, err
	}
	return collectionID, photoIDs, nil
}
