package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

func newLocationsCommand(a *app) *cobra.Command {
	locationsCmd := &cobra.Command{
		Use:     "locations",
		Aliases: []string{"location"},
		Short:   "Keep a list of saved places",
	}

	locationsCmd.AddCommand(newLocationsCreateCommand(a))
	locationsCmd.AddCommand(newLocationsListCommand(a))
	locationsCmd.AddCommand(newLocationsShowCommand(a))
	locationsCmd.AddCommand(newLocationsUpdateCommand(a))
	locationsCmd.AddCommand(newLocationsDeleteCommand(a))
	locationsCmd.AddCommand(newLocationsFromPhotoCommand(a))

	return locationsCmd
}

type locationFlags struct {
	name     string
	lat, lon float64
	address  string
	category string
	rating   int
	notes    string
}

func (f *locationFlags) register(cmd *cobra.Command, withName bool) {
	fs := cmd.Flags()
	if withName {
		fs.StringVarP(&f.name, "name", "n", "", "Location name")
	}
	fs.Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	fs.Float64Var(&f.lon, "lon", 0, "Longitude in decimal degrees")
	fs.StringVar(&f.address, "address", "", "Postal address")
	fs.StringVar(&f.category, "category", "", "Category ("+categoryList()+")")
	fs.IntVar(&f.rating, "rating", 0, "Rating from 0 to 5")
	fs.StringVar(&f.notes, "notes", "", "Free-form notes")
}

// apply copies the flags given on the command line onto l.
func (f *locationFlags) apply(cmd *cobra.Command, l *models.Location) error {
	fs := cmd.Flags()
	if fs.Changed("name") {
		l.Name = f.name
	}
	if fs.Changed("lat") {
		lat := f.lat
		l.Latitude = &lat
	}
	if fs.Changed("lon") {
		lon := f.lon
		l.Longitude = &lon
	}
	if fs.Changed("address") {
		l.Address = f.address
	}
	if fs.Changed("category") {
		cat, err := parseCategory(f.category)
		if err != nil {
			return err
		}
		l.Category = cat
	}
	if fs.Changed("rating") {
		l.Rating = f.rating
	}
	if fs.Changed("notes") {
		l.Notes = f.notes
	}
	return nil
}

func parseCategory(s string) (models.LocationCategory, error) {
	cat, ok := models.ParseLocationCategory(s)
	if !ok {
		return "", common.NewValidationError("locations", fmt.Sprintf("unknown category %q (want one of %s)", s, categoryList()))
	}
	return cat, nil
}

func categoryList() string {
	cats := models.LocationCategories()
	names := make([]string, len(cats))
	for i, c := range cats {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

func newLocationsCreateCommand(a *app) *cobra.Command {
	var flags locationFlags

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Save a location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := &models.Location{Name: args[0]}
			if err := flags.apply(cmd, l); err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				created, err := svc.Store().CreateLocation(cmd.Context(), l)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created location %d %q\n", created.ID, created.Name)
				return nil
			})
		},
	}

	flags.register(cmd, false)
	return cmd
}

func newLocationsListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				locations, err := st.ListLocations(cmd.Context())
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(locations))
				for _, l := range locations {
					rows = append(rows, []string{
						strconv.FormatInt(l.ID, 10),
						l.Name,
						string(l.Category),
						coords(l.Latitude, l.Longitude),
						stars(l.Rating),
					})
				}
				printTable(cmd.OutOrStdout(), "No saved locations.",
					[]string{"ID", "Name", "Category", "Coordinates", "Rating"}, rows, []columnAlignment{alignRight})
				return nil
			})
		},
	}
}

func newLocationsShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <location-id>",
		Short: "Show a saved location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("location", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				l, err := st.GetLocation(cmd.Context(), id)
				if err != nil {
					return err
				}
				printLocation(cmd, l)
				return nil
			})
		},
	}
}

func printLocation(cmd *cobra.Command, l *models.Location) {
	fmt.Fprintln(cmd.OutOrStdout(), propertyTable([][2]string{
		{"ID", strconv.FormatInt(l.ID, 10)},
		{"Name", l.Name},
		{"Category", string(l.Category)},
		{"Coordinates", coords(l.Latitude, l.Longitude)},
		{"Address", l.Address},
		{"Rating", stars(l.Rating)},
		{"Notes", l.Notes},
		{"Created", l.CreatedDate.Format("2006-01-02 15:04:05")},
	}))
}

func newLocationsUpdateCommand(a *app) *cobra.Command {
	var flags locationFlags

	cmd := &cobra.Command{
		Use:   "update <location-id> [flags]",
		Short: "Edit a saved location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("location", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				ctx := cmd.Context()
				l, err := svc.Store().GetLocation(ctx, id)
				if err != nil {
					return err
				}
				if err := flags.apply(cmd, l); err != nil {
					return err
				}
				updated, err := svc.Store().UpdateLocation(ctx, l)
				if err != nil {
					return err
				}
				printLocation(cmd, updated)
				return nil
			})
		},
	}

	flags.register(cmd, true)
	return cmd
}

func newLocationsDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <location-id>",
		Short: "Delete a saved location",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("location", args[0])
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().DeleteLocation(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted location %d\n", id)
				return nil
			})
		},
	}
}

func newLocationsFromPhotoCommand(a *app) *cobra.Command {
	var (
		name     string
		category string
	)

	cmd := &cobra.Command{
		Use:   "from-photo <photo-id>",
		Short: "Save a photo's coordinates as a location",
		Long: `From-photo saves the coordinates of a photo as a new location. Without --name
the photo's location name, then its file name, is used. The address is looked
up by reverse geocoding when the service is reachable.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			cat, err := parseCategory(category)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				l, err := svc.SaveLocationFromPhoto(cmd.Context(), id, name, cat)
				if err != nil {
					return err
				}
				printLocation(cmd, l)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&name, "name", "n", "", "Location name")
	cmd.Flags().StringVar(&category, "category", "", "Category ("+categoryList()+")")
	return cmd
}
