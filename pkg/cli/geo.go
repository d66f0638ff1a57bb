package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/common"
	"github.com/bstardust/memorable/pkg/models"
)

func newGeoCommand(a *app) *cobra.Command {
	geoCmd := &cobra.Command{
		Use:   "geo",
		Short: "Nearby places, addresses and photo coordinates",
	}

	geoCmd.AddCommand(newGeoNearbyCommand(a))
	geoCmd.AddCommand(newGeoReverseCommand(a))
	geoCmd.AddCommand(newGeoApplyCommand(a))
	geoCmd.AddCommand(newGeoSetLocationCommand(a))
	geoCmd.AddCommand(newGeoPhotosCommand(a))

	return geoCmd
}

// pointFlags reads a coordinate from --lat/--lon or from a photo given with
// --photo.
type pointFlags struct {
	lat, lon float64
	photo    int64
}

func (f *pointFlags) register(cmd *cobra.Command, withPhoto bool) {
	cmd.Flags().Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	cmd.Flags().Float64Var(&f.lon, "lon", 0, "Longitude in decimal degrees")
	if withPhoto {
		cmd.Flags().Int64Var(&f.photo, "photo", 0, "Use the coordinates of this photo")
	}
}

func (f *pointFlags) resolve(cmd *cobra.Command, st *store.Store) (float64, float64, error) {
	const op = "geo"
	fs := cmd.Flags()
	if fs.Changed("photo") {
		p, err := st.GetPhoto(cmd.Context(), f.photo)
		if err != nil {
			return 0, 0, err
		}
		if !p.HasCoordinates() {
			return 0, 0, common.NewValidationError(op, fmt.Sprintf("photo %d has no coordinates", f.photo))
		}
		return *p.Latitude, *p.Longitude, nil
	}
	if !fs.Changed("lat") || !fs.Changed("lon") {
		return 0, 0, common.NewValidationError(op, "both --lat and --lon are required")
	}
	return f.lat, f.lon, nil
}

func newGeoNearbyCommand(a *app) *cobra.Command {
	var (
		point  pointFlags
		radius float64
	)

	cmd := &cobra.Command{
		Use:   "nearby --lat <lat> --lon <lon> | --photo <photo-id>",
		Short: "List named places around a coordinate, closest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				lat, lon, err := point.resolve(cmd, st)
				if err != nil {
					return err
				}
				found := a.newService(st).NearbyPlaces(cmd.Context(), lat, lon, radius)
				printPlaces(cmd, found)
				return nil
			})
		},
	}

	point.register(cmd, true)
	cmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Search radius in meters (default from geo.default_radius)")
	return cmd
}

func printPlaces(cmd *cobra.Command, found []models.Place) {
	rows := make([][]string, 0, len(found))
	for _, p := range found {
		distance := "?"
		if p.HasDistance() {
			distance = strconv.FormatFloat(math.Round(p.Distance), 'f', 0, 64) + " m"
		}
		rows = append(rows, []string{p.Name, string(p.Category), p.Type, distance})
	}
	printTable(cmd.OutOrStdout(), "No places found.", []string{"Name", "Category", "Type", "Distance"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight})
}

func newGeoReverseCommand(a *app) *cobra.Command {
	var (
		point   pointFlags
		details bool
	)

	cmd := &cobra.Command{
		Use:   "reverse --lat <lat> --lon <lon> | --photo <photo-id>",
		Short: "Look up the postal address of a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				lat, lon, err := point.resolve(cmd, st)
				if err != nil {
					return err
				}
				addr, ok := a.newService(st).ReverseGeocode(cmd.Context(), lat, lon)
				if !ok {
					return common.NewNotFoundError("geo reverse", fmt.Sprintf("no address for %.6f, %.6f", lat, lon))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, addr.Address)
				if details && len(addr.Details) > 0 {
					pairs := make([][2]string, 0, len(addr.Details))
					for _, k := range sortedKeys(addr.Details) {
						pairs = append(pairs, [2]string{k, addr.Details[k]})
					}
					fmt.Fprintln(out, propertyTable(pairs))
				}
				return nil
			})
		},
	}

	point.register(cmd, true)
	cmd.Flags().BoolVar(&details, "details", false, "Also print the address components")
	return cmd
}

func newGeoApplyCommand(a *app) *cobra.Command {
	var radius float64

	cmd := &cobra.Command{
		Use:   "apply <photo-id>...",
		Short: "Name photos after the closest place around their coordinates",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("photo", args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				failed := 0
				rows := make([][]string, 0, len(ids))
				for _, id := range ids {
					place, err := svc.ApplyNearbyPlace(cmd.Context(), id, radius)
					switch {
					case err != nil:
						failed++
						rows = append(rows, []string{strconv.FormatInt(id, 10), common.KindOf(err), err.Error()})
					case place == nil:
						rows = append(rows, []string{strconv.FormatInt(id, 10), "unchanged", "no place nearby"})
					default:
						rows = append(rows, []string{strconv.FormatInt(id, 10), "named",
							fmt.Sprintf("%s (%s, %.0f m)", place.Name, place.Category, place.Distance)})
					}
				}
				printTable(cmd.OutOrStdout(), "Nothing to do.", []string{"ID", "Status", "Place"}, rows,
					[]columnAlignment{alignRight})
				if failed > 0 {
					return fmt.Errorf("%d of %d photos failed", failed, len(ids))
				}
				return nil
			})
		},
	}

	cmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Search radius in meters (default from geo.default_radius)")
	return cmd
}

func newGeoSetLocationCommand(a *app) *cobra.Command {
	var (
		point pointFlags
		name  string
	)

	cmd := &cobra.Command{
		Use:   "set-location --lat <lat> --lon <lon> [--name <name>] <photo-id>...",
		Short: "Give several photos the same coordinates",
		Long:  "Set-location updates every listed photo or none of them.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("photo", args)
			if err != nil {
				return err
			}
			var namePtr *string
			if cmd.Flags().Changed("name") {
				namePtr = &name
			}
			return a.withLibrary(func(svc *library.Service) error {
				lat, lon, err := point.resolve(cmd, svc.Store())
				if err != nil {
					return err
				}
				if err := svc.BulkSetLocation(cmd.Context(), ids, lat, lon, namePtr); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Set %.6f, %.6f on %d photos\n", lat, lon, len(ids))
				return nil
			})
		},
	}

	point.register(cmd, false)
	cmd.Flags().StringVarP(&name, "name", "n", "", "Location name")
	return cmd
}

func newGeoPhotosCommand(a *app) *cobra.Command {
	var (
		point  pointFlags
		radius float64
	)

	cmd := &cobra.Command{
		Use:   "photos --lat <lat> --lon <lon> [--radius <meters>]",
		Short: "List library photos taken near a coordinate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if radius <= 0 {
				radius = a.cfg.Geo.DefaultRadius
			}
			return a.withStore(func(st *store.Store) error {
				lat, lon, err := point.resolve(cmd, st)
				if err != nil {
					return err
				}
				near, err := st.PhotosNear(cmd.Context(), lat, lon, radius)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(near))
				for _, n := range near {
					rows = append(rows, []string{
						strconv.FormatInt(n.Photo.ID, 10),
						n.Photo.FileName,
						str(n.Photo.DateTaken),
						strconv.FormatFloat(math.Round(n.Distance), 'f', 0, 64) + " m",
					})
				}
				printTable(cmd.OutOrStdout(), "No photos nearby.", []string{"ID", "File", "Taken", "Distance"}, rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight})
				return nil
			})
		},
	}

	point.register(cmd, true)
	cmd.Flags().Float64VarP(&radius, "radius", "r", 0, "Search radius in meters (default from geo.default_radius)")
	return cmd
}
