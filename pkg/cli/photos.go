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

func newPhotosCommand(a *app) *cobra.Command {
	photosCmd := &cobra.Command{
		Use:     "photos",
		Aliases: []string{"photo"},
		Short:   "List, inspect and edit library photos",
	}

	photosCmd.AddCommand(newPhotosListCommand(a))
	photosCmd.AddCommand(newPhotosShowCommand(a))
	photosCmd.AddCommand(newPhotosUpdateCommand(a))
	photosCmd.AddCommand(newPhotosRateCommand(a))
	photosCmd.AddCommand(newPhotosDeleteCommand(a))

	return photosCmd
}

func newPhotosListCommand(a *app) *cobra.Command {
	var collection int64

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List photos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(func(st *store.Store) error {
				var (
					photos []*models.Photo
					err    error
				)
				if collection > 0 {
					photos, err = st.CollectionPhotos(cmd.Context(), collection)
				} else {
					photos, err = st.ListPhotos(cmd.Context())
				}
				if err != nil {
					return err
				}
				printPhotos(cmd, photos)
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&collection, "collection", 0, "Only list photos in this collection")
	return cmd
}

func printPhotos(cmd *cobra.Command, photos []*models.Photo) {
	rows := make([][]string, 0, len(photos))
	for _, p := range photos {
		camera := strings.TrimSpace(str(p.CameraMake) + " " + str(p.CameraModel))
		rows = append(rows, []string{
			strconv.FormatInt(p.ID, 10),
			p.FileName,
			str(p.DateTaken),
			camera,
			stars(p.Rating),
			str(p.LocationName),
		})
	}
	printTable(cmd.OutOrStdout(), "No photos.", []string{"ID", "File", "Taken", "Camera", "Rating", "Location"}, rows,
		[]columnAlignment{alignRight})
}

func newPhotosShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <photo-id>",
		Short: "Show every field of a photo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			return a.withStore(func(st *store.Store) error {
				ctx := cmd.Context()
				p, err := st.GetPhoto(ctx, id)
				if err != nil {
					return err
				}
				collections, err := st.PhotoCollections(ctx, id)
				if err != nil {
					return err
				}
				custom, err := st.CustomMetadata(ctx, id)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintln(out, propertyTable(photoProperties(p, collections)))
				if len(custom) > 0 {
					rows := make([][]string, 0, len(custom))
					for _, m := range custom {
						rows = append(rows, []string{m.Key, m.Value})
					}
					fmt.Fprintln(out, renderTable([]string{"Key", "Value"}, rows, nil))
				}
				return nil
			})
		},
	}
}

func photoProperties(p *models.Photo, collections []*models.Collection) [][2]string {
	names := make([]string, 0, len(collections))
	for _, c := range collections {
		names = append(names, c.Name)
	}
	size := ""
	if p.FileSize > 0 {
		size = strconv.FormatInt(p.FileSize, 10)
	}
	dimensions := ""
	if p.Width != nil && p.Height != nil {
		dimensions = fmt.Sprintf("%d x %d", *p.Width, *p.Height)
	}
	return [][2]string{
		{"ID", strconv.FormatInt(p.ID, 10)},
		{"Path", p.FilePath},
		{"Size", size},
		{"Imported", p.ImportDate.Format("2006-01-02 15:04:05")},
		{"Taken", str(p.DateTaken)},
		{"Coordinates", coords(p.Latitude, p.Longitude)},
		{"Location", str(p.LocationName)},
		{"Camera make", str(p.CameraMake)},
		{"Camera model", str(p.CameraModel)},
		{"Lens", str(p.LensModel)},
		{"Focal length", num(p.FocalLength)},
		{"Aperture", num(p.Aperture)},
		{"Shutter speed", str(p.ShutterSpeed)},
		{"ISO", integer(p.ISO)},
		{"Dimensions", dimensions},
		{"Orientation", integer(p.Orientation)},
		{"Rating", stars(p.Rating)},
		{"Notes", str(p.Notes)},
		{"Collections", strings.Join(names, ", ")},
	}
}

// photoUpdateFlags collects the editable photo fields from flags. Only flags
// given on the command line end up in the update.
type photoUpdateFlags struct {
	dateTaken     string
	clearDate     bool
	lat, lon      float64
	clearLocation bool
	locationName  string
	rating        int
	notes         string
	cameraMake    string
	cameraModel   string
	lensModel     string
	focalLength   float64
	aperture      float64
	shutterSpeed  string
	iso           int
}

func (f *photoUpdateFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&f.dateTaken, "date-taken", "", "Capture time (ISO 8601)")
	fs.BoolVar(&f.clearDate, "clear-date", false, "Remove the capture time")
	fs.Float64Var(&f.lat, "lat", 0, "Latitude in decimal degrees")
	fs.Float64Var(&f.lon, "lon", 0, "Longitude in decimal degrees")
	fs.BoolVar(&f.clearLocation, "clear-location", false, "Remove coordinates and location name")
	fs.StringVar(&f.locationName, "location-name", "", "Location name")
	fs.IntVar(&f.rating, "rating", 0, "Rating from 0 to 5")
	fs.StringVar(&f.notes, "notes", "", "Free-form notes")
	fs.StringVar(&f.cameraMake, "camera-make", "", "Camera make")
	fs.StringVar(&f.cameraModel, "camera-model", "", "Camera model")
	fs.StringVar(&f.lensModel, "lens-model", "", "Lens model")
	fs.Float64Var(&f.focalLength, "focal-length", 0, "Focal length in millimeters")
	fs.Float64Var(&f.aperture, "aperture", 0, "Aperture f-number")
	fs.StringVar(&f.shutterSpeed, "shutter-speed", "", "Shutter speed, e.g. 1/250")
	fs.IntVar(&f.iso, "iso", 0, "ISO speed")
}

func (f *photoUpdateFlags) update(cmd *cobra.Command) (models.PhotoUpdate, error) {
	fs := cmd.Flags()
	var u models.PhotoUpdate
	setString := func(name string, v string, dst **string) {
		if fs.Changed(name) {
			*dst = &v
		}
	}
	setFloat := func(name string, v float64, dst **float64) {
		if fs.Changed(name) {
			*dst = &v
		}
	}
	setInt := func(name string, v int, dst **int) {
		if fs.Changed(name) {
			*dst = &v
		}
	}

	setString("date-taken", f.dateTaken, &u.DateTaken)
	u.ClearDateTaken = f.clearDate
	setFloat("lat", f.lat, &u.Latitude)
	setFloat("lon", f.lon, &u.Longitude)
	u.ClearLocation = f.clearLocation
	setString("location-name", f.locationName, &u.LocationName)
	setInt("rating", f.rating, &u.Rating)
	setString("notes", f.notes, &u.Notes)
	setString("camera-make", f.cameraMake, &u.CameraMake)
	setString("camera-model", f.cameraModel, &u.CameraModel)
	setString("lens-model", f.lensModel, &u.LensModel)
	setFloat("focal-length", f.focalLength, &u.FocalLength)
	setFloat("aperture", f.aperture, &u.Aperture)
	setString("shutter-speed", f.shutterSpeed, &u.ShutterSpeed)
	setInt("iso", f.iso, &u.ISO)

	if u.Empty() {
		return u, common.NewValidationError("photos update", "no fields to update")
	}
	return u, nil
}

func newPhotosUpdateCommand(a *app) *cobra.Command {
	var flags photoUpdateFlags

	cmd := &cobra.Command{
		Use:   "update <photo-id> [flags]",
		Short: "Edit the stored metadata of a photo",
		Long: `Update changes only the fields given as flags. The image file is not touched;
run "memorable exif write" to copy the new values into it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			u, err := flags.update(cmd)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				p, err := svc.Store().UpdatePhoto(cmd.Context(), id, u)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), propertyTable(photoProperties(p, nil)))
				return nil
			})
		},
	}

	flags.register(cmd)
	return cmd
}

func newPhotosRateCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <photo-id> <0-5>",
		Short: "Set the rating of a photo",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("photo", args[0])
			if err != nil {
				return err
			}
			rating, err := strconv.Atoi(args[1])
			if err != nil {
				return common.NewValidationError("photos rate", fmt.Sprintf("invalid rating %q", args[1]))
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().SetRating(cmd.Context(), id, rating); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Rated photo %d: %d/5\n", id, rating)
				return nil
			})
		},
	}
}

func newPhotosDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <photo-id>...",
		Short: "Remove photos from the library",
		Long:  "Delete removes library entries with their memberships and custom metadata. Image files stay on disk.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("photo", args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				if err := svc.Store().DeletePhotos(cmd.Context(), ids); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d photos\n", len(ids))
				return nil
			})
		},
	}
}
