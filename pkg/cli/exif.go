package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/exif"
	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/pkg/common"
)

func newExifCommand(a *app) *cobra.Command {
	exifCmd := &cobra.Command{
		Use:   "exif",
		Short: "Write library metadata into image files",
	}

	exifCmd.AddCommand(newExifWriteCommand(a))
	exifCmd.AddCommand(newExifRestoreCommand(a))
	exifCmd.AddCommand(newExifInspectCommand())

	return exifCmd
}

func newExifWriteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "write <photo-id>...",
		Short: "Write stored metadata into the photos' JPEG files",
		Long: `Write copies the stored date, camera, exposure, GPS, rating and notes of each
photo into its JPEG file. The previous file is kept next to it with a
` + exif.BackupSuffix + ` suffix. Photos are written one at a time; a failure does not
stop the others.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("photo", args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				return printExportOutcomes(cmd, svc.WriteExifBatch(cmd.Context(), ids))
			})
		},
	}
}

func newExifRestoreCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <photo-id>...",
		Short: "Put back the files saved by the last EXIF write",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ids, err := parseIDs("photo", args)
			if err != nil {
				return err
			}
			return a.withLibrary(func(svc *library.Service) error {
				outcomes := make([]library.ExportOutcome, 0, len(ids))
				for _, id := range ids {
					outcomes = append(outcomes, svc.RestoreBackup(cmd.Context(), id))
				}
				return printExportOutcomes(cmd, outcomes)
			})
		},
	}
}

func printExportOutcomes(cmd *cobra.Command, outcomes []library.ExportOutcome) error {
	failed := 0
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		status := "ok"
		if !o.Success {
			status = o.Kind()
			failed++
		}
		rows = append(rows, []string{strconv.FormatInt(o.PhotoID, 10), o.Path, status, o.Message})
	}
	printTable(cmd.OutOrStdout(), "Nothing to do.", []string{"ID", "Path", "Status", "Message"}, rows,
		[]columnAlignment{alignRight})
	if failed > 0 {
		return fmt.Errorf("%d of %d photos failed", failed, len(outcomes))
	}
	return nil
}

func newExifInspectCommand() *cobra.Command {
	var decoded bool

	cmd := &cobra.Command{
		Use:         "inspect <file>",
		Short:       "List the EXIF tags of an image file",
		Args:        cobra.ExactArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return common.NewIOError("exif inspect", err)
			}
			out := cmd.OutOrStdout()

			if decoded {
				rec := exif.Decode(data)
				fmt.Fprintln(out, propertyTable(recordProperties(rec)))
				return nil
			}

			fields, err := exif.Inspect(data)
			if err != nil {
				return common.NewCorruptMetadataError("exif inspect", err)
			}
			rows := make([][]string, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, []string{f.Name, f.Value})
			}
			printTable(out, "No EXIF data.", []string{"Tag", "Value"}, rows, nil)
			return nil
		},
	}

	cmd.Flags().BoolVar(&decoded, "decoded", false, "Show the fields memorable imports instead of raw tags")
	return cmd
}

func recordProperties(r exif.Record) [][2]string {
	return [][2]string{
		{"Taken", str(r.DateTaken)},
		{"Coordinates", coords(r.Latitude, r.Longitude)},
		{"Camera make", str(r.CameraMake)},
		{"Camera model", str(r.CameraModel)},
		{"Lens", str(r.LensModel)},
		{"Focal length", num(r.FocalLength)},
		{"Aperture", num(r.Aperture)},
		{"Shutter speed", str(r.ShutterSpeed)},
		{"ISO", integer(r.ISO)},
		{"Width", integer(r.Width)},
		{"Height", integer(r.Height)},
		{"Orientation", integer(r.Orientation)},
	}
}
