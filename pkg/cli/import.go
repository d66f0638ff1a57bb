package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/library"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		concurrency int
		recursive   bool
		sidecars    bool
	)

	cmd := &cobra.Command{
		Use:   "import [flags] <file|directory>...",
		Short: "Import photos and their EXIF metadata into the library",
		Long: `Import reads the EXIF block of every image file named on the command line,
or found under a named directory, and records it in the library. Importing a
file again refreshes its EXIF fields and keeps ratings, notes and locations.
A Google Takeout JSON sidecar next to an image supplies the capture date and
position when the image itself has none.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("concurrency") {
				a.cfg.Import.Concurrency = concurrency
			}
			if cmd.Flags().Changed("recursive") {
				a.cfg.Import.Recursive = recursive
			}
			if cmd.Flags().Changed("sidecars") {
				a.cfg.Import.Sidecars = sidecars
			}
			return a.withLibrary(func(svc *library.Service) error {
				report := svc.Import(cmd.Context(), args)
				return printImportReport(cmd, report)
			})
		},
	}

	cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 4, "Number of files decoded at once")
	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Descend into subdirectories")
	cmd.Flags().BoolVar(&sidecars, "sidecars", true, "Read Google Takeout JSON sidecars")
	return cmd
}

func printImportReport(cmd *cobra.Command, report library.ImportReport) error {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(report.Outcomes))
	for _, o := range report.Outcomes {
		if o.OK() {
			rows = append(rows, []string{strconv.FormatInt(o.Photo.ID, 10), o.Path, "imported", str(o.Photo.DateTaken)})
			continue
		}
		rows = append(rows, []string{"", o.Path, o.Kind(), o.Err.Error()})
	}
	printTable(out, "No image files found.", []string{"ID", "Path", "Status", "Detail"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft})
	fmt.Fprintf(out, "Imported %d, failed %d (batch %s)\n", report.Imported(), report.Failed(), report.BatchID)

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed to import", n, len(report.Outcomes))
	}
	return nil
}
