// pkg/cli/root.go
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/logger"
)

// Execute runs the memorable command line and exits non-zero on failure.
func Execute() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interruption signals
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-signalCh
		logger.Info("Received interrupt signal, shutting down gracefully...")
		cancel()
	}()

	rootCmd := NewRootCommand()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Error("%v", err)
		}
		os.Exit(1)
	}
}

// NewRootCommand builds the command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "memorable",
		Short: "Manage photo metadata in a local library",
		Long: `memorable keeps a SQLite catalogue of your photos: EXIF import and write-back,
ratings, notes, collections, saved locations, nearby place lookup and
archiving of originals to S3-compatible storage.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			return a.loadConfig(cmd)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Configuration file path (default "+defaultConfigHint()+")")
	pf.StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.BoolVar(&a.noColor, "no-color", false, "Disable colored log output")
	pf.StringVar(&a.dbPath, "db", "", "Library database path")

	// Add commands
	rootCmd.AddCommand(newImportCommand(a))
	rootCmd.AddCommand(newPhotosCommand(a))
	rootCmd.AddCommand(newCollectionsCommand(a))
	rootCmd.AddCommand(newMetaCommand(a))
	rootCmd.AddCommand(newExifCommand(a))
	rootCmd.AddCommand(newLocationsCommand(a))
	rootCmd.AddCommand(newGeoCommand(a))
	rootCmd.AddCommand(newArchiveCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))

	return rootCmd
}
