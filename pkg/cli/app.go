package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bstardust/memorable/internal/config"
	"github.com/bstardust/memorable/internal/library"
	"github.com/bstardust/memorable/internal/logger"
	"github.com/bstardust/memorable/internal/places"
	"github.com/bstardust/memorable/internal/retry"
	"github.com/bstardust/memorable/internal/store"
	"github.com/bstardust/memorable/pkg/common"
)

// app carries the global flags and the loaded configuration to every
// subcommand.
type app struct {
	configPath string
	logLevel   string
	noColor    bool
	dbPath     string

	cfg *config.Config
}

// loadConfig layers file, environment and global flags, then configures
// the logger.
func (a *app) loadConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(strings.TrimSpace(a.configPath))
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("no-color") {
		cfg.NoColor = a.noColor
	}
	if flags.Changed("db") {
		cfg.Library.DBPath = a.dbPath
	}

	logger.Init(cfg.NoColor)
	logger.SetLevel(cfg.LogLevel)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	a.cfg = cfg
	logger.Debug("Using library %s", cfg.Library.DBPath)
	return nil
}

// withStore opens the library database for read-only commands.
func (a *app) withStore(fn func(*store.Store) error) error {
	st, err := store.Open(a.cfg.Library.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st)
}

// withLibrary takes the library lock, opens the database and hands a
// Service to fn. Everything that writes to the database or to image files
// goes through here.
func (a *app) withLibrary(fn func(*library.Service) error) error {
	lock, err := library.AcquireLock(a.cfg.Library.DBPath)
	if err != nil {
		if errors.Is(err, library.ErrLocked) {
			return fmt.Errorf("%w; is another memorable command running?", err)
		}
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("%v", err)
		}
	}()

	return a.withStore(func(st *store.Store) error {
		return fn(a.newService(st))
	})
}

func (a *app) newService(st *store.Store) *library.Service {
	geo := a.cfg.Geo
	opts := []places.Option{
		places.WithUserAgent(geo.UserAgent),
		places.WithTimeout(geo.Timeout),
		places.WithRetry(retry.Default().WithMaxRetries(geo.MaxRetries)),
	}
	source := places.NewOverpassClient(geo.OverpassURL, opts...)
	return library.New(st,
		library.Config{
			Concurrency:   a.cfg.Import.Concurrency,
			Recursive:     a.cfg.Import.Recursive,
			Sidecars:      a.cfg.Import.Sidecars,
			DefaultRadius: geo.DefaultRadius,
		},
		library.WithPlaces(places.NewResolver(source, geo.DefaultRadius)),
		library.WithGeocoder(places.NewNominatimClient(geo.NominatimURL, opts...)),
	)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func defaultConfigHint() string {
	return config.DefaultPath()
}

func parseID(what, s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, common.NewValidationError("cli", fmt.Sprintf("invalid %s id %q", what, s))
	}
	return id, nil
}

func parseIDs(what string, args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, arg := range args {
		id, err := parseID(what, arg)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
