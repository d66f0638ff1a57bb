package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	LogLevel string        `mapstructure:"log_level" toml:"log_level"`
	NoColor  bool          `mapstructure:"no_color" toml:"no_color"`
	Library  LibraryConfig `mapstructure:"library" toml:"library"`
	Import   ImportConfig  `mapstructure:"import" toml:"import"`
	Geo      GeoConfig     `mapstructure:"geo" toml:"geo"`
	S3       S3Config      `mapstructure:"s3" toml:"s3"`
	Archive  ArchiveConfig `mapstructure:"archive" toml:"archive"`
}

// LibraryConfig locates the metadata database.
type LibraryConfig struct {
	DBPath string `mapstructure:"db_path" toml:"db_path"`
}

// ImportConfig controls photo import.
type ImportConfig struct {
	Concurrency int  `mapstructure:"concurrency" toml:"concurrency"`
	Recursive   bool `mapstructure:"recursive" toml:"recursive"`
	Sidecars    bool `mapstructure:"sidecars" toml:"sidecars"`
}

// GeoConfig points at the reverse geocoder and nearby-place services.
type GeoConfig struct {
	NominatimURL  string        `mapstructure:"nominatim_url" toml:"nominatim_url"`
	OverpassURL   string        `mapstructure:"overpass_url" toml:"overpass_url"`
	UserAgent     string        `mapstructure:"user_agent" toml:"user_agent"`
	Timeout       time.Duration `mapstructure:"timeout" toml:"timeout"`
	DefaultRadius float64       `mapstructure:"default_radius" toml:"default_radius"`
	MaxRetries    int           `mapstructure:"max_retries" toml:"max_retries"`
}

// S3Config represents S3 connection configuration
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint" toml:"endpoint"`
	Region    string `mapstructure:"region" toml:"region"`
	Bucket    string `mapstructure:"bucket" toml:"bucket"`
	AccessKey string `mapstructure:"access_key" toml:"access_key"`
	SecretKey string `mapstructure:"secret_key" toml:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl" toml:"use_ssl"`
	Prefix    string `mapstructure:"prefix" toml:"prefix"`
}

// ArchiveConfig represents archive upload configuration
type ArchiveConfig struct {
	Concurrency  int           `mapstructure:"concurrency" toml:"concurrency"`
	DryRun       bool          `mapstructure:"dry_run" toml:"dry_run"`
	Resume       bool          `mapstructure:"resume" toml:"resume"`
	JournalPath  string        `mapstructure:"journal_path" toml:"journal_path"`
	SkipExisting bool          `mapstructure:"skip_existing" toml:"skip_existing"`
	Timeout      time.Duration `mapstructure:"timeout" toml:"timeout"`
}

// New creates a new configuration with default values
func New() *Config {
	dataDir := defaultDataDir()
	return &Config{
		LogLevel: "info",
		Library: LibraryConfig{
			DBPath: filepath.Join(dataDir, "memorable.db"),
		},
		Import: ImportConfig{
			Concurrency: 4,
			Recursive:   true,
			Sidecars:    true,
		},
		Geo: GeoConfig{
			NominatimURL:  "https://nominatim.openstreetmap.org",
			OverpassURL:   "https://overpass-api.de/api/interpreter",
			UserAgent:     "memorable/1.0",
			Timeout:       15 * time.Second,
			DefaultRadius: 100,
			MaxRetries:    2,
		},
		S3: S3Config{
			Region: "us-east-1",
			UseSSL: true,
		},
		Archive: ArchiveConfig{
			Concurrency:  4,
			Resume:       true,
			JournalPath:  filepath.Join(dataDir, "archive-journal.json"),
			SkipExisting: true,
			Timeout:      30 * time.Minute,
		},
	}
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "memorable")
	}
	return ".memorable"
}

// DefaultPath returns the config file consulted when --config is not given.
func DefaultPath() string {
	return filepath.Join(defaultDataDir(), "config.toml")
}

// LoadConfig reads configuration from path (or the default location when path
// is empty) layered over New() defaults. MEMORABLE_* environment variables
// override file values, e.g. MEMORABLE_S3_BUCKET. A missing default file is
// not an error; a missing explicit file is.
func LoadConfig(path string) (*Config, error) {
	cfg := New()

	v := viper.New()
	v.SetEnvPrefix("memorable")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if explicit || fileExists(path) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.Library.DBPath = expandHome(cfg.Library.DBPath)
	cfg.Archive.JournalPath = expandHome(cfg.Archive.JournalPath)

	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during
// Unmarshal even when the file does not mention it.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("no_color", cfg.NoColor)
	v.SetDefault("library.db_path", cfg.Library.DBPath)
	v.SetDefault("import.concurrency", cfg.Import.Concurrency)
	v.SetDefault("import.recursive", cfg.Import.Recursive)
	v.SetDefault("import.sidecars", cfg.Import.Sidecars)
	v.SetDefault("geo.nominatim_url", cfg.Geo.NominatimURL)
	v.SetDefault("geo.overpass_url", cfg.Geo.OverpassURL)
	v.SetDefault("geo.user_agent", cfg.Geo.UserAgent)
	v.SetDefault("geo.timeout", cfg.Geo.Timeout)
	v.SetDefault("geo.default_radius", cfg.Geo.DefaultRadius)
	v.SetDefault("geo.max_retries", cfg.Geo.MaxRetries)
	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.bucket", cfg.S3.Bucket)
	v.SetDefault("s3.access_key", cfg.S3.AccessKey)
	v.SetDefault("s3.secret_key", cfg.S3.SecretKey)
	v.SetDefault("s3.use_ssl", cfg.S3.UseSSL)
	v.SetDefault("s3.prefix", cfg.S3.Prefix)
	v.SetDefault("archive.concurrency", cfg.Archive.Concurrency)
	v.SetDefault("archive.dry_run", cfg.Archive.DryRun)
	v.SetDefault("archive.resume", cfg.Archive.Resume)
	v.SetDefault("archive.journal_path", cfg.Archive.JournalPath)
	v.SetDefault("archive.skip_existing", cfg.Archive.SkipExisting)
	v.SetDefault("archive.timeout", cfg.Archive.Timeout)
}

// WriteFile writes cfg as TOML to path, creating parent directories.
// It refuses to overwrite an existing file unless force is set.
func WriteFile(cfg *Config, path string, force bool) error {
	if !force && fileExists(path) {
		return fmt.Errorf("config file %s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}
