package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsAreValid(t *testing.T) {
	cfg := New()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100.0, cfg.Geo.DefaultRadius)
	assert.Equal(t, 4, cfg.Import.Concurrency)
	assert.Equal(t, "memorable.db", filepath.Base(cfg.Library.DBPath))
}

func TestLoadConfigFromFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
log_level = "debug"

[library]
db_path = "/tmp/library.db"

[geo]
timeout = "3s"
default_radius = 250.0

[s3]
bucket = "from-file"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("MEMORABLE_S3_BUCKET", "from-env")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "/tmp/library.db", cfg.Library.DBPath)
	assert.Equal(t, 3*time.Second, cfg.Geo.Timeout)
	assert.Equal(t, 250.0, cfg.Geo.DefaultRadius)
	assert.Equal(t, "from-env", cfg.S3.Bucket)
	// untouched keys keep their defaults
	assert.Equal(t, 4, cfg.Import.Concurrency)
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestWriteFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	cfg := New()
	cfg.Library.DBPath = "/data/photos.db"
	cfg.Import.Concurrency = 8

	require.NoError(t, WriteFile(cfg, path, false))
	assert.Error(t, WriteFile(cfg, path, false), "existing file must not be overwritten")
	require.NoError(t, WriteFile(cfg, path, true))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/photos.db", loaded.Library.DBPath)
	assert.Equal(t, 8, loaded.Import.Concurrency)
	assert.Equal(t, cfg.Geo.Timeout, loaded.Geo.Timeout)
}

func TestValidateRejectsBadValues(t *testing.T) {
	cfg := New()
	cfg.Import.Concurrency = 0
	cfg.Geo.DefaultRadius = -1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import.concurrency")
	assert.Contains(t, err.Error(), "geo.default_radius")
}

func TestValidateS3BucketName(t *testing.T) {
	assert.NoError(t, ValidateS3BucketName("photo-archive"))
	assert.NoError(t, ValidateS3BucketName("photos.example"))
	assert.Error(t, ValidateS3BucketName("ab"))
	assert.Error(t, ValidateS3BucketName("Photo-Archive"))
	assert.Error(t, ValidateS3BucketName("photo archive"))
	assert.Error(t, ValidateS3BucketName("-photos"))
}

func TestValidateArchive(t *testing.T) {
	cfg := New()
	assert.Error(t, cfg.ValidateArchive())

	cfg.S3.Endpoint = "localhost:9000"
	cfg.S3.Bucket = "photos"
	cfg.S3.AccessKey = "key"
	cfg.S3.SecretKey = "secret"
	assert.NoError(t, cfg.ValidateArchive())
}
