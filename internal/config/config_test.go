package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ibeckermayer/ugc2notion/internal/browser"
	"github.com/ibeckermayer/ugc2notion/internal/notion"
	"github.com/ibeckermayer/ugc2notion/internal/publisher"
	"github.com/ibeckermayer/ugc2notion/internal/scraper"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"NOTION_API_KEY", "NOTION_DATABASE_ID", "UGC_LISTEN_ADDR", "UGC_CHROME_PATH", "UGC_CHROME_REMOTE_URL", "UGC_LOG_LEVEL"} {
		t.Setenv(k, "")
	}
}

func TestLoadFrom_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadFrom_FileOverridesDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[server]
listen_addr = ":9000"

[browser]
profile = "lambda"
nav_timeout = "20s"
image_strategy = "singleImage"

[notion]
database_id = "db-from-file"
media_strategy = "uploadBinary"
`), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.Server.ListenAddr)
	assert.Equal(t, "lambda", cfg.Browser.Profile)
	assert.Equal(t, 20*time.Second, cfg.Browser.NavTimeout.Duration)
	assert.Equal(t, "singleImage", cfg.Browser.ImageStrategy)
	assert.Equal(t, "db-from-file", cfg.Notion.DatabaseID)
	assert.Equal(t, string(publisher.UploadBinary), cfg.Notion.MediaStrategy)
	// untouched keys keep defaults
	assert.Equal(t, 2000, cfg.Notion.ContentLimit)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFrom_EnvWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("NOTION_API_KEY", "secret_abc")
	t.Setenv("NOTION_DATABASE_ID", "db-from-env")
	t.Setenv("UGC_LISTEN_ADDR", ":7000")
	t.Setenv("UGC_LOG_LEVEL", "debug")

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[notion]\ndatabase_id = \"db-from-file\"\n"), 0600))

	cfg, err := LoadFrom(path)
	require.NoError(t, err)

	assert.Equal(t, "secret_abc", cfg.Notion.APIKey)
	assert.Equal(t, "db-from-env", cfg.Notion.DatabaseID)
	assert.Equal(t, ":7000", cfg.Server.ListenAddr)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFrom_BadFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[browser]\nnav_timeout = \"soon\"\n"), 0600))

	_, err := LoadFrom(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.NoError(t, cfg.Validate(false))

	err := cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOTION_API_KEY")
	assert.Contains(t, err.Error(), "NOTION_DATABASE_ID")

	cfg.Notion.APIKey = "k"
	cfg.Notion.DatabaseID = "d"
	assert.NoError(t, cfg.Validate(true))

	cfg.Notion.MediaStrategy = "embed"
	cfg.Browser.ImageStrategy = "gallery"
	cfg.Browser.Profile = "mainframe"
	err = cfg.Validate(true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "media_strategy")
	assert.Contains(t, err.Error(), "image_strategy")
	assert.Contains(t, err.Error(), "profile")
}

func TestValidate_LinkProperties(t *testing.T) {
	cfg := Default()
	cfg.Notion.LinkProperties = "markdown"
	assert.ErrorContains(t, cfg.Validate(false), "notion.link_properties")
}

// Every value the pipeline packages accept must pass validation, and
// defaults must come from those packages.
func TestValidate_AcceptsPipelineValues(t *testing.T) {
	cfg := Default()
	assert.Equal(t, string(publisher.LinkOnly), cfg.Notion.MediaStrategy)
	assert.Equal(t, notion.LinkAsURL, cfg.Notion.LinkProperties)
	assert.Equal(t, string(scraper.StrategyCarousel), cfg.Browser.ImageStrategy)
	assert.Equal(t, browser.ProfileDesktop, cfg.Browser.Profile)

	for _, media := range []publisher.MediaStrategy{publisher.LinkOnly, publisher.UploadBinary} {
		for _, img := range []scraper.ImageStrategy{scraper.StrategyCarousel, scraper.StrategySingleImage} {
			cfg := Default()
			cfg.Notion.MediaStrategy = string(media)
			cfg.Browser.ImageStrategy = string(img)
			cfg.Notion.LinkProperties = notion.LinkAsText
			cfg.Browser.Profile = browser.ProfileLambda
			assert.NoError(t, cfg.Validate(false), "%s/%s", media, img)
		}
	}

	// empty values fall back to the package defaults
	cfg.Notion.MediaStrategy = ""
	cfg.Notion.LinkProperties = ""
	cfg.Browser.ImageStrategy = ""
	cfg.Browser.Profile = ""
	assert.NoError(t, cfg.Validate(false))
}

func TestSaveTo_RoundTrip(t *testing.T) {
	clearEnv(t)

	cfg := Default()
	cfg.Browser.NavTimeout = Duration{45 * time.Second}
	cfg.Notion.LinkProperties = notion.LinkAsText

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, cfg.SaveTo(path))

	loaded, err := LoadFrom(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
