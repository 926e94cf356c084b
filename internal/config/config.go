package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/ibeckermayer/ugc2notion/internal/browser"
	"github.com/ibeckermayer/ugc2notion/internal/notion"
	"github.com/ibeckermayer/ugc2notion/internal/publisher"
	"github.com/ibeckermayer/ugc2notion/internal/scraper"
)

const appName = "ugc2notion"

// Config holds all application configuration
type Config struct {
	Version int           `toml:"version"`
	Server  ServerConfig  `toml:"server"`
	Browser BrowserConfig `toml:"browser"`
	Notion  NotionConfig  `toml:"notion"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	ListenAddr      string   `toml:"listen_addr"`
	AllowedOrigins  []string `toml:"allowed_origins"`
	RequestTimeout  Duration `toml:"request_timeout"`
	ShutdownTimeout Duration `toml:"shutdown_timeout"`
}

type BrowserConfig struct {
	Headless       bool     `toml:"headless"`
	ExecPath       string   `toml:"exec_path"`
	RemoteURL      string   `toml:"remote_url"`
	UserAgent      string   `toml:"user_agent"`
	Profile        string   `toml:"profile"`
	NavTimeout     Duration `toml:"nav_timeout"`
	LaunchAttempts int      `toml:"launch_attempts"`
	ImageStrategy  string   `toml:"image_strategy"`
	BlockResources []string `toml:"block_resources"`
	CookiesFile    string   `toml:"cookies_file"`
}

type NotionConfig struct {
	APIKey         string   `toml:"api_key"`
	DatabaseID     string   `toml:"database_id"`
	MediaStrategy  string   `toml:"media_strategy"`
	LinkProperties string   `toml:"link_properties"`
	ContentLimit   int      `toml:"content_limit"`
	RequestTimeout Duration `toml:"request_timeout"`
	// MaxMediaBytes caps each downloaded image in uploadBinary mode
	MaxMediaBytes int64 `toml:"max_media_bytes"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// Duration is a time.Duration that reads "30s"-style strings from TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns a Config with sensible defaults
func Default() *Config {
	return &Config{
		Version: 1,
		Server: ServerConfig{
			ListenAddr:      ":8080",
			AllowedOrigins:  []string{"*"},
			RequestTimeout:  Duration{2 * time.Minute},
			ShutdownTimeout: Duration{15 * time.Second},
		},
		Browser: BrowserConfig{
			Headless:       true,
			Profile:        browser.ProfileDesktop,
			NavTimeout:     Duration{30 * time.Second},
			LaunchAttempts: 3,
			ImageStrategy:  string(scraper.StrategyCarousel),
			BlockResources: []string{"image", "stylesheet", "font", "media"},
		},
		Notion: NotionConfig{
			MediaStrategy:  string(publisher.LinkOnly),
			LinkProperties: notion.LinkAsURL,
			ContentLimit:   2000,
			RequestTimeout: Duration{30 * time.Second},
			MaxMediaBytes:  20 << 20,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// ConfigDir returns the platform-appropriate config directory
func ConfigDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName), nil
}

// ConfigPath returns the full path to the config file
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads config from the default path, layering a .env file and the
// environment on top. A missing config file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads config from path over the defaults, then applies
// environment overrides. path may be empty or missing.
func LoadFrom(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	// .env is optional; real environment variables win over it
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	cfg.applyEnv(os.Getenv)

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.Notion.APIKey, "NOTION_API_KEY")
	set(&c.Notion.DatabaseID, "NOTION_DATABASE_ID")
	set(&c.Server.ListenAddr, "UGC_LISTEN_ADDR")
	set(&c.Browser.ExecPath, "UGC_CHROME_PATH")
	set(&c.Browser.RemoteURL, "UGC_CHROME_REMOTE_URL")
	set(&c.Log.Level, "UGC_LOG_LEVEL")
}

// Validate reports every problem with the config at once. Notion
// credentials are only required when requireNotion is set.
func (c *Config) Validate(requireNotion bool) error {
	var problems []error

	if requireNotion {
		if c.Notion.APIKey == "" {
			problems = append(problems, errors.New("notion.api_key (NOTION_API_KEY) is required"))
		}
		if c.Notion.DatabaseID == "" {
			problems = append(problems, errors.New("notion.database_id (NOTION_DATABASE_ID) is required"))
		}
	}

	if _, err := publisher.ParseMediaStrategy(c.Notion.MediaStrategy); err != nil {
		problems = append(problems, fmt.Errorf("notion.media_strategy: %w", err))
	}
	if _, err := notion.ParseLinkProperties(c.Notion.LinkProperties); err != nil {
		problems = append(problems, fmt.Errorf("notion.link_properties: %w", err))
	}
	if _, err := scraper.ParseImageStrategy(c.Browser.ImageStrategy); err != nil {
		problems = append(problems, fmt.Errorf("browser.image_strategy: %w", err))
	}
	if _, err := browser.ParseProfile(c.Browser.Profile); err != nil {
		problems = append(problems, fmt.Errorf("browser.profile: %w", err))
	}

	if c.Browser.NavTimeout.Duration <= 0 {
		problems = append(problems, errors.New("browser.nav_timeout must be positive"))
	}
	if c.Notion.ContentLimit <= 0 {
		problems = append(problems, errors.New("notion.content_limit must be positive"))
	}

	return errors.Join(problems...)
}

// Save writes config to disk
func (c *Config) Save() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	path, err := ConfigPath()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes config to path
func (c *Config) SaveTo(path string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(c)
}
