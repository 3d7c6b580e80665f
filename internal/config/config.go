package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/20after4/configdir"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Poll interval for the session connection (in seconds)
	PollInterval int

	// Refresh cadence of the playing position on the now-playing screen
	PositionIntervalMs int

	// Browse root handed to the first list screen
	RootMediaID string

	// SQLite browse catalog and bbolt session store
	LibraryDB string
	StateDB   string

	// Output format template for the now command
	// Default: "{{.Subtitle}} - {{.Title}}"
	OutputFormat string

	// Fixed output width for the now command (0 = disabled)
	OutputWidth int

	// Marquee scrolling for the now command when text exceeds OutputWidth
	MarqueeEnabled   bool
	MarqueeSpeed     int
	MarqueeSeparator string

	// Look up album art for tracks the backend reports without it
	ArtworkLookup bool

	// Number of entries the history command prints
	HistoryLimit int

	// Discord application id for Rich Presence; empty disables it
	DiscordAppID string
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return load(getConfigDir(), getDataDir())
}

func load(configDir, dataDir string) (*Config, error) {
	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// Config file locations (in order of precedence)
	v.AddConfigPath(configDir)
	v.AddConfigPath(".")

	setDefaults(v, dataDir)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	// Read from environment variables
	v.SetEnvPrefix("JIEMO")
	v.AutomaticEnv()

	// Map config to struct
	cfg := &Config{
		PollInterval:       v.GetInt("poll_interval"),
		PositionIntervalMs: v.GetInt("position_interval_ms"),
		RootMediaID:        v.GetString("root_media_id"),
		LibraryDB:          v.GetString("library_db"),
		StateDB:            v.GetString("state_db"),
		OutputFormat:       v.GetString("output_format"),
		OutputWidth:        v.GetInt("output_width"),
		MarqueeEnabled:     v.GetBool("marquee_enabled"),
		MarqueeSpeed:       v.GetInt("marquee_speed"),
		MarqueeSeparator:   v.GetString("marquee_separator"),
		ArtworkLookup:      v.GetBool("artwork_lookup"),
		HistoryLimit:       v.GetInt("history_limit"),
		DiscordAppID:       v.GetString("discord_app_id"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, dataDir string) {
	v.SetDefault("poll_interval", 2)
	v.SetDefault("position_interval_ms", 250)
	v.SetDefault("root_media_id", "__ROOT__")
	v.SetDefault("library_db", filepath.Join(dataDir, "library.db"))
	v.SetDefault("state_db", filepath.Join(dataDir, "state.db"))
	v.SetDefault("output_format", "{{.Subtitle}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("marquee_enabled", false)
	v.SetDefault("marquee_speed", 2)
	v.SetDefault("marquee_separator", " • ")
	v.SetDefault("artwork_lookup", true)
	v.SetDefault("history_limit", 20)
	v.SetDefault("discord_app_id", "")
}

// Poll returns PollInterval as a duration
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

// PositionInterval returns PositionIntervalMs as a duration
func (c *Config) PositionInterval() time.Duration {
	return time.Duration(c.PositionIntervalMs) * time.Millisecond
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "jiemo")

	// Create config directory if it doesn't exist
	_ = configdir.MakePath(configDir)

	return configDir
}

// getDataDir returns the directory holding the catalog and session store
func getDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	dataDir := filepath.Join(homeDir, ".local", "share", "jiemo")
	_ = configdir.MakePath(dataDir)

	return dataDir
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.saveTo(filepath.Join(getConfigDir(), "config.yaml"))
}

func (c *Config) saveTo(configFile string) error {
	v := viper.New()

	// Set values in viper
	v.Set("poll_interval", c.PollInterval)
	v.Set("position_interval_ms", c.PositionIntervalMs)
	v.Set("root_media_id", c.RootMediaID)
	v.Set("library_db", c.LibraryDB)
	v.Set("state_db", c.StateDB)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("marquee_enabled", c.MarqueeEnabled)
	v.Set("marquee_speed", c.MarqueeSpeed)
	v.Set("marquee_separator", c.MarqueeSeparator)
	v.Set("artwork_lookup", c.ArtworkLookup)
	v.Set("history_limit", c.HistoryLimit)
	v.Set("discord_app_id", c.DiscordAppID)

	// Write to file
	return v.WriteConfigAs(configFile)
}
