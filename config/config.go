package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Known launcher names. Custom slots allow scanning arbitrary user roots.
var KnownLaunchers = []string{
	"Steam",
	"EA",
	"Epic",
	"GOG",
	"Ubisoft",
	"Battle.net",
	"Xbox",
	"Custom 1",
	"Custom 2",
	"Custom 3",
	"Custom 4",
}

// Technology groups that can be toggled per user preference.
var TechnologyGroups = []string{"DLSS", "XeSS", "FSR", "Streamline", "DirectStorage"}

// Config holds all configuration for the application.
// Values are loaded by Viper from a config file and/or environment variables.
type Config struct {
	DataDir             string              `mapstructure:"data_dir"`
	BackupDir           string              `mapstructure:"backup_dir"`
	CacheDir            string              `mapstructure:"cache_dir"`
	DatabasePath        string              `mapstructure:"-"` // Not from config, derived
	BackupOnUpdate      bool                `mapstructure:"backup_on_update"`
	Launchers           map[string][]string `mapstructure:"launchers"`
	MaxRootsPerLauncher int                 `mapstructure:"max_roots_per_launcher"`
	UpdatePreferences   map[string]bool     `mapstructure:"update_preferences"`
	ExcludedGames       []string            `mapstructure:"excluded_games"`
	IncludedGames       []string            `mapstructure:"included_games"`
	ScanMaxDepth        int                 `mapstructure:"scan_max_depth"`
	ScanMaxAscend       int                 `mapstructure:"scan_max_ascend"`
	ScanWorkers         int                 `mapstructure:"scan_workers"`
	ManifestURL         string              `mapstructure:"manifest_url"`
	UserAgent           string              `mapstructure:"useragent"`
}

// LoadConfig reads configuration from file and environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("dlss-updater")
	v.SetConfigType("yaml")

	v.SetDefault("data_dir", ".")
	v.SetDefault("backup_on_update", true)
	v.SetDefault("max_roots_per_launcher", 4)
	v.SetDefault("scan_max_depth", 12)
	v.SetDefault("scan_max_ascend", 6)
	v.SetDefault("scan_workers", 4)
	v.SetDefault("useragent", "dlss-updater/dev")

	readErr := v.ReadInConfig()
	if _, ok := readErr.(viper.ConfigFileNotFoundError); ok {
		slog.Info("Config file (dlss-updater.yaml) not found, relying on defaults and environment variables.")
	} else if readErr != nil {
		return Config{}, fmt.Errorf("fatal error config file: %w", readErr)
	}

	v.SetEnvPrefix("DLSS_UPDATER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct, %w", err)
	}

	// --- Post-unmarshal processing and defaults ---

	if config.MaxRootsPerLauncher < 1 {
		return Config{}, fmt.Errorf("max_roots_per_launcher must be at least 1, got %d", config.MaxRootsPerLauncher)
	}
	if config.ScanMaxDepth < 1 || config.ScanMaxAscend < 1 {
		return Config{}, fmt.Errorf("scan_max_depth and scan_max_ascend must be at least 1")
	}
	if config.ScanWorkers < 1 {
		config.ScanWorkers = 1
	}

	for name := range config.Launchers {
		if !isKnownLauncher(name) {
			return Config{}, fmt.Errorf("unknown launcher %q in launchers section", name)
		}
		if len(config.Launchers[name]) > config.MaxRootsPerLauncher {
			return Config{}, fmt.Errorf("launcher %q has %d roots, maximum is %d",
				name, len(config.Launchers[name]), config.MaxRootsPerLauncher)
		}
	}
	for group := range config.UpdatePreferences {
		if !isTechnologyGroup(group) {
			return Config{}, fmt.Errorf("unknown technology group %q in update_preferences", group)
		}
	}

	if err := os.MkdirAll(config.DataDir, 0755); err != nil {
		return Config{}, fmt.Errorf("failed to create data directory %q: %w", config.DataDir, err)
	}
	if config.BackupDir == "" {
		config.BackupDir = filepath.Join(config.DataDir, "backups")
	}
	if err := os.MkdirAll(config.BackupDir, 0755); err != nil {
		return Config{}, fmt.Errorf("failed to create backup directory %q: %w", config.BackupDir, err)
	}
	if config.CacheDir == "" {
		config.CacheDir = filepath.Join(config.DataDir, "latest_dlls")
	}
	if err := os.MkdirAll(config.CacheDir, 0755); err != nil {
		return Config{}, fmt.Errorf("failed to create cache directory %q: %w", config.CacheDir, err)
	}

	// Place the database next to the backups for portability.
	config.DatabasePath = filepath.Join(config.DataDir, "dlss-updater.db")

	return config, nil
}

// TechnologyEnabled reports whether updates for a technology group are
// enabled. Groups absent from update_preferences default to enabled.
func (c *Config) TechnologyEnabled(group string) bool {
	enabled, ok := c.UpdatePreferences[group]
	if !ok {
		return true
	}
	return enabled
}

// GameExcluded reports whether a game is on the user exclusion list.
// included_games entries override the exclusion per game.
func (c *Config) GameExcluded(name, path string) bool {
	for _, inc := range c.IncludedGames {
		if matchesGame(inc, name, path) {
			return false
		}
	}
	for _, exc := range c.ExcludedGames {
		if matchesGame(exc, name, path) {
			return true
		}
	}
	return false
}

// matchesGame matches an exclusion entry against a game name or any
// component of its install path, case-insensitively.
func matchesGame(entry, name, path string) bool {
	if strings.EqualFold(entry, name) {
		return true
	}
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if strings.EqualFold(entry, part) {
			return true
		}
	}
	return false
}

func isKnownLauncher(name string) bool {
	for _, l := range KnownLaunchers {
		if l == name {
			return true
		}
	}
	return false
}

func isTechnologyGroup(name string) bool {
	for _, g := range TechnologyGroups {
		if g == name {
			return true
		}
	}
	return false
}
