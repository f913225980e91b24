package model

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig holds the location of the SQLite database.
type DatabaseConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	// Sort is the default task ordering: "due_to", "status" or "created_at".
	Sort string `mapstructure:"sort" yaml:"sort"`
}

// LogConfig controls where component logs go. An empty File means stderr.
type LogConfig struct {
	File       string `mapstructure:"file" yaml:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
}

// BackupConfig controls scheduled JSON exports.
type BackupConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`

	// Schedule is a cron expression (seconds field optional) or a
	// descriptor such as "@daily". Empty disables scheduled backups.
	Schedule string `mapstructure:"schedule" yaml:"schedule"`

	// Keep is the number of newest backup files retained. Zero keeps all.
	Keep int `mapstructure:"keep" yaml:"keep"`
}

// InboxConfig holds the drop directory watched for import files.
type InboxConfig struct {
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// FeedConfig holds the live websocket feed settings.
type FeedConfig struct {
	Port int `mapstructure:"port" yaml:"port"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Display  DisplayConfig  `mapstructure:"display" yaml:"display"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Backup   BackupConfig   `mapstructure:"backup" yaml:"backup"`
	Inbox    InboxConfig    `mapstructure:"inbox" yaml:"inbox"`
	Feed     FeedConfig     `mapstructure:"feed" yaml:"feed"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/taskcheck/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "taskcheck", "config.yaml")
}

// dataDir returns ~/.local/share/taskcheck, falling back to the working
// directory when no home directory is available.
func dataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "taskcheck")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	dir := dataDir()
	return &AppConfig{
		Database: DatabaseConfig{Path: filepath.Join(dir, "taskcheck.db")},
		Display:  DisplayConfig{Sort: "due_to"},
		Log: LogConfig{
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Backup: BackupConfig{
			Dir:  filepath.Join(dir, "backups"),
			Keep: 14,
		},
		Inbox: InboxConfig{Dir: filepath.Join(dir, "inbox")},
		Feed:  FeedConfig{Port: 8787},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
// TASKCHECK_* environment variables override file values
// (e.g. TASKCHECK_DATABASE_PATH).
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("taskcheck")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("database.path", def.Database.Path)
	v.SetDefault("display.sort", def.Display.Sort)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("log.max_size_mb", def.Log.MaxSizeMB)
	v.SetDefault("log.max_backups", def.Log.MaxBackups)
	v.SetDefault("log.max_age_days", def.Log.MaxAgeDays)
	v.SetDefault("backup.dir", def.Backup.Dir)
	v.SetDefault("backup.schedule", def.Backup.Schedule)
	v.SetDefault("backup.keep", def.Backup.Keep)
	v.SetDefault("inbox.dir", def.Inbox.Dir)
	v.SetDefault("feed.port", def.Feed.Port)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, os.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	switch cfg.Display.Sort {
	case "due_to", "status", "created_at":
	default:
		return nil, fmt.Errorf("parsing config %s: unknown display.sort %q", path, cfg.Display.Sort)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("database", cfg.Database)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)
	v.Set("backup", cfg.Backup)
	v.Set("inbox", cfg.Inbox)
	v.Set("feed", cfg.Feed)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
