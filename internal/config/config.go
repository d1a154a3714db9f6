package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const appName = "watchline"

// Config is the root configuration for watchline
type Config struct {
	API      APIConfig      `mapstructure:"api" yaml:"api"`
	Logging  LoggingConfig  `mapstructure:"logging" yaml:"logging"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Player   PlayerConfig   `mapstructure:"player" yaml:"player"`
	Advanced AdvancedConfig `mapstructure:"advanced" yaml:"advanced"`
}

// APIConfig points at the upstream streaming API
type APIConfig struct {
	BaseURL    string        `mapstructure:"base_url" yaml:"base_url"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"` // transport-level only, 0 disables
}

// LoggingConfig controls the slog handler and log rotation
type LoggingConfig struct {
	Level      string `mapstructure:"level" yaml:"level"`
	Format     string `mapstructure:"format" yaml:"format"` // text or json
	File       string `mapstructure:"file" yaml:"file"`     // "stderr" logs to the console
	Color      bool   `mapstructure:"color" yaml:"color"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the sqlite settings for the preference store
type DatabaseConfig struct {
	Path           string `mapstructure:"path" yaml:"path"`
	MaxConnections int    `mapstructure:"max_connections" yaml:"max_connections"`
	WALMode        bool   `mapstructure:"wal_mode" yaml:"wal_mode"`
	AutoVacuum     bool   `mapstructure:"auto_vacuum" yaml:"auto_vacuum"`
}

// PlayerConfig describes how resolved streams are handed to mpv
type PlayerConfig struct {
	Executable   string   `mapstructure:"executable" yaml:"executable"`
	Args         []string `mapstructure:"args" yaml:"args"`
	SubtitleLang string   `mapstructure:"subtitle_lang" yaml:"subtitle_lang"`
}

// AdvancedConfig contains debugging switches
type AdvancedConfig struct {
	Debug     bool            `mapstructure:"debug" yaml:"debug"`
	Clipboard ClipboardConfig `mapstructure:"clipboard" yaml:"clipboard"`
}

// ClipboardConfig overrides the clipboard tool used for --copy
type ClipboardConfig struct {
	Command string `mapstructure:"command" yaml:"command"` // e.g. "wl-copy" or "clip.exe"
}

// DefaultConfig returns the configuration used when no file is present
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "http://localhost:4444",
			Timeout:    30 * time.Second,
			MaxRetries: 0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			File:       filepath.Join(getStateDir(), appName, appName+".log"),
			Color:      true,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   false,
		},
		Database: DatabaseConfig{
			Path:           filepath.Join(GetDataDir(), appName+".db"),
			MaxConnections: 4,
			WALMode:        true,
			AutoVacuum:     true,
		},
		Player: PlayerConfig{
			Executable:   "mpv",
			SubtitleLang: "English",
		},
	}
}

// Load reads configuration from path (or the default location) and the environment.
// The returned viper instance can be used for hot reload.
func Load(path string) (*Config, *viper.Viper, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetEnvPrefix(strings.ToUpper(appName))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(GetConfigDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return cfg, v, nil
}

func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("api.base_url", cfg.API.BaseURL)
	v.SetDefault("api.timeout", cfg.API.Timeout)
	v.SetDefault("api.max_retries", cfg.API.MaxRetries)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.file", cfg.Logging.File)
	v.SetDefault("logging.color", cfg.Logging.Color)
	v.SetDefault("logging.max_size", cfg.Logging.MaxSize)
	v.SetDefault("logging.max_backups", cfg.Logging.MaxBackups)
	v.SetDefault("logging.max_age", cfg.Logging.MaxAge)
	v.SetDefault("logging.compress", cfg.Logging.Compress)

	v.SetDefault("database.path", cfg.Database.Path)
	v.SetDefault("database.max_connections", cfg.Database.MaxConnections)
	v.SetDefault("database.wal_mode", cfg.Database.WALMode)
	v.SetDefault("database.auto_vacuum", cfg.Database.AutoVacuum)

	v.SetDefault("player.executable", cfg.Player.Executable)
	v.SetDefault("player.args", cfg.Player.Args)
	v.SetDefault("player.subtitle_lang", cfg.Player.SubtitleLang)

	v.SetDefault("advanced.debug", cfg.Advanced.Debug)
	v.SetDefault("advanced.clipboard.command", cfg.Advanced.Clipboard.Command)
}

// SaveDefaultConfig writes the default configuration as YAML
func SaveDefaultConfig(path string) error {
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// InitializeDirs creates the config, data and state directories
func InitializeDirs() error {
	for _, dir := range []string{GetConfigDir(), GetDataDir(), filepath.Join(getStateDir(), appName)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// GetConfigDir returns the watchline config directory
func GetConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".config", appName)
}

// GetDataDir returns the watchline data directory
func GetDataDir() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, appName)
	}
	return filepath.Join(homeDir(), ".local", "share", appName)
}

func getStateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return dir
	}
	return filepath.Join(homeDir(), ".local", "state")
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
