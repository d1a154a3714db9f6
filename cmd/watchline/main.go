package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"

	"github.com/justchokingaround/watchline/internal/config"
	"github.com/justchokingaround/watchline/internal/database"
	"github.com/justchokingaround/watchline/internal/prefs"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "none"
	date    = "unknown"

	// Global flags
	cfgFile   string
	logLevel  string
	noColor   bool
	debugMode bool

	// Global config, logger and storage
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
	store  *prefs.SQLStore
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "watchline",
	Short: "Resolve anime episodes to playable streams",
	Long: `watchline turns a title and an episode into a playable stream.

It loads the episode list, picks a streaming mirror using your last choice,
fetches the stream manifest and hands it to mpv or the clipboard.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// config init and version must work without a config or database
		if cmd.Name() == "version" || (cmd.Name() == "init" && cmd.Parent().Name() == "config") {
			return nil
		}

		if err := config.InitializeDirs(); err != nil {
			return fmt.Errorf("failed to initialize directories: %w", err)
		}

		var (
			err error
			v   *viper.Viper
		)
		cfg, v, err = config.Load(cfgFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if debugMode {
			cfg.Advanced.Debug = true
			if logLevel == "" {
				cfg.Logging.Level = "debug"
			}
		}
		if logLevel != "" {
			cfg.Logging.Level = logLevel
		}
		if noColor {
			cfg.Logging.Color = false
		}

		logger, err = config.InitLogger(&cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		slog.SetDefault(logger)

		db, err = database.Open(&cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		store = prefs.NewSQLStore(db)

		// Hot reload only touches the log level; other settings apply on next run
		if v.ConfigFileUsed() != "" {
			v.WatchConfig()
			v.OnConfigChange(func(e fsnotify.Event) {
				var next config.Config
				if err := v.Unmarshal(&next); err != nil {
					logger.Error("failed to reload config", "error", err)
					return
				}
				if logLevel == "" && !debugMode {
					config.SetLogLevel(next.Logging.Level)
				}
				logger.Info("config reloaded", "file", e.Name, "level", next.Logging.Level)
			})
		}

		logger.Debug("watchline starting", "version", version, "config", v.ConfigFileUsed(), "database", cfg.Database.Path)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if db == nil {
			return
		}
		if err := database.Close(db); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $XDG_CONFIG_HOME/watchline/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "enable debug mode (verbose HTTP logging)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(scheduleCmd)
	rootCmd.AddCommand(prefsCmd)
	rootCmd.AddCommand(popupCmd)
}

// versionCmd displays version information
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("watchline version %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
	},
}

// configCmd handles configuration operations
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate default configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := cfgFile
		if configPath == "" {
			configPath = filepath.Join(config.GetConfigDir(), "config.yaml")
		}

		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s", configPath)
		}

		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}

		if err := config.SaveDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to save default configuration: %w", err)
		}

		fmt.Printf("Default configuration generated successfully at: %s\n", configPath)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Display current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("API: %s (timeout %s, retries %d)\n", cfg.API.BaseURL, cfg.API.Timeout, cfg.API.MaxRetries)
		fmt.Printf("Log level: %s\n", cfg.Logging.Level)
		fmt.Printf("Log file: %s\n", cfg.Logging.File)
		fmt.Printf("Database: %s\n", cfg.Database.Path)
		fmt.Printf("Player: %s\n", cfg.Player.Executable)
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Display configuration file path",
	Run: func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			fmt.Println(cfgFile)
		} else {
			fmt.Println(filepath.Join(config.GetConfigDir(), "config.yaml"))
		}
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configPathCmd)
}
