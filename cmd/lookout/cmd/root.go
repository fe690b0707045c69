package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lookout-vision/lookout/internal/config"
	"github.com/lookout-vision/lookout/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Global configuration loader.
	configLoader *config.Loader
	// Global configuration.
	globalConfig *config.Config
	// Configuration file path.
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "lookout",
	Short: "Object detection orchestration service",
	Long: `Lookout runs images through interchangeable detection backends and
normalizes their output into one result schema.

Backends:
- yolo: local single-shot multi-class detector (external process)
- haar: offline cascade face detector (external process)
- cloud-a / cloud-b: cloud vision providers (require API keys)

Results are cached by image content, so re-detecting identical bytes with
the same backend is free.

Examples:
  lookout detect photo.jpg
  lookout detect photo.jpg --backend haar
  lookout batch ./photos --annotated-dir ./out --stats
  lookout serve --port 8080`,
	Version: versionString(),
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

func versionString() string {
	v, commit, date := version.Info()
	return fmt.Sprintf("%s (commit: %s, built: %s)", v, commit, date)
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetRootCommand returns the root command for testing purposes.
func GetRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/lookout, /etc/lookout)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("backend", "", "detection backend (yolo, haar, cloud-a, cloud-b)")

	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if globalConfig == nil {
			initConfig()
		}

		var logLevel slog.Level
		if globalConfig.Verbose {
			logLevel = slog.LevelDebug
		} else {
			switch globalConfig.LogLevel {
			case "debug":
				logLevel = slog.LevelDebug
			case "warn":
				logLevel = slog.LevelWarn
			case "error":
				logLevel = slog.LevelError
			default:
				logLevel = slog.LevelInfo
			}
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: logLevel,
		}))
		slog.SetDefault(logger)
	}
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	configLoader = config.NewLoader()

	var err error
	if cfgFile != "" {
		globalConfig, err = configLoader.LoadWithFile(cfgFile)
	} else {
		globalConfig, err = configLoader.Load()
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}
}

// GetConfig returns the global configuration.
func GetConfig() *config.Config {
	if globalConfig == nil {
		initConfig()
	}
	return globalConfig
}

// resolveBackend picks the backend from the flag or the configured default.
func resolveBackend(cmd *cobra.Command) string {
	if backend, _ := cmd.Flags().GetString("backend"); backend != "" {
		return backend
	}
	if b := GetConfig().DefaultBackend; b != "" {
		return b
	}
	return "yolo"
}
