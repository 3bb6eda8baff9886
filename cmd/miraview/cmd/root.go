// Package cmd implements the CLI commands for miraview.
package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jmylchreest/miraview/internal/config"
	"github.com/jmylchreest/miraview/internal/observability"
	"github.com/jmylchreest/miraview/internal/version"
)

// cfgFile holds the config file path from CLI flag.
var cfgFile string

// logCloser closes the rotated log file, if any.
var logCloser io.Closer

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:     "miraview",
	Short:   "Broadcast-day program guide for mirakc",
	Version: version.Short(),
	Long: `miraview fetches programs and services from a mirakc tuner server and
arranges them into a program guide grid.

Listings are grouped into broadcast days running from 05:00 to 05:00 the
next morning, so late-night programs stay with the evening they follow.
Each channel's day is a contiguous run of slots with fillers where nothing
is listed.`,
	SilenceUsage: true,
	// PersistentPreRunE is set in init() to avoid initialization cycle
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	defer func() {
		if logCloser != nil {
			_ = logCloser.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		return fmt.Errorf("executing root command: %w", err)
	}
	return nil
}

func init() {
	cobra.OnInitialize(initConfig)

	// initLogging references rootCmd.PersistentFlags
	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		return initLogging()
	}

	// Flags are not bound to viper; they override config/env only when set.
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml, /etc/miraview/config.yaml or $HOME/.miraview/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (text, json)")
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	config.SetDefaults(viper.GetViper())

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/miraview")
		viper.AddConfigPath(home + "/.miraview")
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	viper.SetEnvPrefix(config.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		cobra.CheckErr(fmt.Errorf("reading config file: %w", err))
	}
}

// initLogging configures the default slog logger.
//
// Priority order (highest to lowest):
//  1. CLI flags (--log-level, --log-format) - only if explicitly provided
//  2. Environment variables (MIRAVIEW_LOGGING_LEVEL, MIRAVIEW_LOGGING_FORMAT)
//  3. Config file values
//  4. Built-in defaults (info, json)
func initLogging() error {
	logCfg := config.LoggingConfig{
		Level:      viper.GetString("logging.level"),
		Format:     viper.GetString("logging.format"),
		AddSource:  viper.GetBool("logging.add_source"),
		TimeFormat: viper.GetString("logging.time_format"),
		File:       viper.GetString("logging.file"),
		MaxSizeMB:  viper.GetInt("logging.max_size_mb"),
		MaxBackups: viper.GetInt("logging.max_backups"),
		MaxAgeDays: viper.GetInt("logging.max_age_days"),
		Compress:   viper.GetBool("logging.compress"),
	}

	if rootCmd.PersistentFlags().Changed("log-level") {
		logCfg.Level, _ = rootCmd.PersistentFlags().GetString("log-level")
	}
	if rootCmd.PersistentFlags().Changed("log-format") {
		logCfg.Format, _ = rootCmd.PersistentFlags().GetString("log-format")
	}

	logCfg.Level = strings.ToLower(logCfg.Level)
	logCfg.Format = strings.ToLower(logCfg.Format)
	if logCfg.Level == "warning" {
		logCfg.Level = "warn"
	}

	logger, closer, err := observability.NewLogger(logCfg)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	logCloser = closer
	slog.SetDefault(logger.With(slog.String("app", version.ApplicationName)))

	return nil
}

// loadConfig returns the validated configuration held by the global viper.
func loadConfig() (*config.Config, error) {
	cfg, err := config.FromViper(viper.GetViper())
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// mustBindPFlag binds a viper key to a cobra flag and panics if binding fails.
func mustBindPFlag(key string, flag *pflag.Flag) {
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("failed to bind flag %q to key %q: %v", flag.Name, key, err))
	}
}
