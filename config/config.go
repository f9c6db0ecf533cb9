package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meysamhadeli/codewatch/code_analyzer"
	"github.com/meysamhadeli/codewatch/logging"
	"github.com/meysamhadeli/codewatch/utils"
)

// WatchConfig holds the settings of the watch command.
type WatchConfig struct {
	Debounce        time.Duration `mapstructure:"debounce"`
	PrimeBaselines  bool          `mapstructure:"prime_baselines"`
	RebuildOnCreate bool          `mapstructure:"rebuild_on_create"`
	MetricsAddr     string        `mapstructure:"metrics_addr"`
}

// Config represents the structure of the configuration file
type Config struct {
	Version              string      `mapstructure:"version"`
	Root                 string      `mapstructure:"root"`
	Theme                string      `mapstructure:"theme"`
	LogLevel             string      `mapstructure:"log_level"`
	LogFormat            string      `mapstructure:"log_format"`
	EnableCache          bool        `mapstructure:"enable_cache"`
	CacheDir             string      `mapstructure:"cache_dir"`
	IgnoreFile           string      `mapstructure:"ignore_file"`
	DefaultIgnoredDirs   []string    `mapstructure:"default_ignored_dirs"`
	DependencyExtensions []string    `mapstructure:"dependency_extensions"`
	ScriptExtensions     []string    `mapstructure:"script_extensions"`
	ContextLines         int         `mapstructure:"context_lines"`
	Watch                WatchConfig `mapstructure:"watch"`
}

// DefaultConfig values
var DefaultConfig = Config{
	Version:              "0.3.0",
	Root:                 ".",
	Theme:                "dracula",
	LogLevel:             "info",
	LogFormat:            "colorful",
	EnableCache:          true,
	CacheDir:             "",
	IgnoreFile:           utils.DefaultIgnoreFile,
	DefaultIgnoredDirs:   utils.DefaultIgnoredDirs,
	DependencyExtensions: code_analyzer.DefaultDependencyExtensions,
	ScriptExtensions:     code_analyzer.DefaultScriptExtensions,
	ContextLines:         3,
	Watch: WatchConfig{
		Debounce:        100 * time.Millisecond,
		PrimeBaselines:  true,
		RebuildOnCreate: false,
		MetricsAddr:     "",
	},
}

const (
	configName = "codewatch-config"
	envPrefix  = "CODEWATCH"
)

// cfgFile holds the path to the configuration file (set via CLI)
var cfgFile string

// LoadConfigs reads defaults, the configuration file, CODEWATCH_* environment
// variables and the flags of cmd, in increasing order of precedence. A
// missing default configuration file is not an error; a missing or invalid
// file given with --config is.
func LoadConfigs(cmd *cobra.Command, cwd string) (*Config, error) {
	v := viper.New()

	// Set default values using Viper
	setDefaults(v)

	// Explicitly bind environment variables to config keys
	bindEnv(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if GetConfigFileType(cfgFile) == "" {
			return nil, fmt.Errorf("unsupported config file type: %s", cfgFile)
		}
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		v.SetConfigName(configName)
		v.AddConfigPath(cwd)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	// Bind CLI flags to override config values
	if cmd != nil {
		bindFlags(v, cmd)
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	if c.Root == "" {
		return fmt.Errorf("root must not be empty")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "colorful", "json":
	default:
		return fmt.Errorf("unknown log format %q (want colorful or json)", c.LogFormat)
	}
	if c.ContextLines < 0 {
		return fmt.Errorf("context_lines must not be negative, got %d", c.ContextLines)
	}
	if c.Watch.Debounce <= 0 {
		return fmt.Errorf("watch.debounce must be positive, got %s", c.Watch.Debounce)
	}
	if len(c.DependencyExtensions) == 0 && len(c.ScriptExtensions) == 0 {
		return fmt.Errorf("at least one dependency or script extension is required")
	}
	return nil
}

// Languages builds the language table for the configured extensions.
func (c *Config) Languages() *code_analyzer.LanguageTable {
	return code_analyzer.NewLanguageTable(c.DependencyExtensions, c.ScriptExtensions)
}

// Logger builds the logger described by the configuration.
func (c *Config) Logger() *logging.Logger {
	return logging.New(logging.Config{Level: c.LogLevel, Format: c.LogFormat})
}

// IgnoredDirs returns the directory names every walk skips. An empty
// configured list skips nothing.
func (c *Config) IgnoredDirs() []string {
	return append([]string{}, c.DefaultIgnoredDirs...)
}

// RootPath resolves Root against cwd.
func (c *Config) RootPath(cwd string) string {
	if filepath.IsAbs(c.Root) {
		return c.Root
	}
	return filepath.Join(cwd, c.Root)
}

// setDefaults sets all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("version", DefaultConfig.Version)
	v.SetDefault("root", DefaultConfig.Root)
	v.SetDefault("theme", DefaultConfig.Theme)
	v.SetDefault("log_level", DefaultConfig.LogLevel)
	v.SetDefault("log_format", DefaultConfig.LogFormat)
	v.SetDefault("enable_cache", DefaultConfig.EnableCache)
	v.SetDefault("cache_dir", DefaultConfig.CacheDir)
	v.SetDefault("ignore_file", DefaultConfig.IgnoreFile)
	v.SetDefault("default_ignored_dirs", DefaultConfig.DefaultIgnoredDirs)
	v.SetDefault("dependency_extensions", DefaultConfig.DependencyExtensions)
	v.SetDefault("script_extensions", DefaultConfig.ScriptExtensions)
	v.SetDefault("context_lines", DefaultConfig.ContextLines)
	v.SetDefault("watch.debounce", DefaultConfig.Watch.Debounce)
	v.SetDefault("watch.prime_baselines", DefaultConfig.Watch.PrimeBaselines)
	v.SetDefault("watch.rebuild_on_create", DefaultConfig.Watch.RebuildOnCreate)
	v.SetDefault("watch.metrics_addr", DefaultConfig.Watch.MetricsAddr)
}

// bindEnv explicitly binds environment variables to configuration keys
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"root",
		"theme",
		"log_level",
		"log_format",
		"enable_cache",
		"cache_dir",
		"ignore_file",
		"default_ignored_dirs",
		"dependency_extensions",
		"script_extensions",
		"context_lines",
		"watch.debounce",
		"watch.prime_baselines",
		"watch.rebuild_on_create",
		"watch.metrics_addr",
	} {
		_ = v.BindEnv(key, envName(key))
	}
}

// envName maps "watch.debounce" to CODEWATCH_WATCH_DEBOUNCE.
func envName(key string) string {
	return envPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// bindFlags binds the CLI flags to configuration values. Flags a command
// does not define are skipped.
func bindFlags(v *viper.Viper, cmd *cobra.Command) {
	bindings := map[string]string{
		"root":                    "root",
		"theme":                   "theme",
		"log_level":               "log_level",
		"log_format":              "log_format",
		"enable_cache":            "enable_cache",
		"cache_dir":               "cache_dir",
		"ignore_file":             "ignore_file",
		"default_ignored_dirs":    "default_ignored_dirs",
		"dependency_extensions":   "dependency_extensions",
		"script_extensions":       "script_extensions",
		"context_lines":           "context_lines",
		"watch.debounce":          "debounce",
		"watch.prime_baselines":   "prime_baselines",
		"watch.rebuild_on_create": "rebuild_on_create",
		"watch.metrics_addr":      "metrics_addr",
	}
	for key, name := range bindings {
		if flag := lookupFlag(cmd, name); flag != nil {
			_ = v.BindPFlag(key, flag)
		}
	}
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag
	}
	if flag := cmd.InheritedFlags().Lookup(name); flag != nil {
		return flag
	}
	return cmd.PersistentFlags().Lookup(name)
}

// InitFlags initializes the flags for the root command.
func InitFlags(rootCmd *cobra.Command) {
	// Use PersistentFlags so that these flags are available in all subcommands
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "Specifies the path to a configuration file (JSON or YAML) that contains all the settings for the application.")

	rootCmd.PersistentFlags().String("root", DefaultConfig.Root, "Root directory of the source tree to analyze.")
	rootCmd.PersistentFlags().String("theme", DefaultConfig.Theme, "Set customize theme for highlighted diffs. (e.g., 'dracula', 'monokai', 'github')")
	rootCmd.PersistentFlags().String("log_level", DefaultConfig.LogLevel, "Log level: trace, debug, info, warn, error.")
	rootCmd.PersistentFlags().String("log_format", DefaultConfig.LogFormat, "Log format: 'colorful' or 'json'.")

	// Cache configuration
	rootCmd.PersistentFlags().Bool("enable_cache", DefaultConfig.EnableCache, "Enable or disable the dependency graph cache.")
	rootCmd.PersistentFlags().String("cache_dir", DefaultConfig.CacheDir, "Directory of the dependency graph cache (default .cache/codewatch in the working directory).")

	rootCmd.PersistentFlags().String("ignore_file", DefaultConfig.IgnoreFile, "Gitignore-style file, relative to the root, listing paths to skip.")
	rootCmd.PersistentFlags().StringSlice("default_ignored_dirs", DefaultConfig.DefaultIgnoredDirs, "Directory names skipped at any depth, in addition to the ignore file. Pass an empty value to walk everything.")
	rootCmd.PersistentFlags().StringSlice("dependency_extensions", DefaultConfig.DependencyExtensions, "Extensions of files analyzed for include/require statements.")
	rootCmd.PersistentFlags().StringSlice("script_extensions", DefaultConfig.ScriptExtensions, "Extensions of files watched and searched without include analysis.")
	rootCmd.PersistentFlags().Int("context_lines", DefaultConfig.ContextLines, "Unchanged lines shown around each change in printed diffs.")

	// Version flag
	rootCmd.Flags().BoolP("version", "v", false, "Specifies the version of the application.")
}

// InitWatchFlags initializes the flags only the watch command takes.
func InitWatchFlags(watchCmd *cobra.Command) {
	watchCmd.Flags().Duration("debounce", DefaultConfig.Watch.Debounce, "How long to wait for further writes before handling a change.")
	watchCmd.Flags().Bool("prime_baselines", DefaultConfig.Watch.PrimeBaselines, "Record a baseline for every file at startup so the first edit yields a diff.")
	watchCmd.Flags().Bool("rebuild_on_create", DefaultConfig.Watch.RebuildOnCreate, "Rebuild the dependency graph when a new dependency-capable file appears.")
	watchCmd.Flags().String("metrics_addr", DefaultConfig.Watch.MetricsAddr, "Address to serve prometheus metrics on (e.g. ':9090'); empty disables it.")
}

// GetConfigFileType returns the type of the configuration file based on its extension
func GetConfigFileType(filename string) string {
	if strings.HasSuffix(filename, ".json") {
		return "json"
	} else if strings.HasSuffix(filename, ".yaml") || strings.HasSuffix(filename, ".yml") {
		return "yaml"
	}
	return ""
}
