package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "filingocr"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "FILINGOCR"

	// DefaultEnvFile is loaded before the environment is read, when present.
	DefaultEnvFile = ".env"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v        *viper.Viper
	envFiles []string
}

// NewLoader creates a new configuration loader.
func NewLoader() *Loader {
	// Use the global viper instance to ensure flag bindings work
	return &Loader{v: viper.GetViper(), envFiles: []string{DefaultEnvFile}}
}

// NewLoaderWithViper creates a loader around an existing viper instance.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v, envFiles: []string{DefaultEnvFile}}
}

// WithEnvFiles replaces the dotenv files read before the environment.
func (l *Loader) WithEnvFiles(files ...string) *Loader {
	l.envFiles = files
	return l
}

// Load loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration and any error encountered.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.LoadWithoutValidation()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithoutValidation loads configuration from files, environment variables, and sets defaults.
// It returns the loaded configuration without validation.
func (l *Loader) LoadWithoutValidation() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()

	if err := l.prepare(); err != nil {
		return nil, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist, we'll use defaults and env vars
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshal()
}

// LoadWithFile loads configuration from a specific file path.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	cfg, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	if configFile == "" {
		return l.LoadWithoutValidation()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)

	if err := l.prepare(); err != nil {
		return nil, err
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshal()
}

func (l *Loader) prepare() error {
	if err := l.loadEnvFiles(); err != nil {
		return err
	}
	l.setupEnvironmentVariables()
	l.setDefaults()
	return nil
}

func (l *Loader) unmarshal() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// loadEnvFiles exports dotenv entries into the process environment. Missing
// files are skipped and variables already set win.
func (l *Loader) loadEnvFiles() error {
	for _, f := range l.envFiles {
		if f == "" {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("error loading env file %s: %w", f, err)
		}
	}
	return nil
}

// Get returns a value from the configuration.
func (l *Loader) Get(key string) interface{} {
	return l.v.Get(key)
}

// GetString returns a string value from the configuration.
func (l *Loader) GetString(key string) string {
	return l.v.GetString(key)
}

// Set sets a value in the configuration.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// FILINGOCR_PIPELINE_REMOTE_OCR_API_KEY -> pipeline.remote_ocr.api_key
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options. Every key
// needs a default so AutomaticEnv can see it during Unmarshal.
func (l *Loader) setDefaults() {
	d := DefaultConfig()

	// Global settings
	l.v.SetDefault("log_level", d.LogLevel)
	l.v.SetDefault("verbose", d.Verbose)

	// Orchestrator
	p := d.Pipeline
	l.v.SetDefault("pipeline.document_budget", p.DocumentBudget)
	l.v.SetDefault("pipeline.thresholds.accept", p.Thresholds.Accept)
	l.v.SetDefault("pipeline.thresholds.spot_check", p.Thresholds.SpotCheck)
	l.v.SetDefault("pipeline.thresholds.warn", p.Thresholds.Warn)
	l.v.SetDefault("pipeline.scorer.chars_per_page", p.Scorer.CharsPerPage)
	l.v.SetDefault("pipeline.scorer.min_page_chars", p.Scorer.MinPageChars)
	l.v.SetDefault("pipeline.scorer.density_floor", p.Scorer.DensityFloor)
	l.v.SetDefault("pipeline.scorer.pattern_saturation", p.Scorer.PatternSaturation)
	l.v.SetDefault("pipeline.expected_patterns", p.ExpectedPatterns)

	// Strategies
	l.v.SetDefault("pipeline.direct_text.enabled", p.DirectText.Enabled)
	l.v.SetDefault("pipeline.direct_text.min_confidence", p.DirectText.MinConfidence)
	l.v.SetDefault("pipeline.direct_text.budget", p.DirectText.Budget)
	l.v.SetDefault("pipeline.direct_text.user_password", p.DirectText.UserPassword)
	l.v.SetDefault("pipeline.direct_text.owner_password", p.DirectText.OwnerPassword)

	l.v.SetDefault("pipeline.local_ocr.enabled", p.LocalOCR.Enabled)
	l.v.SetDefault("pipeline.local_ocr.min_confidence", p.LocalOCR.MinConfidence)
	l.v.SetDefault("pipeline.local_ocr.budget", p.LocalOCR.Budget)
	l.v.SetDefault("pipeline.local_ocr.workers", p.LocalOCR.Workers)
	l.v.SetDefault("pipeline.local_ocr.dpi", p.LocalOCR.DPI)
	l.v.SetDefault("pipeline.local_ocr.languages", p.LocalOCR.Languages)
	l.v.SetDefault("pipeline.local_ocr.rasterizer", p.LocalOCR.Rasterizer)

	l.v.SetDefault("pipeline.remote_ocr.enabled", p.RemoteOCR.Enabled)
	l.v.SetDefault("pipeline.remote_ocr.min_confidence", p.RemoteOCR.MinConfidence)
	l.v.SetDefault("pipeline.remote_ocr.budget", p.RemoteOCR.Budget)
	l.v.SetDefault("pipeline.remote_ocr.endpoint", p.RemoteOCR.Endpoint)
	l.v.SetDefault("pipeline.remote_ocr.api_key", p.RemoteOCR.APIKey)
	l.v.SetDefault("pipeline.remote_ocr.cost_per_page_usd", p.RemoteOCR.CostPerPageUSD)
	l.v.SetDefault("pipeline.remote_ocr.batch_mode", p.RemoteOCR.BatchMode)
	l.v.SetDefault("pipeline.remote_ocr.max_retries", p.RemoteOCR.MaxRetries)
	l.v.SetDefault("pipeline.remote_ocr.initial_backoff", p.RemoteOCR.InitialBackoff)
	l.v.SetDefault("pipeline.remote_ocr.max_backoff", p.RemoteOCR.MaxBackoff)
	l.v.SetDefault("pipeline.remote_ocr.multiplier", p.RemoteOCR.Multiplier)
	l.v.SetDefault("pipeline.remote_ocr.request_timeout", p.RemoteOCR.RequestTimeout)
	l.v.SetDefault("pipeline.remote_ocr.features", p.RemoteOCR.Features)

	// Preprocessing
	l.v.SetDefault("pipeline.preprocess.grayscale", p.Preprocess.Grayscale)
	l.v.SetDefault("pipeline.preprocess.denoise", p.Preprocess.Denoise)
	l.v.SetDefault("pipeline.preprocess.binarize", p.Preprocess.Binarize)
	l.v.SetDefault("pipeline.preprocess.deskew", p.Preprocess.Deskew)
	l.v.SetDefault("pipeline.preprocess.border_removal", p.Preprocess.BorderRemoval)
	l.v.SetDefault("pipeline.preprocess.contrast", p.Preprocess.Contrast)
	l.v.SetDefault("pipeline.preprocess.denoise_radius", p.Preprocess.DenoiseRadius)
	l.v.SetDefault("pipeline.preprocess.binarize_window", p.Preprocess.BinarizeWindow)
	l.v.SetDefault("pipeline.preprocess.binarize_bias", p.Preprocess.BinarizeBias)
	l.v.SetDefault("pipeline.preprocess.max_skew_degrees", p.Preprocess.MaxSkewDegrees)
	l.v.SetDefault("pipeline.preprocess.skew_step_degrees", p.Preprocess.SkewStepDegrees)

	// Cache defaults
	l.v.SetDefault("cache.enabled", d.Cache.Enabled)
	l.v.SetDefault("cache.backend", d.Cache.Backend)
	l.v.SetDefault("cache.ttl", d.Cache.TTL)
	l.v.SetDefault("cache.max_entries", d.Cache.MaxEntries)
	l.v.SetDefault("cache.redis_addr", d.Cache.RedisAddr)
	l.v.SetDefault("cache.redis_password", d.Cache.RedisPassword)
	l.v.SetDefault("cache.redis_db", d.Cache.RedisDB)
	l.v.SetDefault("cache.prefix", d.Cache.Prefix)

	// Server defaults
	l.v.SetDefault("server.host", d.Server.Host)
	l.v.SetDefault("server.port", d.Server.Port)
	l.v.SetDefault("server.cors_origin", d.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", d.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", d.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", d.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", d.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", d.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.max_requests_per_day", d.Server.RateLimit.MaxRequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day", d.Server.RateLimit.MaxDataPerDay)

	// Batch defaults
	l.v.SetDefault("batch.workers", d.Batch.Workers)
	l.v.SetDefault("batch.output_dir", d.Batch.OutputDir)
	l.v.SetDefault("batch.continue_on_error", d.Batch.ContinueOnError)
	l.v.SetDefault("batch.recursive", d.Batch.Recursive)
	l.v.SetDefault("batch.include", d.Batch.Include)
	l.v.SetDefault("batch.exclude", d.Batch.Exclude)

	// Output defaults
	l.v.SetDefault("output.format", d.Output.Format)
}

// GetResolvedConfig returns the current resolved configuration for debugging.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// GenerateDefaultConfigFile writes the default configuration as YAML. It
// refuses to overwrite an existing file unless force is set.
func GenerateDefaultConfigFile(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("config file already exists: %s", filename)
		}
	}

	data, err := MarshalYAML(DefaultConfig())
	if err != nil {
		return err
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	home, homeErr := os.UserHomeDir()
	if homeErr == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, ConfigFileName))
	} else if homeErr == nil {
		paths = append(paths, filepath.Join(home, ".config", ConfigFileName))
	}

	paths = append(paths, "/etc/"+ConfigFileName)

	return paths
}

// WriteSources describes where configuration is read from.
func (l *Loader) WriteSources(w io.Writer) {
	used := l.GetConfigFileUsed()
	if used == "" {
		used = "(none)"
	}
	_, _ = fmt.Fprintf(w, "Configuration file used: %s\n", used)
	_, _ = fmt.Fprintf(w, "Configuration search paths: %v\n", GetConfigSearchPaths())
	_, _ = fmt.Fprintf(w, "Environment prefix: %s_\n", EnvPrefix)
	_, _ = fmt.Fprintf(w, "Env files: %v\n", l.envFiles)
}
