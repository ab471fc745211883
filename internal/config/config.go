package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"selectcms/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Analysis AnalysisConfig
	Runner   RunnerConfig
	Store    StoreConfig
	Server   ServerConfig
	LogLevel string
}

// AnalysisConfig holds the composite scoring and significance settings
type AnalysisConfig struct {
	PValue        float64
	DAFCutoff     float64
	GateMeanOnDAF bool
	PriorOverride float64 // 0 means 1/N SNPs in the window
	IgnoreMoP     bool
	IgnorePoP     bool
	PooledNorm    bool
}

// RunnerConfig holds scheduling settings for the per-window test fan-out
type RunnerConfig struct {
	WindowTimeout   time.Duration
	Stagger         time.Duration
	ParallelWindows int
	MemoryLimitMB   int
}

// StoreConfig holds the optional results database
type StoreConfig struct {
	DatabaseURL string
}

// ServerConfig holds the read-only API settings
type ServerConfig struct {
	Port string
}

// Defaults
const (
	DefaultPValue        = 0.01
	DefaultDAFCutoff     = 0.2
	DefaultWindowTimeout = 30 * time.Minute
	DefaultStagger       = 50 * time.Millisecond
)

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Analysis: AnalysisConfig{
			PValue:        DefaultPValue,
			DAFCutoff:     DefaultDAFCutoff,
			GateMeanOnDAF: true,
		},
		Runner: RunnerConfig{
			WindowTimeout:   DefaultWindowTimeout,
			Stagger:         DefaultStagger,
			ParallelWindows: 1,
		},
		Server:   ServerConfig{Port: "8080"},
		LogLevel: "INFO",
	}
}

// Load reads configuration from a .env file (if present) and environment
// variables. A variable that does not parse is a CONFIG_INVALID error naming
// it. Ranges are checked later by Validate, once flag overrides are applied.
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	env := &envReader{}
	config := Default()
	config.Analysis = env.loadAnalysisConfig(config.Analysis)
	config.Runner = env.loadRunnerConfig(config.Runner)
	config.Store = StoreConfig{DatabaseURL: getEnvOrDefault("DATABASE_URL", "")}
	config.Server = ServerConfig{Port: getEnvOrDefault("PORT", config.Server.Port)}
	config.LogLevel = getEnvOrDefault("LOG_LEVEL", config.LogLevel)

	if len(env.problems) > 0 {
		return nil, errors.ConfigInvalid("invalid environment: " + strings.Join(env.problems, "; "))
	}
	return config, nil
}

func (e *envReader) loadAnalysisConfig(def AnalysisConfig) AnalysisConfig {
	return AnalysisConfig{
		PValue:        e.getEnvFloatOrDefault("CMS_P_VALUE", def.PValue),
		DAFCutoff:     e.getEnvFloatOrDefault("CMS_DAF_CUTOFF", def.DAFCutoff),
		GateMeanOnDAF: e.getEnvBoolOrDefault("CMS_GATE_MOP_DAF", def.GateMeanOnDAF),
		PriorOverride: e.getEnvFloatOrDefault("CMS_PRIOR", def.PriorOverride),
		IgnoreMoP:     e.getEnvBoolOrDefault("CMS_IGNORE_MOP", def.IgnoreMoP),
		IgnorePoP:     e.getEnvBoolOrDefault("CMS_IGNORE_POP", def.IgnorePoP),
		PooledNorm:    e.getEnvBoolOrDefault("CMS_RUN_NORM", def.PooledNorm),
	}
}

func (e *envReader) loadRunnerConfig(def RunnerConfig) RunnerConfig {
	return RunnerConfig{
		WindowTimeout:   e.getEnvDurationOrDefault("CMS_WINDOW_TIMEOUT", def.WindowTimeout),
		Stagger:         e.getEnvDurationOrDefault("CMS_STAGGER", def.Stagger),
		ParallelWindows: e.getEnvIntOrDefault("CMS_PARALLEL_WINDOWS", def.ParallelWindows),
		MemoryLimitMB:   e.getEnvIntOrDefault("CMS_MEMORY_LIMIT_MB", def.MemoryLimitMB),
	}
}

// Validate checks the analysis and runner settings before any computation
// starts.
func (c *Config) Validate() error {
	a := c.Analysis
	if !(a.PValue > 0 && a.PValue < 1) {
		return errors.ConfigInvalid(fmt.Sprintf("p-value must lie strictly between 0 and 1, got %g", a.PValue))
	}
	if a.DAFCutoff < 0 || a.DAFCutoff > 1 {
		return errors.ConfigInvalid(fmt.Sprintf("DAF cutoff must lie in [0,1], got %g", a.DAFCutoff))
	}
	if a.PriorOverride != 0 && !(a.PriorOverride > 0 && a.PriorOverride < 1) {
		return errors.ConfigInvalid(fmt.Sprintf("prior override must lie strictly between 0 and 1, got %g", a.PriorOverride))
	}

	r := c.Runner
	if r.WindowTimeout <= 0 {
		return errors.ConfigInvalid("window timeout must be positive")
	}
	if r.Stagger < 0 {
		return errors.ConfigInvalid("stagger delay cannot be negative")
	}
	if r.ParallelWindows < 1 {
		return errors.ConfigInvalid("parallel windows must be at least 1")
	}
	if r.MemoryLimitMB < 0 {
		return errors.ConfigInvalid("memory limit cannot be negative")
	}
	return nil
}

// ValidateServer checks the settings the HTTP API needs
func (c *Config) ValidateServer() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return errors.ConfigInvalid(fmt.Sprintf("port must be a number in [1,65535], got %q", c.Server.Port))
	}
	return nil
}

// envReader parses typed environment variables and remembers every one
// that failed
type envReader struct {
	problems []string
}

func (e *envReader) invalid(key, value, want string) {
	e.problems = append(e.problems, fmt.Sprintf("%s=%q is not %s", key, value, want))
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func (e *envReader) getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		e.invalid(key, value, "an integer")
		return defaultValue
	}
	return intValue
}

func (e *envReader) getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err != nil {
		e.invalid(key, value, "a number")
		return defaultValue
	}
	return floatValue
}

func (e *envReader) getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		e.invalid(key, value, "a boolean")
		return defaultValue
	}
	return boolValue
}

func (e *envReader) getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		e.invalid(key, value, "a duration")
		return defaultValue
	}
	return duration
}
