// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// process-wide configuration snapshot
var (
	currentConfig *Config
	configMutex   sync.RWMutex
)

// Config holds every runtime setting of the studio server
type Config struct {
	Port      string
	LogDir    string
	DebugMode bool

	// Step sequencer timing
	StepRunDelay time.Duration
	StepGapDelay time.Duration

	// Sessions idle for longer than this are evicted
	SessionTTL time.Duration

	// Optional TOML file replacing the embedded catalog
	CatalogPath string

	// Max run submissions per client IP per minute
	RunRateLimit int
}

// Load reads configuration from the environment, after an optional .env file
func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		LogDir:       getEnv("LOG_DIR", "logs"),
		DebugMode:    getEnvBool("DEBUG_MODE", true),
		StepRunDelay: getEnvMillis("STEP_RUN_DELAY_MS", 650*time.Millisecond),
		StepGapDelay: getEnvMillis("STEP_GAP_DELAY_MS", 250*time.Millisecond),
		SessionTTL:   time.Duration(getEnvInt("SESSION_TTL_MINUTES", 60)) * time.Minute,
		CatalogPath:  getEnv("CATALOG_PATH", ""),
		RunRateLimit: getEnvInt("RUN_RATE_LIMIT_PER_MINUTE", 30),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configMutex.Lock()
	currentConfig = cfg
	configMutex.Unlock()

	return cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port must not be empty")
	}
	if _, err := strconv.Atoi(c.Port); err != nil {
		return fmt.Errorf("invalid port %q: %w", c.Port, err)
	}
	if c.StepRunDelay < 0 || c.StepGapDelay < 0 {
		return fmt.Errorf("step delays must not be negative")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session ttl must be positive")
	}
	if c.RunRateLimit <= 0 {
		return fmt.Errorf("run rate limit must be positive")
	}
	return nil
}

// GetCurrentConfig returns a copy of the last loaded configuration
func GetCurrentConfig() *Config {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		return Default()
	}

	configCopy := *currentConfig
	return &configCopy
}

// SetCurrentConfig replaces the process-wide configuration, mostly for tests
func SetCurrentConfig(cfg *Config) {
	configMutex.Lock()
	defer configMutex.Unlock()
	currentConfig = cfg
}

// Default returns the built-in settings without looking at the environment
func Default() *Config {
	return &Config{
		Port:         "8080",
		LogDir:       "logs",
		DebugMode:    true,
		StepRunDelay: 650 * time.Millisecond,
		StepGapDelay: 250 * time.Millisecond,
		SessionTTL:   time.Hour,
		RunRateLimit: 30,
	}
}

// getEnv returns the variable or defaultValue when unset
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvBool accepts true/1/yes
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		fmt.Printf("warning: ignoring invalid %s=%q\n", key, value)
		return defaultValue
	}
	return n
}

func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	ms, err := strconv.Atoi(value)
	if err != nil || ms < 0 {
		fmt.Printf("warning: ignoring invalid %s=%q\n", key, value)
		return defaultValue
	}
	return time.Duration(ms) * time.Millisecond
}
