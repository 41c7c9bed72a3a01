// ABOUTME: Centralized process configuration for the agent
// ABOUTME: Loads from environment variables (optionally seeded from .env) with validation and defaults
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Memory backends
const (
	MemoryNone       = "none"
	MemoryOpenMemory = "openmemory"
	MemorySQLite     = "sqlite"
)

// Config holds all configuration for the agent process
type Config struct {
	// Routing
	RouterPath   string
	DefaultRoute string
	UserID       string

	// Backend settings
	MaxTokens      int
	Temperature    float64
	BackendTimeout time.Duration
	MaxRetries     int
	RetryDelay     time.Duration
	OpenAIKey      string

	// Serialization gate
	GateMode         string
	GatePollInterval time.Duration

	// Continuity
	HistoryWindow int

	// Long-term memory
	MemoryBackend    string
	OpenMemoryURL    string
	OpenMemoryAPIKey string
	MemoryTimeout    time.Duration
	MemoryDomain     string
	DataDir          string

	// Actions
	NotesVaultPath string
	NotesSubdir    string

	// Web surface
	WebHost string
	WebPort int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		RouterPath:       os.Getenv("AGENT_ROUTER_PATH"),
		DefaultRoute:     getEnv("AGENT_DEFAULT_ROUTE", "general"),
		UserID:           os.Getenv("AGENT_USER_ID"),
		MaxTokens:        getEnvInt("AGENT_MAX_TOKENS", 2048),
		Temperature:      getEnvFloat("AGENT_TEMPERATURE", 0.8),
		BackendTimeout:   getEnvDuration("AGENT_BACKEND_TIMEOUT", 60*time.Second),
		MaxRetries:       getEnvInt("AGENT_MAX_RETRIES", 2),
		RetryDelay:       getEnvDuration("AGENT_RETRY_DELAY", 500*time.Millisecond),
		OpenAIKey:        os.Getenv("OPENAI_API_KEY"),
		GateMode:         getEnv("AGENT_GATE_MODE", "blocking"),
		GatePollInterval: getEnvDuration("AGENT_GATE_POLL_INTERVAL", 10*time.Millisecond),
		HistoryWindow:    getEnvInt("AGENT_HISTORY_WINDOW", 5),
		MemoryBackend:    getEnv("AGENT_MEMORY_BACKEND", MemoryNone),
		OpenMemoryURL:    firstEnv("http://localhost:8080", "OPENMEMORY_URL", "OM_BASE_URL"),
		OpenMemoryAPIKey: firstEnv("", "OPENMEMORY_API_KEY", "OM_API_KEY"),
		MemoryTimeout:    getEnvDuration("AGENT_MEMORY_TIMEOUT", 10*time.Second),
		MemoryDomain:     getEnv("AGENT_MEMORY_DOMAIN", "professional"),
		DataDir:          getEnv("AGENT_DATA_DIR", DefaultDataDir()),
		NotesVaultPath:   os.Getenv("OBSIDIAN_VAULT_PATH"),
		NotesSubdir:      getEnv("AGENT_NOTES_SUBDIR", "local-agent-core"),
		WebHost:          getEnv("LAC_WEB_HOST", "127.0.0.1"),
		WebPort:          getEnvInt("LAC_WEB_PORT", 5001),
	}

	return cfg, cfg.Validate()
}

// Validate checks ranges and enumerations
func (c *Config) Validate() error {
	if c.HistoryWindow < 1 {
		return fmt.Errorf("AGENT_HISTORY_WINDOW must be >= 1, got %d", c.HistoryWindow)
	}
	if c.MaxRetries < 0 || c.MaxRetries > 10 {
		return fmt.Errorf("AGENT_MAX_RETRIES must be 0-10, got %d", c.MaxRetries)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("AGENT_MAX_TOKENS must be positive, got %d", c.MaxTokens)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("AGENT_TEMPERATURE must be 0-2, got %f", c.Temperature)
	}
	if c.GateMode != "blocking" && c.GateMode != "polling" {
		return fmt.Errorf("AGENT_GATE_MODE must be blocking or polling, got %q", c.GateMode)
	}
	if c.GatePollInterval <= 0 {
		return fmt.Errorf("AGENT_GATE_POLL_INTERVAL must be positive, got %v", c.GatePollInterval)
	}
	switch c.MemoryBackend {
	case MemoryNone, MemoryOpenMemory, MemorySQLite:
	default:
		return fmt.Errorf("AGENT_MEMORY_BACKEND must be none, openmemory or sqlite, got %q", c.MemoryBackend)
	}
	if c.WebPort <= 0 || c.WebPort > 65535 {
		return fmt.Errorf("LAC_WEB_PORT must be 1-65535, got %d", c.WebPort)
	}
	return nil
}

// DefaultDataDir returns the XDG data directory for the agent.
// Respects XDG_DATA_HOME so tests can redirect it.
func DefaultDataDir() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		dataHome = xdg.DataHome
	}
	return filepath.Join(dataHome, "local-agent-core")
}

// Helper functions
func getEnv(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func firstEnv(defaultVal string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
