package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the service reads from its environment.
type Config struct {
	Server ServerConfig
	AI     AIConfig
	Memory MemoryConfig
	Log    LogConfig
}

// Load reads configuration from environment variables. It only fails on
// malformed values; missing AI credentials are reported by AIConfig.Validate
// so the gateway can still start and answer health checks.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	memory, err := loadMemoryConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, AI: ai, Memory: memory, Log: logCfg}, nil
}

// ServerConfig describes the HTTP gateway.
type ServerConfig struct {
	Addr          string
	CookieName    string
	// AllowedOrigin is a comma separated origin list; "*" allows any origin
	// without credentials.
	AllowedOrigin string
	SessionTTL    time.Duration
	SweepSchedule string
}

func loadServerConfig() (ServerConfig, error) {
	addr, err := parseAddr(os.Getenv("PORT"))
	if err != nil {
		return ServerConfig{}, err
	}

	ttlMinutes, err := parseOptionalIntEnv("SESSION_TTL")
	if err != nil {
		return ServerConfig{}, err
	}
	ttl := 120 * time.Minute
	if ttlMinutes != nil {
		if *ttlMinutes < 1 {
			return ServerConfig{}, fmt.Errorf("invalid SESSION_TTL value %d: must be at least 1 minute", *ttlMinutes)
		}
		ttl = time.Duration(*ttlMinutes) * time.Minute
	}

	return ServerConfig{
		Addr:          addr,
		CookieName:    getEnvOrDefault("SESSION_COOKIE", "deep_shiva_session"),
		AllowedOrigin: getEnvOrDefault("CORS_ALLOWED_ORIGIN", "*"),
		SessionTTL:    ttl,
		SweepSchedule: getEnvOrDefault("SESSION_SWEEP_SCHEDULE", "*/5 * * * *"),
	}, nil
}

func parseAddr(raw string) (string, error) {
	port := strings.TrimSpace(raw)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are accepted as-is.
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// MemoryConfig bounds per-session conversation history.
type MemoryConfig struct {
	// MaxTurns caps retained turns per session. Zero disables the cap; odd
	// values are rounded up to keep whole exchanges.
	MaxTurns int
}

func loadMemoryConfig() (MemoryConfig, error) {
	maxTurns := 40
	override, err := parseOptionalIntEnv("MEMORY_MAX_TURNS")
	if err != nil {
		return MemoryConfig{}, err
	}
	if override != nil {
		if *override < 0 {
			return MemoryConfig{}, fmt.Errorf("invalid MEMORY_MAX_TURNS value %d: must not be negative", *override)
		}
		maxTurns = *override
	}
	return MemoryConfig{MaxTurns: maxTurns}, nil
}

// LogConfig controls the root logger.
type LogConfig struct {
	Level  string
	Pretty bool
}

func loadLogConfig() (LogConfig, error) {
	pretty, err := parseBoolEnv("LOG_PRETTY", false)
	if err != nil {
		return LogConfig{}, err
	}
	return LogConfig{
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
		Pretty: pretty,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
