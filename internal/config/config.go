package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the game service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string
	AllowAnyOrigin   bool

	SessionID     string
	StateFile     string
	DatabaseURL   string
	HistoryWindow int

	TurnTimeout          time.Duration
	TimeoutCheckInterval time.Duration

	AdminToken  string
	AdminActors []string

	NarratorMode           string
	NarratorAPIKey         string
	NarratorBaseURL        string
	NarratorModel          string
	NarratorMaxTokens      int
	NarratorTemperature    float64
	NarratorRequestTimeout time.Duration
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:               envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:       envOrDefault("APP_METRICS_NAMESPACE", "fable"),
		AllowAnyOrigin:         false,
		SessionID:              envOrDefault("GAME_SESSION_ID", "default"),
		StateFile:              envOrDefault("GAME_STATE_FILE", "game_state.json"),
		DatabaseURL:            stringsTrimSpace("DATABASE_URL"),
		HistoryWindow:          20,
		TurnTimeout:            24 * time.Hour,
		TimeoutCheckInterval:   5 * time.Minute,
		AdminToken:             stringsTrimSpace("GAME_ADMIN_TOKEN"),
		NarratorMode:           envOrDefault("NARRATOR_MODE", "auto"),
		NarratorAPIKey:         stringsTrimSpace("NARRATOR_API_KEY"),
		NarratorBaseURL:        envOrDefault("NARRATOR_BASE_URL", "https://api.openai.com/v1"),
		NarratorModel:          envOrDefault("NARRATOR_MODEL", "gpt-4o-mini"),
		NarratorMaxTokens:      600,
		NarratorTemperature:    0.6,
		NarratorRequestTimeout: 60 * time.Second,
		ShutdownTimeout:        15 * time.Second,
	}

	if actors := stringsTrimSpace("GAME_ADMIN_ACTORS"); actors != "" {
		for _, a := range strings.Split(actors, ",") {
			if a = strings.TrimSpace(a); a != "" {
				cfg.AdminActors = append(cfg.AdminActors, a)
			}
		}
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TurnTimeout, err = durationFromEnv("GAME_TURN_TIMEOUT", cfg.TurnTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.TimeoutCheckInterval, err = durationFromEnv("GAME_TIMEOUT_CHECK_INTERVAL", cfg.TimeoutCheckInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.NarratorRequestTimeout, err = durationFromEnv("NARRATOR_REQUEST_TIMEOUT", cfg.NarratorRequestTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryWindow, err = intFromEnv("GAME_HISTORY_WINDOW", cfg.HistoryWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.NarratorMaxTokens, err = intFromEnv("NARRATOR_MAX_TOKENS", cfg.NarratorMaxTokens)
	if err != nil {
		return Config{}, err
	}
	cfg.NarratorTemperature, err = floatFromEnv("NARRATOR_TEMPERATURE", cfg.NarratorTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.TurnTimeout < time.Minute {
		return Config{}, fmt.Errorf("GAME_TURN_TIMEOUT must be at least 1m")
	}
	if cfg.TimeoutCheckInterval < 10*time.Second {
		return Config{}, fmt.Errorf("GAME_TIMEOUT_CHECK_INTERVAL must be at least 10s")
	}
	if cfg.HistoryWindow <= 0 {
		return Config{}, fmt.Errorf("GAME_HISTORY_WINDOW must be positive")
	}
	if cfg.NarratorMaxTokens <= 0 {
		return Config{}, fmt.Errorf("NARRATOR_MAX_TOKENS must be positive")
	}
	if cfg.NarratorTemperature < 0 || cfg.NarratorTemperature > 2 {
		return Config{}, fmt.Errorf("NARRATOR_TEMPERATURE must be in [0, 2]")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float64) (float64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return f, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
