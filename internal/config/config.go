package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every process setting.
type Config struct {
	Backend  BackendConfig
	Speech   SpeechConfig
	Calendar CalendarConfig
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	speech, err := loadSpeechConfig()
	if err != nil {
		return nil, err
	}

	calendar, err := loadCalendarConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Backend: backend, Speech: speech, Calendar: calendar}, nil
}

// BackendConfig describes the remote assistant backend.
type BackendConfig struct {
	BaseURL   string
	Timeout   time.Duration
	TokenPath string
}

func loadBackendConfig() (BackendConfig, error) {
	timeout, err := parseDurationEnv("BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return BackendConfig{}, err
	}

	return BackendConfig{
		BaseURL:   getEnvOrDefault("BACKEND_BASE_URL", "http://localhost:8000"),
		Timeout:   timeout,
		TokenPath: getEnvOrDefault("BACKEND_TOKEN_PATH", ""),
	}, nil
}

// SpeechConfig describes recognition and synthesis behavior.
type SpeechConfig struct {
	Language        string
	Rate            float64
	Voice           string
	Format          string
	RecognizerWSURL string
	Debounce        time.Duration
	RestartDelay    time.Duration
}

func loadSpeechConfig() (SpeechConfig, error) {
	rate, err := parseFloatEnv("SPEECH_RATE", 0.9)
	if err != nil {
		return SpeechConfig{}, err
	}

	debounceMillis, err := parseIntEnv("SPEECH_DEBOUNCE_MS", 1500)
	if err != nil {
		return SpeechConfig{}, err
	}

	restartMillis, err := parseIntEnv("SPEECH_RESTART_DELAY_MS", 100)
	if err != nil {
		return SpeechConfig{}, err
	}

	return SpeechConfig{
		Language:        getEnvOrDefault("SPEECH_LANGUAGE", "en-IN"),
		Rate:            rate,
		Voice:           getEnvOrDefault("SPEECH_VOICE", ""),
		Format:          getEnvOrDefault("SPEECH_FORMAT", "wav"),
		RecognizerWSURL: getEnvOrDefault("SPEECH_RECOGNIZER_WS_URL", ""),
		Debounce:        time.Duration(debounceMillis) * time.Millisecond,
		RestartDelay:    time.Duration(restartMillis) * time.Millisecond,
	}, nil
}

// CalendarConfig describes the local calendar service.
type CalendarConfig struct {
	Addr string
}

func loadCalendarConfig() (CalendarConfig, error) {
	port := strings.TrimSpace(os.Getenv("CALENDAR_PORT"))
	if port == "" {
		port = "8090"
	}

	if strings.Contains(port, ":") {
		// ":8090" and "127.0.0.1:8090" are accepted as-is.
		return CalendarConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return CalendarConfig{}, fmt.Errorf("invalid CALENDAR_PORT value: %q", port)
	}

	return CalendarConfig{Addr: ":" + port}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}
