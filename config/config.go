package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/opsabarsec/hotel-receptionist-voice-bot/booking"
)

// Config holds all server configuration
type Config struct {
	Port            int
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration

	// Dialogue engine
	EngineProvider   string // "gemini" or "openai"
	EngineModel      string // empty means the provider default
	EngineRetryCount int
	GeminiAPIKey     string
	OpenAIAPIKey     string
	OpenAIBaseURL    string

	// Persistence
	StoreBackend string // "memory", "redis", or "sqlite"
	SQLitePath   string

	// Reception behavior
	HotelName        string
	DefaultLanguage  string
	TranscriptDir    string
	TranslateEnabled bool
	MaxTurns         int
	RequiredFields   []string
	MaxGuestCount    int
	UrgencyThreshold float64
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	config := &Config{
		Port:             8080,
		RedisURL:         "localhost:6379",
		RedisPassword:    "",
		MaxSessions:      100,
		SessionTimeout:   30 * time.Minute,
		AllowedOrigins:   []string{"*"},
		KeepAlivePeriod:  30 * time.Second,
		EngineProvider:   "gemini",
		EngineRetryCount: 1,
		StoreBackend:     "memory",
		SQLitePath:       "hotel.db",
		HotelName:        "Hotel Bellevue",
		DefaultLanguage:  "en",
		TranscriptDir:    "transcripts",
		MaxTurns:         8,
		RequiredFields:   booking.DefaultRequiredFields,
		MaxGuestCount:    booking.DefaultMaxGuestCount,
		UrgencyThreshold: 0.8,
	}

	// Optional: ENGINE_PROVIDER ("gemini" or "openai")
	if provider := os.Getenv("ENGINE_PROVIDER"); provider != "" {
		switch provider {
		case "gemini", "openai":
			config.EngineProvider = provider
		default:
			return nil, fmt.Errorf("invalid ENGINE_PROVIDER: must be 'gemini' or 'openai'")
		}
	}

	// The active provider's API key is required
	config.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	config.OpenAIBaseURL = os.Getenv("OPENAI_BASE_URL")
	switch config.EngineProvider {
	case "gemini":
		if config.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
		}
	case "openai":
		if config.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is required")
		}
	}

	// Optional: ENGINE_MODEL
	if model := os.Getenv("ENGINE_MODEL"); model != "" {
		config.EngineModel = model
	}

	// Optional: ENGINE_RETRY_COUNT
	if retries := os.Getenv("ENGINE_RETRY_COUNT"); retries != "" {
		r, err := strconv.Atoi(retries)
		if err != nil || r < 0 {
			return nil, fmt.Errorf("invalid ENGINE_RETRY_COUNT: %q", retries)
		}
		config.EngineRetryCount = r
	}

	// Optional: PORT
	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %w", err)
		}
		config.Port = p
	}

	// Optional: REDIS_URL
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		config.RedisURL = redisURL
	}

	// Optional: REDIS_PASSWORD
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		config.RedisPassword = redisPassword
	}

	// Optional: MAX_SESSIONS
	if maxSessions := os.Getenv("MAX_SESSIONS"); maxSessions != "" {
		m, err := strconv.Atoi(maxSessions)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_SESSIONS: %w", err)
		}
		config.MaxSessions = m
	}

	// Optional: SESSION_TIMEOUT (in minutes)
	if timeout := os.Getenv("SESSION_TIMEOUT"); timeout != "" {
		t, err := strconv.Atoi(timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TIMEOUT: %w", err)
		}
		config.SessionTimeout = time.Duration(t) * time.Minute
	}

	// Optional: ALLOWED_ORIGINS (comma-separated)
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		config.AllowedOrigins = strings.Split(origins, ",")
	}

	// Optional: KEEPALIVE_PERIOD (in seconds)
	if keepalive := os.Getenv("KEEPALIVE_PERIOD"); keepalive != "" {
		k, err := strconv.Atoi(keepalive)
		if err != nil {
			return nil, fmt.Errorf("invalid KEEPALIVE_PERIOD: %w", err)
		}
		config.KeepAlivePeriod = time.Duration(k) * time.Second
	}

	// Optional: STORE_BACKEND ("memory", "redis", or "sqlite")
	if backend := os.Getenv("STORE_BACKEND"); backend != "" {
		switch backend {
		case "memory", "redis", "sqlite":
			config.StoreBackend = backend
		default:
			return nil, fmt.Errorf("invalid STORE_BACKEND: must be 'memory', 'redis', or 'sqlite'")
		}
	}

	// Optional: SQLITE_PATH
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		config.SQLitePath = path
	}

	// Optional: HOTEL_NAME
	if name := os.Getenv("HOTEL_NAME"); name != "" {
		config.HotelName = name
	}

	// Optional: DEFAULT_LANGUAGE
	if lang := os.Getenv("DEFAULT_LANGUAGE"); lang != "" {
		config.DefaultLanguage = strings.ToLower(lang)
	}

	// Optional: TRANSCRIPT_DIR
	if dir := os.Getenv("TRANSCRIPT_DIR"); dir != "" {
		config.TranscriptDir = dir
	}

	// Optional: TRANSLATE_ENABLED
	if enabled := os.Getenv("TRANSLATE_ENABLED"); enabled != "" {
		b, err := strconv.ParseBool(enabled)
		if err != nil {
			return nil, fmt.Errorf("invalid TRANSLATE_ENABLED: %w", err)
		}
		config.TranslateEnabled = b
	}

	// Optional: MAX_TURNS
	if maxTurns := os.Getenv("MAX_TURNS"); maxTurns != "" {
		m, err := strconv.Atoi(maxTurns)
		if err != nil || m < 1 {
			return nil, fmt.Errorf("invalid MAX_TURNS: %q", maxTurns)
		}
		config.MaxTurns = m
	}

	// Optional: REQUIRED_FIELDS (comma-separated field names)
	if fields := os.Getenv("REQUIRED_FIELDS"); fields != "" {
		parsed := []string{}
		for _, f := range strings.Split(fields, ",") {
			f = strings.TrimSpace(f)
			if f == "" {
				continue
			}
			if !booking.KnownField(f) {
				return nil, fmt.Errorf("invalid REQUIRED_FIELDS: unknown field %q", f)
			}
			parsed = append(parsed, f)
		}
		if len(parsed) == 0 {
			return nil, fmt.Errorf("invalid REQUIRED_FIELDS: no field names given")
		}
		config.RequiredFields = parsed
	}

	// Optional: MAX_GUEST_COUNT
	if maxGuests := os.Getenv("MAX_GUEST_COUNT"); maxGuests != "" {
		m, err := strconv.Atoi(maxGuests)
		if err != nil || m < 1 {
			return nil, fmt.Errorf("invalid MAX_GUEST_COUNT: %q", maxGuests)
		}
		config.MaxGuestCount = m
	}

	// Optional: URGENCY_THRESHOLD (0..1)
	if threshold := os.Getenv("URGENCY_THRESHOLD"); threshold != "" {
		t, err := strconv.ParseFloat(threshold, 64)
		if err != nil || t < 0 || t > 1 {
			return nil, fmt.Errorf("invalid URGENCY_THRESHOLD: %q", threshold)
		}
		config.UrgencyThreshold = t
	}

	return config, nil
}
