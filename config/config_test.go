package config

import (
	"testing"
	"time"
)

func setBaseline(t *testing.T) {
	t.Helper()
	t.Setenv("GEMINI_API_KEY", "test-key")
	// Clear anything a developer .env might leak into the test run.
	for _, key := range []string{
		"ENGINE_PROVIDER", "ENGINE_MODEL", "ENGINE_RETRY_COUNT", "PORT",
		"STORE_BACKEND", "MAX_TURNS", "REQUIRED_FIELDS", "MAX_GUEST_COUNT",
		"URGENCY_THRESHOLD", "SESSION_TIMEOUT", "TRANSLATE_ENABLED",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseline(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EngineProvider != "gemini" || cfg.EngineRetryCount != 1 {
		t.Fatalf("engine defaults: %+v", cfg)
	}
	if cfg.MaxTurns != 8 || cfg.MaxGuestCount != 20 {
		t.Fatalf("policy defaults: maxTurns=%d maxGuests=%d", cfg.MaxTurns, cfg.MaxGuestCount)
	}
	if len(cfg.RequiredFields) != 3 {
		t.Fatalf("requiredFields=%v", cfg.RequiredFields)
	}
	if cfg.StoreBackend != "memory" || cfg.SessionTimeout != 30*time.Minute {
		t.Fatalf("store/session defaults: %+v", cfg)
	}
}

func TestLoadConfigRequiresActiveProviderKey(t *testing.T) {
	setBaseline(t)
	t.Setenv("GEMINI_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("missing GEMINI_API_KEY accepted")
	}

	t.Setenv("ENGINE_PROVIDER", "openai")
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatal("missing OPENAI_API_KEY accepted")
	}
	t.Setenv("OPENAI_API_KEY", "test-key")
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.EngineProvider != "openai" {
		t.Fatalf("provider=%q", cfg.EngineProvider)
	}
}

func TestLoadConfigParsesRequiredFields(t *testing.T) {
	setBaseline(t)
	t.Setenv("REQUIRED_FIELDS", "check_in, check_out, guest_count, guest_name")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if len(cfg.RequiredFields) != 4 || cfg.RequiredFields[3] != "guest_name" {
		t.Fatalf("requiredFields=%v", cfg.RequiredFields)
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	cases := []struct{ key, value string }{
		{"ENGINE_PROVIDER", "claude"},
		{"STORE_BACKEND", "postgres"},
		{"MAX_TURNS", "0"},
		{"MAX_TURNS", "lots"},
		{"MAX_GUEST_COUNT", "-1"},
		{"URGENCY_THRESHOLD", "1.5"},
		{"ENGINE_RETRY_COUNT", "-2"},
		{"REQUIRED_FIELDS", "check_in,no_such_field"},
		{"REQUIRED_FIELDS", " , "},
	}
	for _, c := range cases {
		setBaseline(t)
		t.Setenv(c.key, c.value)
		if _, err := LoadConfig(); err == nil {
			t.Fatalf("%s=%q accepted", c.key, c.value)
		}
	}
}
