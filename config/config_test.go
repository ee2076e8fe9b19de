package config

import (
	"strconv"
	"strings"
	"testing"
)

func setValidEnv(t *testing.T) {
	t.Helper()
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}
	t.Setenv("PORT", "8002")
	t.Setenv("ADDRESS", "127.0.0.1")
	t.Setenv("ENV", "dev")
	t.Setenv("LOG_LEVEL", "info")
}

func TestLoadValidConfig(t *testing.T) {
	setValidEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8002" {
		t.Errorf("Expected port 8002, got %s", cfg.Port)
	}
	if cfg.Address != "127.0.0.1" {
		t.Errorf("Expected address 127.0.0.1, got %s", cfg.Address)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("Expected log level info, got %s", cfg.LogLevel)
	}
}

func TestLoadWithDefaults(t *testing.T) {
	for _, key := range GetEnvVars() {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.LogLevel != "" {
		t.Errorf("Expected unset log level, got %s", cfg.LogLevel)
	}
	if cfg.LogDir != "logs" {
		t.Errorf("Expected default log dir logs, got %s", cfg.LogDir)
	}
	if cfg.LogRetentionWeeks != 4 {
		t.Errorf("Expected 4 weeks retention, got %d", cfg.LogRetentionWeeks)
	}
	if cfg.MaxRequestBody != 64*1024 {
		t.Errorf("Expected 64KB request body limit, got %d", cfg.MaxRequestBody)
	}
	if cfg.RateLimitRate != 3 || cfg.RateLimitCapacity != 1000 {
		t.Errorf("Expected rate limit 3/1000, got %d/%d", cfg.RateLimitRate, cfg.RateLimitCapacity)
	}
	if cfg.DefaultLanguage != "ja" {
		t.Errorf("Expected default language ja, got %s", cfg.DefaultLanguage)
	}
}

func TestLoadInvalidValues(t *testing.T) {
	testCases := []struct {
		key      string
		value    string
		expected string
	}{
		{"PORT", "abc", "PORT must be a valid number"},
		{"PORT", "0", "PORT must be between 1 and 65535"},
		{"PORT", "65536", "PORT must be between 1 and 65535"},
		{"PORT", "80", "PORT 80 is privileged"},
		{"ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"ADDRESS", "8.8.8.8", "public IP"},
		{"ENV", "invalid", "ENV must be one of"},
		{"LOG_LEVEL", "verbose", "LOG_LEVEL must be one of"},
		{"MAX_REQUEST_BODY", "-1", "MAX_REQUEST_BODY must be positive"},
		{"MAX_HEADER_SIZE", "209715200", "too large"},
		{"LOG_RETENTION_WEEKS", "60", "max 52 weeks"},
		{"MAX_LOG_FILE_SIZE", "1024", "too small"},
		{"RATE_LIMIT_RATE", "-3", "RATE_LIMIT_RATE must be positive"},
		{"RATE_LIMIT_CAPACITY", "1", "must be at least RATE_LIMIT_RATE"},
		{"RATE_LIMIT_CAPACITY", "19", "must be at least the largest request cost"},
		{"DEFAULT_LANGUAGE", "fr", "DEFAULT_LANGUAGE must be one of"},
	}

	for _, tc := range testCases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %v", tc.expected, err)
			}
		})
	}
}

func TestLoadRateLimitCapacityBelowRequestCost(t *testing.T) {
	setValidEnv(t)
	t.Setenv("RATE_LIMIT_RATE", "5")
	t.Setenv("RATE_LIMIT_CAPACITY", "10")

	_, err := Load()
	if err == nil || !strings.Contains(err.Error(), "largest request cost (20)") {
		t.Fatalf("Expected capacity error, got %v", err)
	}

	t.Setenv("RATE_LIMIT_CAPACITY", strconv.FormatInt(MaxRequestCost, 10))
	if _, err := Load(); err != nil {
		t.Errorf("Expected capacity %d to be accepted, got %v", MaxRequestCost, err)
	}
}

func TestLoadAcceptsPrivateAddress(t *testing.T) {
	for _, addr := range []string{"10.0.0.5", "192.168.1.10", "0.0.0.0", "::1", "localhost"} {
		t.Run(addr, func(t *testing.T) {
			setValidEnv(t)
			t.Setenv("ADDRESS", addr)

			if _, err := Load(); err != nil {
				t.Errorf("Expected address %s to be accepted, got %v", addr, err)
			}
		})
	}
}

func TestLoadNormalisesCase(t *testing.T) {
	setValidEnv(t)
	t.Setenv("ENV", "PRODUCTION")
	t.Setenv("LOG_LEVEL", "WARN")
	t.Setenv("DEFAULT_LANGUAGE", "EN")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cfg.Env != EnvProduction {
		t.Errorf("Expected prod, got %s", cfg.Env)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("Expected warn, got %s", cfg.LogLevel)
	}
	if cfg.DefaultLanguage != "en" {
		t.Errorf("Expected en, got %s", cfg.DefaultLanguage)
	}
}

func TestParseEnvironment(t *testing.T) {
	tests := []struct {
		input    string
		expected Environment
		hasError bool
	}{
		{"dev", EnvDevelopment, false},
		{"development", EnvDevelopment, false},
		{"staging", EnvStaging, false},
		{"prod", EnvProduction, false},
		{"production", EnvProduction, false},
		{"test", EnvTest, false},
		{"invalid", EnvDevelopment, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			env, err := ParseEnvironment(tt.input)
			if tt.hasError {
				if err == nil {
					t.Errorf("Expected error for %s, got none", tt.input)
				}
				return
			}
			if err != nil {
				t.Errorf("Unexpected error for %s: %v", tt.input, err)
			}
			if env != tt.expected {
				t.Errorf("Expected %v, got %v", tt.expected, env)
			}
		})
	}
}

func TestEnvironmentString(t *testing.T) {
	tests := []struct {
		env      Environment
		expected string
	}{
		{EnvDevelopment, "dev"},
		{EnvStaging, "staging"},
		{EnvProduction, "prod"},
		{EnvTest, "test"},
	}

	for _, tt := range tests {
		if got := tt.env.String(); got != tt.expected {
			t.Errorf("Expected %s, got %s", tt.expected, got)
		}
	}
}
