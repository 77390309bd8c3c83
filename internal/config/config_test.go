package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App: AppConfig{Name: "planforge", Env: "development"},
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Database: DatabaseConfig{Host: "localhost", SSLMode: "disable"},
		Log:      LogConfig{Level: "info", Format: "json", ErrorSamplingRate: 1.0},
		Auth: AuthConfig{
			JWTSecret:         strings.Repeat("s", 32),
			PasswordMinLength: 8,
			MaxLoginAttempts:  5,
		},
		RateLimit: RateLimitConfig{Enabled: true},
		LLM: LLMConfig{
			Provider:      "claude",
			MaxTokens:     8192,
			Temperature:   0.2,
			MaxConcurrent: 10,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_Validate_Basic(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database host"},
		{"missing jwt secret", func(c *Config) { c.Auth.JWTSecret = "" }, "AUTH_JWT_SECRET"},
		{"short jwt secret", func(c *Config) { c.Auth.JWTSecret = "short" }, "at least 32"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "LOG_LEVEL"},
		{"bad sampling rate", func(c *Config) { c.Log.SamplingRate = 1.5 }, "LOG_SAMPLING_RATE"},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "gpt" }, "LLM_PROVIDER"},
		{"bad temperature", func(c *Config) { c.LLM.Temperature = 2.0 }, "LLM_TEMPERATURE"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_Production(t *testing.T) {
	prod := func() *Config {
		c := validConfig()
		c.App.Env = EnvProduction
		c.Auth.JWTSecret = strings.Repeat("s", 64)
		c.Auth.RequireEmailVerification = true
		c.Auth.CookieSecure = true
		c.Auth.CookieSameSite = "lax"
		c.CORS.AllowedOrigins = []string{"https://app.planforge.dev"}
		c.Database.SSLMode = "require"
		c.Redis = RedisConfig{Password: "p", TLSEnabled: true}
		return c
	}

	assert.NoError(t, prod().Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"wildcard cors", func(c *Config) { c.CORS.AllowedOrigins = []string{"*"} }, "CORS wildcard"},
		{"db ssl disabled", func(c *Config) { c.Database.SSLMode = "disable" }, "database SSL"},
		{"rate limit off", func(c *Config) { c.RateLimit.Enabled = false }, "rate limiting"},
		{"debug on", func(c *Config) { c.App.Debug = true }, "debug mode"},
		{"short prod secret", func(c *Config) { c.Auth.JWTSecret = strings.Repeat("s", 32) }, "64 characters"},
		{"insecure cookie", func(c *Config) { c.Auth.CookieSecure = false }, "AUTH_COOKIE_SECURE"},
		{"no redis password", func(c *Config) { c.Redis.Password = "" }, "redis password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := prod()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	db := DatabaseConfig{
		Host: "db.internal", Port: 5432,
		User: "planforge", Password: "pw",
		Name: "planforge", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5432 user=planforge password=pw dbname=planforge sslmode=require",
		db.DSN())
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("AUTH_JWT_SECRET", strings.Repeat("s", 32))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "planforge", cfg.App.Name)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, "claude", cfg.LLM.Provider)
	assert.Equal(t, "0 9 * * *", cfg.Worker.ReminderSchedule)
	assert.False(t, cfg.Export.IsConfigured())
}
