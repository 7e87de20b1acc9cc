package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "sqlite", cfg.DBDriver)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 5*time.Second, cfg.ShutdownTimeout)
	assert.False(t, cfg.CookieSecure)
	assert.Equal(t, 10, cfg.AuthRateBurst)
}

func TestLoad_MissingSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	_, err := Load("")
	assert.Error(t, err)
}

func TestLoad_EnvFile(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")
	t.Setenv("HTTP_ADDR", ":9999")

	path := filepath.Join(t.TempDir(), ".env")
	content := "JWT_SECRET=from-dotenv-secret-value\nHTTP_ADDR=:7000\nDB_DRIVER=memory\nCOOKIE_SECURE=true\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("DB_DRIVER")
		os.Unsetenv("COOKIE_SECURE")
	})

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv-secret-value", cfg.JWTSecret)
	assert.Equal(t, ":9999", cfg.HTTPAddr, "process env wins over .env")
	assert.Equal(t, "memory", cfg.DBDriver)
	assert.True(t, cfg.CookieSecure)
}

func TestLoad_MissingEnvFileIgnored(t *testing.T) {
	t.Setenv("JWT_SECRET", "0123456789abcdef0123")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{DBDriver: "memory", JWTSecret: "0123456789abcdef", AuthRateLimit: 1, AuthRateBurst: 1}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad_driver", func(c *Config) { c.DBDriver = "mysql" }},
		{"short_secret", func(c *Config) { c.JWTSecret = "short" }},
		{"no_dsn", func(c *Config) { c.DBDriver = "postgres"; c.DatabaseURL = "" }},
		{"zero_rate", func(c *Config) { c.AuthRateLimit = 0 }},
		{"admin_email_without_password", func(c *Config) { c.AdminEmail = "a@example.com" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			assert.Error(t, c.Validate())
		})
	}
}
