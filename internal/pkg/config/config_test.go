package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
database:
  driver: postgres
  host: db
  port: 5432
  database: builds
  username: bs
  password: pw
auth:
  jwt:
    secret: s
  api_keys:
    - key: ci-key
      name: ci
      scopes: [write]
policy:
  enforce_state_step: true
`)
	t.Setenv("BUILDSTATE_SERVER_MODE", "release")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "release", cfg.Server.Mode)
	assert.Equal(t, 5, cfg.Policy.StateStep)
	assert.Equal(t, 100, cfg.Policy.MaxState)
	require.Len(t, cfg.Auth.APIKeys, 1)
	assert.Equal(t, []string{"write"}, cfg.Auth.APIKeys[0].Scopes)
	assert.Equal(t, "host=db port=5432 user=bs password=pw dbname=builds sslmode=disable TimeZone=UTC", cfg.Database.GetDSN())
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{Driver: "sqlite"},
			Auth:     AuthConfig{JWT: JWTConfig{Secret: "s"}},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"未知驱动", func(c *Config) { c.Database.Driver = "oracle" }},
		{"缺少JWT密钥", func(c *Config) { c.Auth.JWT.Secret = "" }},
		{"AES密钥长度", func(c *Config) { c.Crypto.AESKey = "short" }},
		{"步长为0", func(c *Config) { c.Policy.EnforceStateStep = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}

func TestGetDSN(t *testing.T) {
	assert.Equal(t, "custom", (&DatabaseConfig{DSN: "custom", Driver: "mysql"}).GetDSN())
	assert.Equal(t, "file.db", (&DatabaseConfig{Driver: "sqlite", Database: "file.db"}).GetDSN())
	assert.Equal(t,
		"u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local",
		(&DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, Database: "d", Username: "u", Password: "p"}).GetDSN())
}
