package sink

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notesink.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("File Over Defaults", func(t *testing.T) {
		path := writeConfig(t, `
port: 9090
env: production
allowed_origins: ["https://notes.example.com"]
table:
  driver: redis
  redis:
    url: redis://cache:6379/2
`)
		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Port)
		assert.Equal(t, ":9090", cfg.Addr())
		assert.False(t, cfg.IsDev())
		assert.Equal(t, []string{"https://notes.example.com"}, cfg.AllowedOrigins)
		assert.Equal(t, DriverRedis, cfg.Table.Driver)
		assert.Equal(t, "redis://cache:6379/2", cfg.Table.Redis.URL)
		assert.Equal(t, defaultRedisPrefix, cfg.Table.Redis.Prefix, "unset keys keep defaults")
		assert.Equal(t, DefaultTableName, cfg.Table.DynamoDB.Table)
	})

	t.Run("Empty File", func(t *testing.T) {
		cfg, err := Load(writeConfig(t, ""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), *cfg)
	})

	t.Run("Unknown Field", func(t *testing.T) {
		_, err := Load(writeConfig(t, "prot: 9090\n"))
		assert.ErrorContains(t, err, "parse config file")
	})

	t.Run("Invalid Port", func(t *testing.T) {
		_, err := Load(writeConfig(t, "port: 70000\n"))
		assert.ErrorContains(t, err, "invalid port")
	})

	t.Run("Missing Explicit File", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
		assert.ErrorContains(t, err, "read config file")
	})

	t.Run("Missing Default File", func(t *testing.T) {
		t.Chdir(t.TempDir())
		cfg, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, defaultPort, cfg.Port)
	})

	t.Run("Environment Overrides", func(t *testing.T) {
		t.Setenv("NOTESINK_PORT", "7070")
		t.Setenv("NOTESINK_TABLE", "dynamodb")
		t.Setenv("NOTESINK_DYNAMODB_ENDPOINT", "http://localhost:8000")
		t.Setenv("NOTESINK_ALLOWED_ORIGINS", "http://a.test, http://b.test,")

		cfg, err := Load(writeConfig(t, "port: 9090\n"))
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Port)
		assert.Equal(t, DriverDynamoDB, cfg.Table.Driver)
		assert.Equal(t, "http://localhost:8000", cfg.Table.DynamoDB.Endpoint)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	})

	t.Run("Invalid Environment Port", func(t *testing.T) {
		t.Setenv("NOTESINK_PORT", "eighty")
		_, err := Load(writeConfig(t, ""))
		assert.ErrorContains(t, err, "NOTESINK_PORT")
	})
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(".env", []byte("NOTESINK_TEST_DOTENV=from-env\nNOTESINK_TEST_SHARED=env\n"), 0o644))
	require.NoError(t, os.WriteFile(".env.local", []byte("NOTESINK_TEST_SHARED=local\n"), 0o644))
	t.Cleanup(func() {
		os.Unsetenv("NOTESINK_TEST_DOTENV")
		os.Unsetenv("NOTESINK_TEST_SHARED")
	})

	loaded := LoadDotEnv()
	assert.Equal(t, []string{".env.local", ".env"}, loaded)
	assert.Equal(t, "from-env", os.Getenv("NOTESINK_TEST_DOTENV"))
	assert.Equal(t, "local", os.Getenv("NOTESINK_TEST_SHARED"))
}
