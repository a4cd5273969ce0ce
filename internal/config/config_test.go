package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves the test into an empty directory so no stray
// config.yaml or .env files are picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })
	return tmp
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "data/library.db", cfg.Store.SQLitePath)
	assert.Equal(t, 3*time.Second, cfg.Store.QueryTimeout)
	assert.Equal(t, 0, cfg.History.MaxDepth)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.OpenLibrary.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_DSN", "postgres://u:p@localhost:5432/booklibrary")
	t.Setenv("HISTORY_MAX_DEPTH", "50")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://u:p@localhost:5432/booklibrary", cfg.Store.PostgresDSN)
	assert.Equal(t, 50, cfg.History.MaxDepth)
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := chdirTemp(t)
	path := filepath.Join(dir, "custom.yaml")
	yaml := `
server:
  addr: ":9090"
store:
  driver: sqlite
  sqlite_path: "/tmp/books.db"
  query_timeout: "1s"
history:
  max_depth: 10
rate_limit:
  rps: 5
  burst: 10
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("CONFIG_PATH", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, "/tmp/books.db", cfg.Store.SQLitePath)
	assert.Equal(t, time.Second, cfg.Store.QueryTimeout)
	assert.Equal(t, 10, cfg.History.MaxDepth)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	chdirTemp(t)
	t.Setenv("CONFIG_PATH", "/does/not/exist.yaml")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("DB_DSN=from_file\n"), 0o644))
	t.Setenv("DB_DSN", "from_env")

	LoadEnvFiles()

	assert.Equal(t, "from_env", os.Getenv("DB_DSN"))
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Store:       StoreConfig{Driver: "sqlite", SQLitePath: "x.db", QueryTimeout: time.Second},
			RateLimit:   RateLimitConfig{RPS: 1, Burst: 1},
			OpenLibrary: OpenLibraryConfig{Enabled: true, RPS: 1},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.Store.Driver = "mysql" }, wantErr: true},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = "postgres" }, wantErr: true},
		{name: "negative depth", mutate: func(c *Config) { c.History.MaxDepth = -1 }, wantErr: true},
		{name: "short secret", mutate: func(c *Config) { c.Auth.JWTSecret = "short" }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.Store.QueryTimeout = 0 }, wantErr: true},
		{name: "open library disabled ignores rps", mutate: func(c *Config) {
			c.OpenLibrary = OpenLibraryConfig{Enabled: false}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCORSConfig_Origins(t *testing.T) {
	c := CORSConfig{AllowedOrigins: "http://a.test, http://b.test,,"}
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, c.Origins())
}
