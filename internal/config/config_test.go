package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: bookmarks-test
  port: 9090
database:
  driver: postgres
  host: localhost
  port: 5432
  username: bookmarks
  password: secret
  database: bookmarks
image:
  page_size: 12
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
	return dir
}

func TestLoadAppliesDefaults(t *testing.T) {
	loader, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	cfg := loader.Config()
	assert.Equal(t, "bookmarks-test", cfg.App.Name)
	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, 12, cfg.Image.PageSize)
	assert.Equal(t, []string{"jpg", "jpeg", "png", "gif", "webp"}, cfg.Image.AllowedExtensions)
	assert.Equal(t, "0 */5 * * * *", cfg.Cron.ViewSync)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.Equal(t, 6379, cfg.Redis.Port)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")

	loader, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "db.internal", loader.Config().Database.Host)
}

func TestDSN(t *testing.T) {
	pg := DatabaseConfig{Driver: "postgres", Host: "h", Port: 5432, Username: "u", Password: "p", Database: "d", SSLMode: "disable"}
	assert.Contains(t, pg.DSN(), "host=h port=5432 user=u password=p dbname=d sslmode=disable")

	my := DatabaseConfig{Driver: "mysql", Host: "h", Port: 3306, Username: "u", Password: "p", Database: "d", Charset: "utf8mb4"}
	assert.Equal(t, "u:p@tcp(h:3306)/d?charset=utf8mb4&parseTime=True&loc=Local", my.DSN())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}
