package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"histreader/internal/config"
	"histreader/internal/store/local"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.LoadConfig("")
	require.NoError(t, err)
	cfg.Database.Driver = "sqlite"
	cfg.Database.DSN = filepath.Join(t.TempDir(), "app.db")
	cfg.Redis.Address = ""
	return cfg
}

func TestNewApp_SQLite(t *testing.T) {
	a, err := NewApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.IsType(t, &local.DB{}, a.Store)
	assert.Nil(t, a.JobClient)
	assert.NotNil(t, a.ReaderService)
	assert.NotNil(t, a.PreferenceService)
	assert.NotNil(t, a.HistoryService)
	assert.Equal(t, 3, a.Fetcher.MaxRetries())
	assert.NoError(t, a.Store.Ping(context.Background()))
}

func TestNewApp_UnsupportedDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Database.Driver = "mysql"

	_, err := NewApp(context.Background(), cfg)
	assert.Error(t, err)
}

func TestSetupLogging(t *testing.T) {
	defer log.SetOutput(log.StandardLogger().Out)
	defer log.SetLevel(log.GetLevel())
	defer log.SetFormatter(&log.TextFormatter{})

	cfg := testConfig(t)
	cfg.Log.Level = "debug"
	cfg.Log.Format = "json"
	var buf bytes.Buffer
	require.NoError(t, SetupLogging(cfg, &buf))
	log.Debug("hello")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	cfg.Log.Level = "loud"
	assert.Error(t, SetupLogging(cfg, &buf))
}
