package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aouyang1/go-pricecast/multistep"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pricecast.yaml")
	require.Nil(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	c, err := Load("")
	require.Nil(t, err)

	assert.Equal(t, 5000, c.Server.Port)
	assert.Equal(t, ":5000", c.Server.Addr())
	assert.Equal(t, 10*time.Second, c.Server.ReadTimeout)
	assert.Equal(t, "info", c.Logging.Level)
	assert.Equal(t, []string{"BTC", "ETH", "SOL"}, c.Data.Coins)
	assert.Equal(t, filepath.Join("data", "Combined_BTC_Data.csv"), c.Data.Path("btc"))
	assert.Equal(t, 5, c.Window.LookBack)
	assert.Equal(t, multistep.DefaultHorizons, c.Horizons())
	assert.Equal(t, 0.8, c.Forecast.TrainRatio)
	assert.Equal(t, "forest", c.Model.Serve)
	assert.Len(t, c.Model.Kinds, 6)
	assert.Equal(t, "BTCUSDT", c.Ticker.Symbols["BTC"])
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.False(t, c.Redis.Enabled)
	assert.Equal(t, 10*time.Minute, c.Redis.TTL)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 8080
logging:
  level: debug
  format: json
data:
  dir: /srv/data
  coins: [BTC]
  calendar: true
window:
  look_back: 7
forecast:
  horizons: [1, 5]
  max_horizon: 100
  carry: zero
model:
  kinds: [linear, boost]
  serve: boost
output:
  parquet: true
redis:
  enabled: true
  addr: cache:6379
`)
	c, err := Load(path)
	require.Nil(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, slog.LevelDebug, c.Logging.SlogLevel())
	assert.Equal(t, "json", c.Logging.Format)
	assert.Equal(t, []string{"BTC"}, c.Data.Coins)
	assert.True(t, c.Data.Calendar)
	assert.Equal(t, 7, c.Window.Options().LookBack)
	assert.Equal(t, "price", c.Window.Options().Target)
	assert.Equal(t, multistep.Horizons{1, 5}, c.Horizons())
	assert.Equal(t, []string{"linear", "boost"}, c.Model.Kinds)
	assert.True(t, c.Output.Parquet)
	assert.Equal(t, "output", c.Output.Dir)
	assert.Equal(t, "cache:6379", c.Redis.Addr)

	opt, err := c.Forecast.Options(time.Minute)
	require.Nil(t, err)
	assert.Equal(t, multistep.CarryZero, opt.Carry)
	assert.Equal(t, 100, opt.MaxHorizon)
	assert.Equal(t, time.Minute, opt.Interval)
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("PRICECAST_DATA_DIR", "/env/data")
	t.Setenv("PRICECAST_OUTPUT_DIR", "/env/out")
	t.Setenv("PRICECAST_PORT", "9090")
	t.Setenv("PRICECAST_REDIS_ADDR", "redis:6379")
	t.Setenv("PRICECAST_MODEL", "linear")
	t.Setenv("PRICECAST_LOG_LEVEL", "WARN")

	c, err := Load(writeConfig(t, "server:\n  port: 8080\n"))
	require.Nil(t, err)
	assert.Equal(t, "/env/data", c.Data.Dir)
	assert.Equal(t, "/env/out", c.Output.Dir)
	assert.Equal(t, 9090, c.Server.Port)
	assert.True(t, c.Redis.Enabled)
	assert.Equal(t, "redis:6379", c.Redis.Addr)
	assert.Equal(t, "linear", c.Model.Serve)
	assert.Equal(t, slog.LevelWarn, c.Logging.SlogLevel())
}

func TestLoadInvalid(t *testing.T) {
	testData := map[string]struct {
		body string
	}{
		"log level":         {"logging:\n  level: verbose\n"},
		"train ratio":       {"forecast:\n  train_ratio: 1.5\n"},
		"negative horizon":  {"forecast:\n  horizons: [10, -1]\n"},
		"horizon above max": {"forecast:\n  horizons: [500]\n  max_horizon: 100\n"},
		"carry":             {"forecast:\n  carry: linear\n"},
		"model kind":        {"model:\n  kinds: [svm]\n"},
		"neural path":       {"model:\n  serve: neural\n"},
		"port":              {"server:\n  port: 70000\n"},
		"metrics path":      {"metrics:\n  path: metrics\n"},
	}
	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, td.body))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}

	_, err := Load(writeConfig(t, "server: [\n"))
	assert.NotNil(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestAdapterOptions(t *testing.T) {
	m := ModelConfig{NeuralPath: "lstm.onnx", NeuralWidth: 30}
	opt := m.AdapterOptions()
	require.NotNil(t, opt.Neural)
	assert.Equal(t, "lstm.onnx", opt.Neural.ModelPath)
	assert.Equal(t, 30, opt.Neural.InputWidth)
	assert.Equal(t, "input", opt.Neural.InputName)
}
