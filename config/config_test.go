package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newViper(t *testing.T, args ...string) *viper.Viper {
	t.Helper()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.String("config", "", "")
	InitSourceFlags(fs)
	InitServerFlags(fs)
	InitLogFlags(fs)
	require.NoError(t, fs.Parse(args))

	v := viper.New()
	require.NoError(t, v.BindPFlags(fs))
	return v
}

func TestLoadDefaults(t *testing.T) {
	conf, err := Load(newViper(t, "--config", ""))
	require.NoError(t, err)

	assert.Equal(t, "alphavantage", conf.Source)
	assert.Equal(t, "IBM", conf.Symbol)
	assert.Equal(t, "30min", conf.ApiInterval)
	assert.Equal(t, "full", conf.ApiOutputSize)
	assert.Equal(t, "null", conf.CacheType)
	assert.Equal(t, "#f55905", conf.ChartColor)
	assert.Equal(t, 10*time.Second, conf.HttpTimeoutDuration())
	assert.Equal(t, "info", conf.LogLevel)
}

func TestLoadFileAndFlags(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "pricemedian.toml")
	body := strings.Join([]string{
		`symbol = "MSFT"`,
		`api-interval = "5min"`,
		`verify = true`,
		`window = "30d"`,
	}, "\n")
	require.NoError(t, os.WriteFile(file, []byte(body), 0644))

	conf, err := Load(newViper(t, "--config", file, "--symbol", "AAPL", "--verbose"))
	require.NoError(t, err)

	assert.Equal(t, "AAPL", conf.Symbol, "flags win over the file")
	assert.Equal(t, "5min", conf.ApiInterval)
	assert.True(t, conf.Verify)
	assert.Equal(t, "debug", conf.LogLevel)

	now := time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC)
	from, err := conf.WindowStart(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), from)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(newViper(t, "--config", filepath.Join(t.TempDir(), "nope.toml")))
	assert.True(t, errors.IsNotFound(err))
}

func TestValidate(t *testing.T) {
	conf, err := Load(newViper(t))
	require.NoError(t, err)

	var tests = []struct {
		name   string
		mutate func(c *Config)
	}{
		{"source", func(c *Config) { c.Source = "bloomberg" }},
		{"interval", func(c *Config) { c.ApiInterval = "2min" }},
		{"output size", func(c *Config) { c.ApiOutputSize = "huge" }},
		{"cache", func(c *Config) { c.CacheType = "redis" }},
		{"csv without file", func(c *Config) { c.Source = "csv" }},
		{"memcache without servers", func(c *Config) { c.CacheType = "memcache" }},
		{"window", func(c *Config) { c.Window = "10parsecs" }},
		{"window too long", func(c *Config) { c.Window = "69y" }},
	}

	for _, tt := range tests {
		c := conf
		tt.mutate(&c)
		err := c.Validate()
		if err == nil {
			t.Errorf("%s: expected a validation error", tt.name)
		}
	}
	assert.NoError(t, conf.Validate())
}

func TestInterval(t *testing.T) {
	var tests = []struct {
		t       string
		seconds int32
		sign    int
	}{
		{"1s", 1, 1},
		{"2d", 2 * 60 * 60 * 24, 1},
		{"10hours", 60 * 60 * 10, 1},
		{"7d13h45min21s", 7*24*60*60 + 13*60*60 + 45*60 + 21, 1},
		{"30d", -30 * 24 * 60 * 60, -1},
		{"+2d", 2 * 60 * 60 * 24, -1},
		{"-10hours", -60 * 60 * 10, -1},
		{"68y", -68 * 365 * 24 * 60 * 60, -1},
	}

	for _, tt := range tests {
		if secs, _ := IntervalString(tt.t, tt.sign); secs != tt.seconds {
			t.Errorf("IntervalString(%q)=%d, want %d", tt.t, secs, tt.seconds)
		}
	}

	for _, bad := range []string{"", "10m10s", "d", "69y", "100y", "60y10y", "99999999999d"} {
		if _, err := IntervalString(bad, 1); err == nil {
			t.Errorf("IntervalString(%q) should fail", bad)
		}
	}
}

func TestSetLevel(t *testing.T) {
	originalLevel := logrus.GetLevel()
	originalOut := logrus.StandardLogger().Out
	defer func() {
		logrus.SetLevel(originalLevel)
		logrus.SetOutput(originalOut)
	}()

	var buf bytes.Buffer
	logrus.SetOutput(&buf)

	require.NoError(t, SetLevel("warning"))
	logrus.Info("_InfoMessage_")
	logrus.Warn("_WarnMessage_")
	assert.NotContains(t, buf.String(), "_InfoMessage_")
	assert.Contains(t, buf.String(), "_WarnMessage_")

	assert.Error(t, SetLevel("unknown"))
}

func TestSetupLoggingFile(t *testing.T) {
	originalOut := logrus.StandardLogger().Out
	originalLevel := logrus.GetLevel()
	defer func() {
		logrus.SetOutput(originalOut)
		logrus.SetLevel(originalLevel)
	}()

	file := filepath.Join(t.TempDir(), "pricemedian.log")
	require.NoError(t, SetupLogging(Config{LogFile: file, LogLevel: "info", LogRotateMaxSize: 1}))
	logrus.Info("First message")

	b, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(b), "First message")
}
