// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane.varoqui@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.
// Redistribution/Reuse of this code is permitted under the GNU v3 license, as
// an additional term, ALL code must carry the original Author(s) credit in comment form.
// See LICENSE in this directory for the integral text.

package config

import (
	"os"
	"strings"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	ConfigFile         string `mapstructure:"config"`
	Source             string `mapstructure:"source"`
	Symbol             string `mapstructure:"symbol"`
	ApiUrl             string `mapstructure:"api-url"`
	ApiKey             string `mapstructure:"api-key"`
	ApiInterval        string `mapstructure:"api-interval"`
	ApiOutputSize      string `mapstructure:"api-output-size"`
	GraphiteUrl        string `mapstructure:"graphite-url"`
	GraphiteTarget     string `mapstructure:"graphite-target"`
	GraphiteFrom       string `mapstructure:"graphite-from"`
	CsvFile            string `mapstructure:"csv-file"`
	Window             string `mapstructure:"window"`
	HttpTimeout        int    `mapstructure:"http-timeout"`
	CacheType          string `mapstructure:"cache-type"`
	CacheSize          int    `mapstructure:"cache-size"`
	CacheExpire        int    `mapstructure:"cache-expire"`
	MemcacheServers    string `mapstructure:"memcache-servers"`
	MaxConcurrency     int    `mapstructure:"max-concurrency"`
	Verify             bool   `mapstructure:"verify"`
	Publish            bool   `mapstructure:"publish"`
	CarbonHost         string `mapstructure:"carbon-host"`
	CarbonPort         int    `mapstructure:"carbon-port"`
	CarbonProtocol     string `mapstructure:"carbon-protocol"`
	CarbonPrefix       string `mapstructure:"carbon-prefix"`
	DbPath             string `mapstructure:"db-path"`
	HttpBind           string `mapstructure:"http-bind"`
	StatsGraphiteHost  string `mapstructure:"stats-graphite-host"`
	StatsInterval      int    `mapstructure:"stats-interval"`
	ChartWidth         int    `mapstructure:"chart-width"`
	ChartHeight        int    `mapstructure:"chart-height"`
	ChartTitle         string `mapstructure:"chart-title"`
	ChartColor         string `mapstructure:"chart-color"`
	LogFile            string `mapstructure:"log-file"`
	LogLevel           string `mapstructure:"log-level"`
	LogRotateMaxSize   int    `mapstructure:"log-rotate-max-size"`
	LogRotateMaxBackup int    `mapstructure:"log-rotate-max-backup"`
	LogRotateMaxAge    int    `mapstructure:"log-rotate-max-age"`
	Verbose            bool   `mapstructure:"verbose"`
}

const EnvPrefix = "PRICEMEDIAN"

var (
	Sources     = []string{"alphavantage", "graphite", "csv"}
	Intervals   = []string{"1min", "5min", "15min", "30min", "60min"}
	OutputSizes = []string{"compact", "full"}
	CacheTypes  = []string{"null", "mem", "memcache"}
)

// InitSourceFlags registers the flags shared by every command reading prices.
func InitSourceFlags(fs *pflag.FlagSet) {
	fs.String("source", "alphavantage", "Price source: alphavantage, graphite or csv")
	fs.String("symbol", "IBM", "Default equity symbol")
	fs.String("api-url", "https://www.alphavantage.co", "Alpha Vantage base URL")
	fs.String("api-key", "", "Alpha Vantage API key")
	fs.String("api-interval", "30min", "Intraday interval: 1min, 5min, 15min, 30min, 60min")
	fs.String("api-output-size", "full", "Alpha Vantage output size: compact or full")
	fs.String("graphite-url", "http://localhost:8080", "Graphite render API base URL")
	fs.String("graphite-target", "stocks.%s.close", "Graphite target, %s is replaced by the symbol")
	fs.String("graphite-from", "-7d", "Graphite relative start of the fetched range")
	fs.String("csv-file", "", "CSV file of timestamp,value rows, - for stdin")
	fs.String("window", "", "Only keep points newer than now minus this interval, e.g. 30d")
	fs.Int("http-timeout", 10, "Upstream HTTP timeout in seconds")
	fs.String("cache-type", "null", "Upstream response cache: null, mem or memcache")
	fs.Int("cache-size", 16, "In memory cache size in MB")
	fs.Int("cache-expire", 60, "Cached response lifetime in seconds")
	fs.String("memcache-servers", "", "Comma separated memcache servers")
	fs.Int("max-concurrency", 0, "Dates computed in parallel, 0 for one per CPU")
	fs.Bool("verify", false, "Cross check every median with an exact selection")
	fs.Bool("publish", false, "Publish daily medians to carbon")
	fs.String("carbon-host", "localhost", "Carbon host")
	fs.Int("carbon-port", 2003, "Carbon plaintext port")
	fs.String("carbon-protocol", "tcp", "Carbon protocol: tcp, udp or nop")
	fs.String("carbon-prefix", "stocks", "Carbon metric prefix")
	fs.String("db-path", "", "SQLite history database, empty disables history")
	fs.Int("chart-width", 800, "Chart width in pixels")
	fs.Int("chart-height", 600, "Chart height in pixels")
	fs.String("chart-title", "Stock Price Chart", "Chart title")
	fs.String("chart-color", "#f55905", "Chart series color")
}

// InitServerFlags registers the flags of the HTTP API.
func InitServerFlags(fs *pflag.FlagSet) {
	fs.String("http-bind", "0.0.0.0:10005", "HTTP API listen address")
	fs.String("stats-graphite-host", "", "Graphite host:port receiving the API own counters")
	fs.Int("stats-interval", 60, "Own counters publishing interval in seconds")
}

// InitLogFlags registers the logging flags.
func InitLogFlags(fs *pflag.FlagSet) {
	fs.String("log-file", "", "Write output messages to log file")
	fs.String("log-level", "info", "Log level: debug, info, warning, error")
	fs.Int("log-rotate-max-size", 5, "Log rotate max size in MB")
	fs.Int("log-rotate-max-backup", 7, "Log rotate max backup")
	fs.Int("log-rotate-max-age", 7, "Log rotate max age in days")
	fs.Bool("verbose", false, "Print detailed execution info")
}

// Load reads the configuration file if any, binds the environment and decodes
// everything into a Config. Flags must already be bound to v.
func Load(v *viper.Viper) (Config, error) {
	var conf Config

	v.SetConfigType("toml")
	if file := v.GetString("config"); file != "" {
		v.SetConfigFile(file)
		if _, err := os.Stat(file); os.IsNotExist(err) {
			return conf, errors.NotFoundf("config file %s", file)
		}
	} else {
		v.SetConfigName("pricemedian")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pricemedian/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	err := v.ReadInConfig()
	if err == nil {
		log.WithFields(log.Fields{
			"file": v.ConfigFileUsed(),
		}).Debug("Using config file")
	}
	if _, ok := err.(viper.ConfigParseError); ok {
		return conf, errors.Annotate(err, "could not parse config file")
	}

	if err := v.Unmarshal(&conf); err != nil {
		return conf, errors.Trace(err)
	}
	if conf.Verbose {
		conf.LogLevel = "debug"
	}
	return conf, conf.Validate()
}

func oneOf(field, value string, allowed []string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return errors.NotValidf("%s %q (want one of %s)", field, value, strings.Join(allowed, ", "))
}

// Validate checks the enumerated settings and the window.
func (conf Config) Validate() error {
	if err := oneOf("source", conf.Source, Sources); err != nil {
		return err
	}
	if err := oneOf("api-interval", conf.ApiInterval, Intervals); err != nil {
		return err
	}
	if err := oneOf("api-output-size", conf.ApiOutputSize, OutputSizes); err != nil {
		return err
	}
	if err := oneOf("cache-type", conf.CacheType, CacheTypes); err != nil {
		return err
	}
	if conf.Source == "csv" && conf.CsvFile == "" {
		return errors.NotValidf("csv source without csv-file")
	}
	if conf.CacheType == "memcache" && conf.MemcacheServers == "" {
		return errors.NotValidf("memcache cache without memcache-servers")
	}
	if _, err := conf.WindowStart(time.Now()); err != nil {
		return err
	}
	return nil
}

// WindowStart returns the oldest timestamp kept, or the zero time without window.
func (conf Config) WindowStart(now time.Time) (time.Time, error) {
	if conf.Window == "" {
		return time.Time{}, nil
	}
	secs, err := IntervalString(conf.Window, -1)
	if err != nil {
		return time.Time{}, errors.Annotatef(err, "window %q", conf.Window)
	}
	return now.Add(time.Duration(secs) * time.Second), nil
}

// HttpTimeoutDuration is the upstream client timeout.
func (conf Config) HttpTimeoutDuration() time.Duration {
	return time.Duration(conf.HttpTimeout) * time.Second
}
