// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package source reads intraday price points from an upstream feed.
package source

import (
	"context"
	"expvar"
	"fmt"
	"io/ioutil"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/ggwhite/go-masker"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/series"
)

var (
	// ErrUpstream is the cause of every failure reported by the feed itself.
	ErrUpstream = errors.New("upstream error")
	// ErrNoData means the feed answered without any usable point.
	ErrNoData = errors.New("no data")
)

// Metrics contains the exported counters of upstream requests.
var Metrics = struct {
	Requests         *expvar.Int
	CacheHits        *expvar.Int
	UpstreamErrors   *expvar.Int
	MemcacheTimeouts *expvar.Int
}{
	Requests:         expvar.NewInt("source_requests"),
	CacheHits:        expvar.NewInt("source_cache_hits"),
	UpstreamErrors:   expvar.NewInt("source_upstream_errors"),
	MemcacheTimeouts: expvar.NewInt("source_memcache_timeouts"),
}

// Source returns the price points of a symbol, oldest first.
type Source interface {
	Fetch(ctx context.Context, symbol string) ([]series.Point, error)
}

// New builds the source selected by conf.Source.
func New(conf config.Config) (Source, error) {
	cache, err := NewCache(conf.CacheType, conf.CacheSize, conf.MemcacheServers)
	if err != nil {
		return nil, err
	}
	f := newFetcher(conf.HttpTimeoutDuration(), cache, int32(conf.CacheExpire))

	switch conf.Source {
	case "alphavantage":
		return &AlphaVantage{
			BaseURL:    conf.ApiUrl,
			ApiKey:     conf.ApiKey,
			Interval:   conf.ApiInterval,
			OutputSize: conf.ApiOutputSize,
			fetcher:    f,
		}, nil
	case "graphite":
		return &Graphite{
			BaseURL: conf.GraphiteUrl,
			Target:  conf.GraphiteTarget,
			From:    conf.GraphiteFrom,
			fetcher: f,
		}, nil
	case "csv":
		return &CSV{Path: conf.CsvFile}, nil
	}
	return nil, errors.NotValidf("source %q", conf.Source)
}

type fetcher struct {
	client *http.Client
	cache  Cache
	expire int32
}

func newFetcher(timeout time.Duration, cache Cache, expire int32) *fetcher {
	if cache == nil {
		cache = NullCache{}
	}
	return &fetcher{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
			},
		},
		cache:  cache,
		expire: expire,
	}
}

// get returns the body found at u. A body passing check is cached.
func (f *fetcher) get(ctx context.Context, u string, check func([]byte) error) ([]byte, error) {
	Metrics.Requests.Add(1)
	if body, ok := f.cache.Get(u); ok {
		Metrics.CacheHits.Add(1)
		return body, nil
	}

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return nil, errors.Trace(err)
	}
	resp, err := f.client.Do(req.WithContext(ctx))
	if err != nil {
		Metrics.UpstreamErrors.Add(1)
		return nil, errors.Annotatef(ErrUpstream, "http.Get: %v", err)
	}
	defer resp.Body.Close()

	body, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		Metrics.UpstreamErrors.Add(1)
		return nil, errors.Annotatef(ErrUpstream, "ioutil.ReadAll: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		Metrics.UpstreamErrors.Add(1)
		return nil, errors.Annotatef(ErrUpstream, "status %d: %s", resp.StatusCode, truncate(body, 200))
	}
	if check != nil {
		if err := check(body); err != nil {
			Metrics.UpstreamErrors.Add(1)
			return nil, err
		}
	}

	log.WithFields(log.Fields{"url": redact(u), "bytes": len(body)}).Debug("Fetched upstream response")
	f.cache.Set(u, body, f.expire)
	return body, nil
}

// redact hides the api key before a URL reaches the logs.
func redact(u string) string {
	parsed, err := url.Parse(u)
	if err != nil {
		return u
	}
	q := parsed.Query()
	if q.Get("apikey") != "" {
		q.Set("apikey", masker.Password(q.Get("apikey")))
		parsed.RawQuery = q.Encode()
	}
	return parsed.String()
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return fmt.Sprintf("%s...", b[:n])
}

func sortPoints(points []series.Point) {
	sort.SliceStable(points, func(i, j int) bool { return points[i].Time.Before(points[j].Time) })
}
