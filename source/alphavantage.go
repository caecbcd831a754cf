// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

package source

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/series"
)

const (
	avFunction      = "TIME_SERIES_INTRADAY"
	avTimeLayout    = "2006-01-02 15:04:05"
	avCloseField    = "4. close"
	avTimeZoneField = "6. Time Zone"
)

// AlphaVantage reads the intraday closing prices of the Alpha Vantage API.
type AlphaVantage struct {
	BaseURL    string
	ApiKey     string
	Interval   string
	OutputSize string

	fetcher *fetcher
}

// NewAlphaVantage returns an uncached client.
func NewAlphaVantage(baseURL, apiKey, interval, outputSize string, timeout time.Duration) *AlphaVantage {
	return &AlphaVantage{
		BaseURL:    baseURL,
		ApiKey:     apiKey,
		Interval:   interval,
		OutputSize: outputSize,
		fetcher:    newFetcher(timeout, nil, 0),
	}
}

// URL is the query of the intraday series of symbol.
func (av *AlphaVantage) URL(symbol string) string {
	v := url.Values{
		"function":   []string{avFunction},
		"symbol":     []string{symbol},
		"interval":   []string{av.Interval},
		"outputsize": []string{av.OutputSize},
		"apikey":     []string{av.ApiKey},
	}
	return strings.TrimRight(av.BaseURL, "/") + "/query?" + v.Encode()
}

func (av *AlphaVantage) seriesField() string {
	return "Time Series (" + av.Interval + ")"
}

// checkBody rejects the error and throttling notes the API answers with a 200.
func (av *AlphaVantage) checkBody(body []byte) error {
	for _, field := range []string{"Error Message", "Note", "Information"} {
		if msg, err := jsonparser.GetString(body, field); err == nil {
			return errors.Annotatef(ErrUpstream, "alphavantage: %s", msg)
		}
	}
	if _, dt, _, err := jsonparser.Get(body, av.seriesField()); err != nil || dt != jsonparser.Object {
		return errors.Annotatef(ErrNoData, "alphavantage: no %q object", av.seriesField())
	}
	return nil
}

// Fetch returns the closing prices of symbol, oldest first.
func (av *AlphaVantage) Fetch(ctx context.Context, symbol string) ([]series.Point, error) {
	if symbol == "" {
		return nil, errors.NotValidf("empty symbol")
	}
	body, err := av.fetcher.get(ctx, av.URL(symbol), av.checkBody)
	if err != nil {
		return nil, err
	}
	return av.parse(body)
}

func (av *AlphaVantage) parse(body []byte) ([]series.Point, error) {
	loc := time.UTC
	if tz, err := jsonparser.GetString(body, "Meta Data", avTimeZoneField); err == nil {
		if l, err := time.LoadLocation(tz); err == nil {
			loc = l
		} else {
			log.WithFields(log.Fields{"zone": tz}).Debug("Unknown time zone, using UTC")
		}
	}

	var points []series.Point
	err := jsonparser.ObjectEach(body, func(key []byte, value []byte, dataType jsonparser.ValueType, offset int) error {
		t, err := time.ParseInLocation(avTimeLayout, string(key), loc)
		if err != nil {
			return errors.Annotatef(err, "timestamp %q", key)
		}
		raw, err := jsonparser.GetString(value, avCloseField)
		if err != nil {
			return errors.Annotatef(err, "%s at %s", avCloseField, key)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return errors.Annotatef(err, "%s at %s", avCloseField, key)
		}
		points = append(points, series.Point{Time: t, Value: v})
		return nil
	}, av.seriesField())
	if err != nil {
		return nil, errors.Trace(err)
	}
	if len(points) == 0 {
		return nil, errors.Annotatef(ErrNoData, "alphavantage: empty %q", av.seriesField())
	}
	sortPoints(points)
	return points, nil
}
