// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

package source

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/buger/jsonparser"
	"github.com/juju/errors"

	"github.com/signal18/pricemedian/series"
)

// Graphite reads a price series from a graphite render API.
type Graphite struct {
	BaseURL string
	// Target is a metric name where %s stands for the symbol.
	Target string
	From   string

	fetcher *fetcher
}

// NewGraphite returns an uncached client.
func NewGraphite(baseURL, target, from string, timeout time.Duration) *Graphite {
	return &Graphite{BaseURL: baseURL, Target: target, From: from, fetcher: newFetcher(timeout, nil, 0)}
}

// URL is the render query of the series of symbol.
func (g *Graphite) URL(symbol string) string {
	v := url.Values{
		"target": []string{strings.Replace(g.Target, "%s", symbol, -1)},
		"format": []string{"json"},
	}
	if g.From != "" {
		v.Set("from", g.From)
	}
	return strings.TrimRight(g.BaseURL, "/") + "/render/?" + v.Encode()
}

// Fetch returns the non null datapoints of the first returned series.
func (g *Graphite) Fetch(ctx context.Context, symbol string) ([]series.Point, error) {
	if symbol == "" {
		return nil, errors.NotValidf("empty symbol")
	}
	body, err := g.fetcher.get(ctx, g.URL(symbol), nil)
	if err != nil {
		return nil, err
	}
	return parseRender(body)
}

func parseRender(body []byte) ([]series.Point, error) {
	datapoints, dt, _, err := jsonparser.Get(body, "[0]", "datapoints")
	if err == jsonparser.KeyPathNotFoundError {
		return nil, errors.Annotate(ErrNoData, "graphite: no series")
	}
	if err != nil || dt != jsonparser.Array {
		return nil, errors.Annotatef(ErrUpstream, "graphite: malformed render response: %v", err)
	}

	var points []series.Point
	var perr error
	_, err = jsonparser.ArrayEach(datapoints, func(value []byte, dataType jsonparser.ValueType, offset int, err error) {
		if perr != nil {
			return
		}
		raw, vt, _, err := jsonparser.Get(value, "[0]")
		if err != nil {
			perr = errors.Annotate(err, "graphite: datapoint value")
			return
		}
		if vt == jsonparser.Null {
			return
		}
		v, err := jsonparser.ParseFloat(raw)
		if err != nil {
			perr = errors.Annotate(err, "graphite: datapoint value")
			return
		}
		ts, err := jsonparser.GetInt(value, "[1]")
		if err != nil {
			perr = errors.Annotate(err, "graphite: datapoint timestamp")
			return
		}
		points = append(points, series.Point{Time: time.Unix(ts, 0).UTC(), Value: v})
	})
	if err != nil {
		return nil, errors.Trace(err)
	}
	if perr != nil {
		return nil, perr
	}
	if len(points) == 0 {
		return nil, errors.Annotate(ErrNoData, "graphite: only null datapoints")
	}
	sortPoints(points)
	return points, nil
}
