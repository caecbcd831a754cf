// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package chart encodes daily medians for people and programs.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/juju/errors"
	"gopkg.in/yaml.v3"

	"github.com/signal18/pricemedian/series"
)

// ErrNoGraphSupport is returned for images by a binary built without cairo.
var ErrNoGraphSupport = errors.New("built without graph support")

const (
	FormatJSON  = "json"
	FormatCSV   = "csv"
	FormatYAML  = "yaml"
	FormatTable = "table"
	FormatPNG   = "png"
	FormatSVG   = "svg"
)

var Formats = []string{FormatJSON, FormatCSV, FormatYAML, FormatTable, FormatPNG, FormatSVG}

// Options describe the rendered image.
type Options struct {
	Width  int
	Height int
	Title  string
	Color  string
}

// DefaultOptions match the historical chart look.
var DefaultOptions = Options{Width: 800, Height: 600, Title: "Stock Price Chart", Color: "#f55905"}

// Marshal encodes the medians of symbol in format.
func Marshal(format, symbol string, results []series.Result, opts Options) ([]byte, error) {
	switch format {
	case "", FormatJSON:
		return MarshalJSON(symbol, results), nil
	case FormatCSV:
		return MarshalCSV(symbol, results), nil
	case FormatYAML:
		return MarshalYAML(symbol, results)
	case FormatTable:
		return MarshalTable(symbol, results), nil
	case FormatPNG:
		return MarshalPNG(symbol, results, opts)
	case FormatSVG:
		return MarshalSVG(symbol, results, opts)
	}
	return nil, errors.NotValidf("format %q", format)
}

func appendFloat(b []byte, v float64) []byte {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return append(b, "null"...)
	}
	return strconv.AppendFloat(b, v, 'f', -1, 64)
}

// MarshalJSON writes non finite values as null.
func MarshalJSON(symbol string, results []series.Result) []byte {
	var b []byte
	b = append(b, `{"symbol":`...)
	b = strconv.AppendQuoteToASCII(b, symbol)
	b = append(b, `,"medians":[`...)

	for i, r := range results {
		if i > 0 {
			b = append(b, ',')
		}
		b = append(b, `{"date":`...)
		b = strconv.AppendQuote(b, string(r.Key))
		b = append(b, `,"median":`...)
		b = appendFloat(b, r.Median)
		b = append(b, `,"count":`...)
		b = strconv.AppendInt(b, int64(r.Count), 10)
		b = append(b, `,"mean":`...)
		b = appendFloat(b, r.Mean)
		b = append(b, `,"stddev":`...)
		b = appendFloat(b, r.Stddev)
		b = append(b, `,"min":`...)
		b = appendFloat(b, r.Min)
		b = append(b, `,"max":`...)
		b = appendFloat(b, r.Max)
		if r.Exact != nil {
			b = append(b, `,"exact":`...)
			b = appendFloat(b, *r.Exact)
		}
		b = append(b, '}')
	}

	b = append(b, "]}"...)
	return b
}

// MarshalCSV writes one symbol,date,median,count line per date. A non finite
// median leaves its field empty.
func MarshalCSV(symbol string, results []series.Result) []byte {
	var b []byte
	for _, r := range results {
		b = append(b, '"')
		b = append(b, symbol...)
		b = append(b, '"')
		b = append(b, ',')
		b = append(b, string(r.Key)...)
		b = append(b, ',')
		if !math.IsNaN(r.Median) && !math.IsInf(r.Median, 0) {
			b = strconv.AppendFloat(b, r.Median, 'f', -1, 64)
		}
		b = append(b, ',')
		b = strconv.AppendInt(b, int64(r.Count), 10)
		b = append(b, '\n')
	}
	return b
}

type yamlDoc struct {
	Symbol  string          `yaml:"symbol"`
	Medians []series.Result `yaml:"medians"`
}

func MarshalYAML(symbol string, results []series.Result) ([]byte, error) {
	b, err := yaml.Marshal(yamlDoc{Symbol: symbol, Medians: results})
	if err != nil {
		return nil, errors.Trace(err)
	}
	return b, nil
}

func commaf(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "-"
	}
	return humanize.Commaf(math.Round(v*1e4) / 1e4)
}

// MarshalTable renders an aligned text table for terminals.
func MarshalTable(symbol string, results []series.Result) []byte {
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(w, "%s\tmedian\tpoints\tmean\tmin\tmax\t\n", symbol)
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			r.Key,
			commaf(r.Median),
			humanize.Comma(int64(r.Count)),
			commaf(r.Mean),
			commaf(r.Min),
			commaf(r.Max),
		)
	}
	w.Flush()
	return buf.Bytes()
}
