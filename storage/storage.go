// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package storage keeps the history of computed daily medians.
package storage

import (
	"github.com/juju/errors"

	"github.com/signal18/pricemedian/series"
)

var ErrNoRowsFound = errors.New("no results")

// Record is one stored daily median.
type Record struct {
	Symbol  string  `db:"symbol"`
	Day     string  `db:"day"`
	Median  float64 `db:"median"`
	Count   int     `db:"count"`
	Mean    float64 `db:"mean"`
	Stddev  float64 `db:"stddev"`
	Min     float64 `db:"min"`
	Max     float64 `db:"max"`
	Updated string  `db:"updated"`
}

func NewRecord(symbol string, r series.Result) Record {
	return Record{
		Symbol: symbol,
		Day:    string(r.Key),
		Median: r.Median,
		Count:  r.Count,
		Mean:   r.Mean,
		Stddev: r.Stddev,
		Min:    r.Min,
		Max:    r.Max,
	}
}

func (r Record) Result() series.Result {
	return series.Result{
		Key:    series.Key(r.Day),
		Median: r.Median,
		Count:  r.Count,
		Mean:   r.Mean,
		Stddev: r.Stddev,
		Min:    r.Min,
		Max:    r.Max,
	}
}

// Query selects the records of a symbol. From and Until are inclusive date
// keys, empty means unbounded. Limit 0 returns everything.
type Query struct {
	Symbol string
	From   string
	Until  string
	Limit  int
}

type MedianStorage interface {
	Close() error
	Store(symbol string, results []series.Result) error
	Search(q Query) ([]Record, error)
	Symbols() ([]string, error)
}
