// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package report turns a symbol into its daily medians: fetch, window,
// group, reduce, then optionally store and publish.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/carbon"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/series"
	"github.com/signal18/pricemedian/source"
	"github.com/signal18/pricemedian/storage"
)

// Publisher receives every computed report.
type Publisher interface {
	Publish(symbol string, results []series.Result) error
}

type Report struct {
	ID        uuid.UUID       `json:"id" yaml:"id"`
	Symbol    string          `json:"symbol" yaml:"symbol"`
	Generated time.Time       `json:"generated" yaml:"generated"`
	From      time.Time       `json:"from,omitempty" yaml:"from,omitempty"`
	Points    int             `json:"points" yaml:"points"`
	Results   []series.Result `json:"medians" yaml:"medians"`
}

type Builder struct {
	Source    source.Source
	Store     storage.MedianStorage
	Publisher Publisher
	Options   series.Options
	// Window returns the oldest point kept for a run started at now.
	Window func(now time.Time) (time.Time, error)

	now func() time.Time
}

// NewBuilder wires the source, history and carbon publisher described by conf.
func NewBuilder(conf config.Config) (*Builder, error) {
	src, err := source.New(conf)
	if err != nil {
		return nil, err
	}
	b := &Builder{
		Source:  src,
		Options: series.Options{MaxConcurrency: conf.MaxConcurrency, Verify: conf.Verify},
		Window:  conf.WindowStart,
	}

	if conf.DbPath != "" {
		st, err := storage.NewSQLiteStorage(conf.DbPath)
		if err != nil {
			return nil, err
		}
		b.Store = st
	}

	if conf.Publish {
		c, err := carbon.New(conf.CarbonProtocol, conf.CarbonHost, conf.CarbonPort, conf.CarbonPrefix)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.Publisher = c
	}
	return b, nil
}

// Close releases the history database and the carbon connection.
func (b *Builder) Close() error {
	var err error
	if b.Store != nil {
		err = b.Store.Close()
	}
	if c, ok := b.Publisher.(*carbon.Client); ok {
		if cerr := c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func (b *Builder) clock() time.Time {
	if b.now != nil {
		return b.now()
	}
	return time.Now()
}

// Build computes the daily medians of symbol. A failure to publish is logged
// and counted, a failure to store fails the build.
func (b *Builder) Build(ctx context.Context, symbol string) (*Report, error) {
	start := time.Now()
	r, err := b.build(ctx, symbol)
	buildSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		reportsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	reportsTotal.WithLabelValues("ok").Inc()
	return r, nil
}

func (b *Builder) build(ctx context.Context, symbol string) (*Report, error) {
	now := b.clock()
	r := &Report{ID: uuid.New(), Symbol: symbol, Generated: now.UTC()}
	logger := log.WithFields(log.Fields{"symbol": symbol, "report": r.ID.String()})

	points, err := b.Source.Fetch(ctx, symbol)
	if err != nil {
		return nil, errors.Annotatef(err, "fetch %s", symbol)
	}

	if b.Window != nil {
		from, err := b.Window(now)
		if err != nil {
			return nil, err
		}
		r.From = from
		points = series.Since(points, from)
	}
	r.Points = len(points)
	pointsGauge.WithLabelValues(symbol).Set(float64(len(points)))

	results, err := series.Compute(ctx, series.Group(points, nil), b.Options)
	if err != nil {
		return nil, errors.Annotatef(err, "compute %s", symbol)
	}
	r.Results = results
	logger.WithFields(log.Fields{"points": r.Points, "days": len(results)}).Info("Computed daily medians")

	if b.Store != nil {
		if err := b.Store.Store(symbol, results); err != nil {
			return nil, err
		}
	}

	if b.Publisher != nil {
		if err := b.Publisher.Publish(symbol, results); err != nil {
			publishErrors.Inc()
			logger.WithError(err).Warn("Could not publish medians")
		}
	}
	return r, nil
}

// History returns the stored medians of symbol between the from and until
// date keys, both inclusive and optional.
func (b *Builder) History(symbol, from, until string) ([]series.Result, error) {
	if b.Store == nil {
		return nil, errors.NotSupportedf("history without db-path")
	}
	for _, k := range []string{from, until} {
		if k == "" {
			continue
		}
		if _, err := series.Key(k).Time(); err != nil {
			return nil, errors.NewNotValid(err, "history bound")
		}
	}

	records, err := b.Store.Search(storage.Query{Symbol: symbol, From: from, Until: until})
	if err != nil {
		return nil, err
	}
	results := make([]series.Result, len(records))
	for i, rec := range records {
		results[i] = rec.Result()
	}
	return results, nil
}
