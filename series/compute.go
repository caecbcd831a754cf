// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package series

import (
	"context"
	"math"
	"runtime"
	"sort"
	"sync"

	"github.com/dgryski/go-onlinestats"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/median"
)

// Result is the median of one key together with a few running statistics.
type Result struct {
	Key    Key      `json:"date" yaml:"date"`
	Median float64  `json:"median" yaml:"median"`
	Count  int      `json:"count" yaml:"count"`
	Mean   float64  `json:"mean" yaml:"mean"`
	Stddev float64  `json:"stddev" yaml:"stddev"`
	Min    float64  `json:"min" yaml:"min"`
	Max    float64  `json:"max" yaml:"max"`
	Exact  *float64 `json:"exact,omitempty" yaml:"exact,omitempty"`
}

// Options tune Compute.
type Options struct {
	// MaxConcurrency bounds the keys processed at once, 0 means NumCPU.
	MaxConcurrency int
	// Verify also selects the exact median and logs a warning on mismatch.
	Verify bool
}

type limiter chan struct{}

func (l limiter) enter() { l <- struct{}{} }
func (l limiter) leave() { <-l }

func newLimiter(l int) limiter {
	if l <= 0 {
		l = runtime.NumCPU()
	}
	return make(chan struct{}, l)
}

// Summarize feeds values one by one into a fresh estimator.
func Summarize(key Key, values []float64) (Result, error) {
	if err := Validate(key, values); err != nil {
		return Result{}, err
	}

	est := median.NewStream()
	stats := onlinestats.NewRunning()
	r := Result{Key: key, Min: math.Inf(1), Max: math.Inf(-1)}
	for _, v := range values {
		est.Push(v)
		stats.Push(v)
		if v < r.Min {
			r.Min = v
		}
		if v > r.Max {
			r.Max = v
		}
	}

	m, err := est.Median()
	if err != nil {
		return Result{}, errors.Annotatef(err, "median of %q", string(key))
	}
	r.Median = m
	r.Count = est.Len()
	r.Mean = stats.Mean()
	if stats.Len() > 1 {
		r.Stddev = stats.Stddev()
	}
	return r, nil
}

// Compute runs one estimator per key of ds, in parallel, and returns the
// results ordered by key. The first failing key aborts the remaining ones.
func Compute(ctx context.Context, ds Dataset, opts Options) ([]Result, error) {
	if len(ds) == 0 {
		return nil, errors.Annotate(ErrInvalidDataset, "no key")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		results  = make([]Result, 0, len(ds))
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	lim := newLimiter(opts.MaxConcurrency)
	for _, key := range ds.Keys() {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		lim.enter()
		go func(key Key, values []float64) {
			defer wg.Done()
			defer lim.leave()
			if ctx.Err() != nil {
				return
			}

			r, err := Summarize(key, values)
			if err != nil {
				fail(err)
				return
			}
			if opts.Verify {
				if err := verify(&r, values); err != nil {
					fail(err)
					return
				}
			}

			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}(key, ds[key])
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Trace(err)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Key < results[j].Key })
	return results, nil
}

func verify(r *Result, values []float64) error {
	exact, err := ExactMedian(values)
	if err != nil {
		return errors.Annotatef(err, "exact median of %q", string(r.Key))
	}
	r.Exact = &exact
	if exact != r.Median && !(math.IsNaN(exact) && math.IsNaN(r.Median)) {
		log.WithFields(log.Fields{
			"module": "series",
			"key":    string(r.Key),
			"stream": r.Median,
			"exact":  exact,
		}).Warn("Streaming median differs from exact selection")
	}
	return nil
}
