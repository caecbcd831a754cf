// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package series

import (
	"sort"
	"time"

	"github.com/juju/errors"
)

// ErrInvalidDataset is the cause of every error returned for a missing or
// empty sequence of observations.
var ErrInvalidDataset = errors.New("dataset is illegal")

// KeyLayout is the layout of a date grouping key.
const KeyLayout = "2006-01-02"

// Point is a single observation.
type Point struct {
	Time  time.Time
	Value float64
}

// Key identifies the group a point belongs to.
type Key string

// DateKey returns the calendar date of t as read on its own wall clock.
func DateKey(t time.Time) Key {
	return Key(t.Format(KeyLayout))
}

// Time parses a date key back to midnight UTC.
func (k Key) Time() (time.Time, error) {
	t, err := time.Parse(KeyLayout, string(k))
	if err != nil {
		return time.Time{}, errors.Annotatef(err, "key %q", string(k))
	}
	return t, nil
}

// Dataset maps a grouping key to the values observed under it.
type Dataset map[Key][]float64

// Keys returns the dataset keys in ascending order.
func (ds Dataset) Keys() []Key {
	keys := make([]Key, 0, len(ds))
	for k := range ds {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Group buckets points by the key returned by keyFn, keeping point order
// within a bucket. A nil keyFn groups by DateKey.
func Group(points []Point, keyFn func(time.Time) Key) Dataset {
	if keyFn == nil {
		keyFn = DateKey
	}
	ds := Dataset{}
	for _, p := range points {
		k := keyFn(p.Time)
		ds[k] = append(ds[k], p.Value)
	}
	return ds
}

// Since drops the points older than from. A zero from keeps everything.
func Since(points []Point, from time.Time) []Point {
	if from.IsZero() {
		return points
	}
	kept := points[:0:0]
	for _, p := range points {
		if !p.Time.Before(from) {
			kept = append(kept, p)
		}
	}
	return kept
}

// Validate rejects a missing or empty sequence before it reaches an estimator.
func Validate(key Key, values []float64) error {
	if len(values) == 0 {
		return errors.Annotatef(ErrInvalidDataset, "no observation for %q", string(key))
	}
	return nil
}
