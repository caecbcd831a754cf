// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

package source

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gwenn/yacr"
	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/series"
)

var csvLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// CSV reads timestamp,value rows from a file. The symbol is ignored, the
// file holds a single series. Path "-" reads stdin.
type CSV struct {
	Path string
}

func (c *CSV) Fetch(ctx context.Context, symbol string) ([]series.Point, error) {
	if c.Path == "-" {
		return ReadCSV(os.Stdin)
	}
	f, err := os.Open(c.Path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses timestamp,value records. A first line whose value is not a
// number is taken as a header. Lines starting with # are skipped, as are
// rows with an empty value.
func ReadCSV(r io.Reader) ([]series.Point, error) {
	reader := yacr.DefaultReader(r)
	reader.Trim = true
	reader.Comment = '#'

	var points []series.Point
	for first := true; ; first = false {
		var ts, raw string
		n, err := reader.ScanRecord(&ts, &raw)
		if err != nil {
			return nil, errors.Annotatef(err, "csv line %d", reader.LineNumber())
		}
		if n == 0 {
			break
		}
		if n < 2 {
			return nil, errors.NotValidf("csv line %d: want timestamp,value", reader.LineNumber())
		}
		if raw == "" {
			continue
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if first {
				log.WithFields(log.Fields{"header": ts + "," + raw}).Debug("Skipping csv header")
				continue
			}
			return nil, errors.NotValidf("csv line %d: value %q", reader.LineNumber(), raw)
		}
		t, err := parseTimestamp(ts)
		if err != nil {
			return nil, errors.Annotatef(err, "csv line %d", reader.LineNumber())
		}
		points = append(points, series.Point{Time: t, Value: v})
	}
	if len(points) == 0 {
		return nil, errors.Annotate(ErrNoData, "csv: no rows")
	}
	sortPoints(points)
	return points, nil
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range csvLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	if !strings.ContainsAny(s, "-:") {
		if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Unix(secs, 0).UTC(), nil
		}
	}
	return time.Time{}, errors.NotValidf("timestamp %q", s)
}
