// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package config

import (
	"errors"
	"math"
	"strconv"
)

var (
	errUnknownTimeUnits = errors.New("unknown time units")
	errIntervalRange    = errors.New("interval out of range")
)

// IntervalString converts a sign and string into a number of seconds. The
// total must fit in an int32, about 68 years.
func IntervalString(s string, defaultSign int) (int32, error) {
	if s == "" {
		return 0, errUnknownTimeUnits
	}

	sign := defaultSign

	switch s[0] {
	case '-':
		sign = -1
		s = s[1:]
	case '+':
		sign = 1
		s = s[1:]
	}

	var totalInterval int64
	for len(s) > 0 {
		var j int
		for j < len(s) && '0' <= s[j] && s[j] <= '9' {
			j++
		}
		var offsetStr string
		offsetStr, s = s[:j], s[j:]

		j = 0
		for j < len(s) && (s[j] < '0' || '9' < s[j]) {
			j++
		}
		var unitStr string
		unitStr, s = s[:j], s[j:]

		var units int64
		switch unitStr {
		case "s", "sec", "secs", "second", "seconds":
			units = 1
		case "min", "mins", "minute", "minutes":
			units = 60
		case "h", "hour", "hours":
			units = 60 * 60
		case "d", "day", "days":
			units = 24 * 60 * 60
		case "w", "week", "weeks":
			units = 7 * 24 * 60 * 60
		case "mon", "month", "months":
			units = 30 * 24 * 60 * 60
		case "y", "year", "years":
			units = 365 * 24 * 60 * 60
		default:
			return 0, errUnknownTimeUnits
		}

		offset, err := strconv.ParseInt(offsetStr, 10, 32)
		if err != nil {
			return 0, err
		}
		totalInterval += int64(sign) * offset * units
		if totalInterval > math.MaxInt32 || totalInterval < math.MinInt32 {
			return 0, errIntervalRange
		}
	}

	return int32(totalInterval), nil
}
