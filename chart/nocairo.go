// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

//go:build !cairo
// +build !cairo

package chart

import "github.com/signal18/pricemedian/series"

const HaveGraphSupport = false

func MarshalPNG(symbol string, results []series.Result, opts Options) ([]byte, error) {
	return nil, ErrNoGraphSupport
}

func MarshalSVG(symbol string, results []series.Result, opts Options) ([]byte, error) {
	return nil, ErrNoGraphSupport
}
