// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

package chart

import (
	"image/color"
	"strconv"
	"strings"

	"github.com/juju/errors"
)

var colors = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xff},
	"white":  {0xff, 0xff, 0xff, 0xff},
	"red":    {0xff, 0x00, 0x00, 0xff},
	"green":  {0x00, 0xc8, 0x00, 0xff},
	"blue":   {0x64, 0x64, 0xff, 0xff},
	"orange": {0xf5, 0x59, 0x05, 0xff},
	"gray":   {0x80, 0x80, 0x80, 0xff},
	"grey":   {0x80, 0x80, 0x80, 0xff},
}

// ParseColor accepts a color name or a #rgb, #rrggbb or #rrggbbaa string.
func ParseColor(s string) (color.RGBA, error) {
	if c, ok := colors[strings.ToLower(s)]; ok {
		return c, nil
	}

	h := strings.TrimPrefix(s, "#")
	if len(h) == 3 {
		h = h[:1] + h[:1] + h[1:2] + h[1:2] + h[2:] + h[2:]
	}

	rgb, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.RGBA{}, errors.NotValidf("color %q", s)
	}
	switch len(h) {
	case 6:
		return color.RGBA{uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb), 0xff}, nil
	case 8:
		return color.RGBA{uint8(rgb >> 24), uint8(rgb >> 16), uint8(rgb >> 8), uint8(rgb)}, nil
	}
	return color.RGBA{}, errors.NotValidf("color %q", s)
}
