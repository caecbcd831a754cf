// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <stephane@mariadb.com>
// This source code is licensed under the GNU General Public License, version 3.

//go:build cairo
// +build cairo

package chart

import (
	"bytes"
	"image/color"
	"io/ioutil"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/evmar/gocairo/cairo"
	"github.com/juju/errors"

	"github.com/signal18/pricemedian/series"
)

const HaveGraphSupport = true

type backend int

const (
	backendPNG backend = iota
	backendSVG
)

const (
	dateLabelLayout = "Jan 2, 2006"
	margin          = 60.0
	gridLines       = 5
	pointSize       = 6.0
)

var (
	bgColor   = color.RGBA{0xff, 0xff, 0xff, 0xff}
	gridColor = color.RGBA{0x00, 0x00, 0x00, 0xff}
	textColor = color.RGBA{0x00, 0x00, 0x00, 0xff}
)

func MarshalPNG(symbol string, results []series.Result, opts Options) ([]byte, error) {
	return marshalCairo(backendPNG, symbol, results, opts)
}

func MarshalSVG(symbol string, results []series.Result, opts Options) ([]byte, error) {
	return marshalCairo(backendSVG, symbol, results, opts)
}

type area struct {
	xmin, xmax, ymin, ymax float64
}

type plotPoint struct {
	t time.Time
	v float64
}

func marshalCairo(be backend, symbol string, results []series.Result, opts Options) ([]byte, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.NotValidf("chart size %dx%d", opts.Width, opts.Height)
	}
	lineColor, err := ParseColor(opts.Color)
	if err != nil {
		return nil, err
	}

	points := make([]plotPoint, 0, len(results))
	for _, r := range results {
		if math.IsNaN(r.Median) || math.IsInf(r.Median, 0) {
			continue
		}
		t, err := r.Key.Time()
		if err != nil {
			return nil, err
		}
		points = append(points, plotPoint{t, r.Median})
	}

	width, height := float64(opts.Width), float64(opts.Height)

	var surface *cairo.Surface
	var tmpfile *os.File
	switch be {
	case backendSVG:
		tmpfile, err = ioutil.TempFile("", "pricemedian-svg")
		if err != nil {
			return nil, errors.Trace(err)
		}
		tmpfile.Close()
		defer os.Remove(tmpfile.Name())
		s := cairo.SVGSurfaceCreate(tmpfile.Name(), width, height)
		surface = s.Surface
	case backendPNG:
		s := cairo.ImageSurfaceCreate(cairo.FormatARGB32, opts.Width, opts.Height)
		surface = s.Surface
	}
	cr := cairo.Create(surface)

	setColor(cr, bgColor)
	cr.Rectangle(0, 0, width, height)
	cr.Fill()

	plot := area{xmin: margin + 20, xmax: width - margin, ymin: margin, ymax: height - margin}

	title := opts.Title
	if symbol != "" {
		title += " - " + symbol
	}
	setColor(cr, textColor)
	cr.SelectFontFace("Sans", cairo.FontSlantNormal, cairo.FontWeightBold)
	cr.SetFontSize(16)
	drawCentered(cr, title, width/2, margin/2)

	cr.SelectFontFace("Sans", cairo.FontSlantNormal, cairo.FontWeightNormal)
	cr.SetFontSize(10)

	lo, hi := valueRange(points)
	drawGrid(cr, plot, lo, hi)
	drawDates(cr, plot, points)
	drawSeries(cr, plot, points, lo, hi, lineColor)

	surface.Flush()

	var b []byte
	switch be {
	case backendPNG:
		var buf bytes.Buffer
		surface.WriteToPNG(&buf)
		surface.Finish()
		b = buf.Bytes()
	case backendSVG:
		surface.Finish()
		b, err = ioutil.ReadFile(tmpfile.Name())
		if err != nil {
			return nil, errors.Trace(err)
		}
	}
	return b, nil
}

func setColor(cr *cairo.Context, c color.RGBA) {
	r, g, b, a := c.RGBA()
	cr.SetSourceRGBA(float64(r)/65536, float64(g)/65536, float64(b)/65536, float64(a)/65536)
}

func drawCentered(cr *cairo.Context, text string, x, y float64) {
	var ext cairo.TextExtents
	cr.TextExtents(text, &ext)
	cr.MoveTo(x-ext.Width/2, y)
	cr.TextPath(text)
	cr.Fill()
}

func drawRight(cr *cairo.Context, text string, x, y float64) {
	var ext cairo.TextExtents
	cr.TextExtents(text, &ext)
	cr.MoveTo(x-ext.Width, y+ext.Height/2)
	cr.TextPath(text)
	cr.Fill()
}

// valueRange pads the median range so a flat series still gets an axis.
func valueRange(points []plotPoint) (float64, float64) {
	if len(points) == 0 {
		return 0, 1
	}
	lo, hi := points[0].v, points[0].v
	for _, p := range points[1:] {
		lo = math.Min(lo, p.v)
		hi = math.Max(hi, p.v)
	}
	if lo == hi {
		return lo - 1, hi + 1
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func yPos(plot area, lo, hi, v float64) float64 {
	return plot.ymax - (v-lo)/(hi-lo)*(plot.ymax-plot.ymin)
}

func xPos(plot area, points []plotPoint, i int) float64 {
	if len(points) < 2 {
		return (plot.xmin + plot.xmax) / 2
	}
	span := points[len(points)-1].t.Sub(points[0].t).Seconds()
	return plot.xmin + points[i].t.Sub(points[0].t).Seconds()/span*(plot.xmax-plot.xmin)
}

func drawGrid(cr *cairo.Context, plot area, lo, hi float64) {
	setColor(cr, gridColor)
	cr.SetLineWidth(0.5)
	for i := 0; i <= gridLines; i++ {
		v := lo + (hi-lo)*float64(i)/gridLines
		y := yPos(plot, lo, hi, v)
		cr.MoveTo(plot.xmin, y)
		cr.LineTo(plot.xmax, y)
		cr.Stroke()
		drawRight(cr, strconv.FormatFloat(v, 'f', 2, 64), plot.xmin-6, y)
	}

	cr.SetLineWidth(1)
	cr.MoveTo(plot.xmin, plot.ymin)
	cr.LineTo(plot.xmin, plot.ymax)
	cr.LineTo(plot.xmax, plot.ymax)
	cr.Stroke()
}

func drawDates(cr *cairo.Context, plot area, points []plotPoint) {
	if len(points) == 0 {
		return
	}
	step := 1
	if maxLabels := int((plot.xmax - plot.xmin) / 90); maxLabels > 0 && len(points) > maxLabels {
		step = (len(points) + maxLabels - 1) / maxLabels
	}
	setColor(cr, textColor)
	for i := 0; i < len(points); i += step {
		drawCentered(cr, points[i].t.Format(dateLabelLayout), xPos(plot, points, i), plot.ymax+18)
	}
}

func drawSeries(cr *cairo.Context, plot area, points []plotPoint, lo, hi float64, c color.RGBA) {
	if len(points) == 0 {
		return
	}
	setColor(cr, c)
	cr.SetLineWidth(2)
	for i, p := range points {
		x, y := xPos(plot, points, i), yPos(plot, lo, hi, p.v)
		if i == 0 {
			cr.MoveTo(x, y)
		} else {
			cr.LineTo(x, y)
		}
	}
	cr.Stroke()

	for i, p := range points {
		x, y := xPos(plot, points, i), yPos(plot, lo, hi, p.v)
		cr.Rectangle(x-pointSize/2, y-pointSize/2, pointSize, pointSize)
		cr.Fill()
	}
}
