// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package report

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	reportsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pricemedian_reports_total",
			Help: "Median reports built, by outcome",
		},
		[]string{"outcome"},
	)

	buildSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pricemedian_report_build_seconds",
			Help:    "Time spent fetching and reducing one symbol",
			Buckets: prometheus.DefBuckets,
		},
	)

	pointsGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pricemedian_points",
			Help: "Price points reduced in the last report of a symbol",
		},
		[]string{"symbol"},
	)

	publishErrors = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pricemedian_publish_errors_total",
			Help: "Failed carbon publications",
		},
	)

	registerOnce sync.Once
)

// InitMetrics registers the report collectors on the default registry.
func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(reportsTotal)
		prometheus.MustRegister(buildSeconds)
		prometheus.MustRegister(pointsGauge)
		prometheus.MustRegister(publishErrors)
	})
}
