// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package api serves daily medians over HTTP.
package api

import (
	"context"
	"encoding/json"
	"expvar"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/NYTimes/gziphandler"
	"github.com/codegangsta/negroni"
	"github.com/dgryski/httputil"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/juju/errors"
	"github.com/peterbourgon/g2g"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/chart"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/httplog"
	"github.com/signal18/pricemedian/report"
	"github.com/signal18/pricemedian/series"
	"github.com/signal18/pricemedian/source"
	"github.com/signal18/pricemedian/storage"
)

// Metrics contains exported counters of the API.
var Metrics = struct {
	Requests        *expvar.Int
	MedianRequests  *expvar.Int
	HistoryRequests *expvar.Int
	Errors          *expvar.Int
}{
	Requests:        expvar.NewInt("api_requests"),
	MedianRequests:  expvar.NewInt("api_median_requests"),
	HistoryRequests: expvar.NewInt("api_history_requests"),
	Errors:          expvar.NewInt("api_errors"),
}

var (
	requestSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pricemedian_http_request_seconds",
			Help:    "API request latency, by route",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	initOnce sync.Once
)

func initMetrics() {
	initOnce.Do(func() {
		report.InitMetrics()
		prometheus.MustRegister(requestSeconds)
		httputil.PublishTrackedConnections("api_connections")
	})
}

// BuildVersion is provided to be overridden at build time. Eg. go build -ldflags -X 'github.com/signal18/pricemedian/api.BuildVersion=...'
var BuildVersion = "(development build)"

const (
	contentTypeJSON  = "application/json"
	contentTypeYAML  = "application/x-yaml"
	contentTypeRaw   = "text/plain"
	contentTypePNG   = "image/png"
	contentTypeCSV   = "text/csv"
	contentTypeSVG   = "image/svg+xml"
	shutdownDeadline = 5 * time.Second
	logBufferSize    = 200
)

type Route struct {
	Path    string
	Handler http.HandlerFunc
}

type Server struct {
	Conf         config.Config
	Builder      *report.Builder
	ChartOptions chart.Options
	Log          *httplog.HttpLog
	// Logger receives the access log at debug level and feeds Log.
	Logger *log.Logger

	accessLog *io.PipeWriter
}

func New(conf config.Config, builder *report.Builder) *Server {
	return &Server{
		Conf:    conf,
		Builder: builder,
		ChartOptions: chart.Options{
			Width:  conf.ChartWidth,
			Height: conf.ChartHeight,
			Title:  conf.ChartTitle,
			Color:  conf.ChartColor,
		},
		Log:    httplog.NewHttpLog(logBufferSize, log.InfoLevel),
		Logger: log.StandardLogger(),
	}
}

func (s *Server) routes() []Route {
	return []Route{
		{"/api/medians/{symbol}", s.handlerMuxMedians},
		{"/api/history/{symbol}", s.handlerMuxHistory},
		{"/api/symbols", s.handlerMuxSymbols},
		{"/api/log", s.handlerMuxLog},
	}
}

func routeParser(router *mux.Router, routes []Route) {
	for _, route := range routes {
		path := route.Path
		h := httputil.TrackConnections(httputil.TimeHandler(route.Handler, func(r *http.Request, t time.Duration) {
			requestSeconds.WithLabelValues(path).Observe(t.Seconds())
		}))
		router.Handle(path, negroni.New(
			negroni.NewRecovery(),
			negroni.Wrap(gziphandler.GzipHandler(h)),
		)).Methods("GET")
	}
}

// Handler returns the API with its access log, CORS and metrics endpoints.
func (s *Server) Handler() http.Handler {
	initMetrics()

	router := mux.NewRouter()
	routeParser(router, s.routes())

	router.HandleFunc("/version", versionHandler)
	router.HandleFunc("/lb_check", lbcheckHandler)
	router.Handle("/metrics", promhttp.Handler())
	router.Handle("/debug/vars", expvar.Handler())

	var handler http.Handler = router
	handler = handlers.CORS()(handler)
	if s.accessLog == nil {
		s.accessLog = s.logger().WriterLevel(log.DebugLevel)
	}
	handler = handlers.CombinedLoggingHandler(s.accessLog, handler)
	return handler
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.registerGraphite()
	s.logger().AddHook(s.Log)
	defer s.closeAccessLog()

	srv := &http.Server{
		Addr:    s.Conf.HttpBind,
		Handler: s.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"bind": s.Conf.HttpBind, "version": BuildVersion}).Info("Starting HTTP API")
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Trace(err)
	case <-ctx.Done():
	}

	log.Info("Stopping HTTP API")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	return errors.Trace(srv.Shutdown(sctx))
}

func (s *Server) logger() *log.Logger {
	if s.Logger == nil {
		s.Logger = log.StandardLogger()
	}
	return s.Logger
}

func (s *Server) closeAccessLog() {
	if s.accessLog != nil {
		s.accessLog.Close()
		s.accessLog = nil
	}
}

// registerGraphite pushes the expvar counters to a graphite host.
func (s *Server) registerGraphite() {
	host := s.Conf.StatsGraphiteHost
	if host == "" {
		return
	}
	interval := time.Duration(s.Conf.StatsInterval) * time.Second
	if interval <= 0 {
		interval = 60 * time.Second
	}
	log.WithFields(log.Fields{"host": host, "interval": interval}).Info("Using graphite host for own counters")

	graphite := g2g.NewGraphite(host, interval, 10*time.Second)

	hostname, _ := os.Hostname()
	hostname = strings.Replace(hostname, ".", "_", -1)

	graphite.Register(fmt.Sprintf("pricemedian.%s.requests", hostname), Metrics.Requests)
	graphite.Register(fmt.Sprintf("pricemedian.%s.median_requests", hostname), Metrics.MedianRequests)
	graphite.Register(fmt.Sprintf("pricemedian.%s.history_requests", hostname), Metrics.HistoryRequests)
	graphite.Register(fmt.Sprintf("pricemedian.%s.errors", hostname), Metrics.Errors)

	graphite.Register(fmt.Sprintf("pricemedian.%s.source_requests", hostname), source.Metrics.Requests)
	graphite.Register(fmt.Sprintf("pricemedian.%s.source_cache_hits", hostname), source.Metrics.CacheHits)
	graphite.Register(fmt.Sprintf("pricemedian.%s.source_upstream_errors", hostname), source.Metrics.UpstreamErrors)
	graphite.Register(fmt.Sprintf("pricemedian.%s.memcache_timeouts", hostname), source.Metrics.MemcacheTimeouts)
}

func writeResponse(w http.ResponseWriter, b []byte, format string) {
	switch format {
	case "", chart.FormatJSON:
		w.Header().Set("Content-Type", contentTypeJSON)
	case chart.FormatYAML:
		w.Header().Set("Content-Type", contentTypeYAML)
	case chart.FormatCSV:
		w.Header().Set("Content-Type", contentTypeCSV)
	case chart.FormatTable:
		w.Header().Set("Content-Type", contentTypeRaw)
	case chart.FormatPNG:
		w.Header().Set("Content-Type", contentTypePNG)
	case chart.FormatSVG:
		w.Header().Set("Content-Type", contentTypeSVG)
	}
	w.Write(b)
}

// httpStatus maps an error cause to the status returned to the client.
func httpStatus(err error) int {
	cause := errors.Cause(err)
	switch {
	case errors.IsNotValid(err), cause == series.ErrInvalidDataset:
		return http.StatusBadRequest
	case cause == source.ErrNoData, cause == storage.ErrNoRowsFound:
		return http.StatusNotFound
	case cause == source.ErrUpstream:
		return http.StatusBadGateway
	case errors.IsNotSupported(err), cause == chart.ErrNoGraphSupport:
		return http.StatusNotImplemented
	case cause == context.DeadlineExceeded:
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	Metrics.Errors.Add(1)
	status := httpStatus(err)
	log.WithFields(log.Fields{"uri": r.RequestURI, "status": status}).WithError(err).Warn("Request failed")
	http.Error(w, http.StatusText(status)+": "+err.Error(), status)
}

func formatParam(r *http.Request) (string, error) {
	format := r.FormValue("format")
	if format == "" {
		return chart.FormatJSON, nil
	}
	for _, f := range chart.Formats {
		if f == format {
			return format, nil
		}
	}
	return "", errors.NotValidf("format %q", format)
}

// swagger:route GET /api/medians/{symbol} medians
//
//     Responses:
//       200: medians

func (s *Server) handlerMuxMedians(w http.ResponseWriter, r *http.Request) {
	Metrics.Requests.Add(1)
	Metrics.MedianRequests.Add(1)

	symbol := mux.Vars(r)["symbol"]
	format, err := formatParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rep, err := s.Builder.Build(r.Context(), symbol)
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := chart.Marshal(format, symbol, rep.Results, s.ChartOptions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("X-Report-Id", rep.ID.String())
	writeResponse(w, b, format)
}

// swagger:route GET /api/history/{symbol} history
//
//     Responses:
//       200: medians

func (s *Server) handlerMuxHistory(w http.ResponseWriter, r *http.Request) {
	Metrics.Requests.Add(1)
	Metrics.HistoryRequests.Add(1)

	symbol := mux.Vars(r)["symbol"]
	format, err := formatParam(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	results, err := s.Builder.History(symbol, r.FormValue("from"), r.FormValue("until"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	b, err := chart.Marshal(format, symbol, results, s.ChartOptions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, b, format)
}

// swagger:route GET /api/symbols symbols
//
//     Responses:
//       200: symbols

func (s *Server) handlerMuxSymbols(w http.ResponseWriter, r *http.Request) {
	Metrics.Requests.Add(1)

	if s.Builder.Store == nil {
		writeError(w, r, errors.NotSupportedf("symbols without db-path"))
		return
	}
	symbols, err := s.Builder.Store.Symbols()
	if err != nil {
		writeError(w, r, err)
		return
	}
	b, err := json.Marshal(symbols)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, b, chart.FormatJSON)
}

// swagger:route GET /api/log log
//
//     Responses:
//       200: log

func (s *Server) handlerMuxLog(w http.ResponseWriter, r *http.Request) {
	Metrics.Requests.Add(1)

	b, err := json.Marshal(s.Log.Messages())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeResponse(w, b, chart.FormatJSON)
}

func lbcheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Ok\n"))
}

func versionHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte(BuildVersion + "\n"))
}
