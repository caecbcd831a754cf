package api

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/signal18/pricemedian/chart"
	"github.com/signal18/pricemedian/config"
	"github.com/signal18/pricemedian/httplog"
	"github.com/signal18/pricemedian/report"
	"github.com/signal18/pricemedian/series"
	"github.com/signal18/pricemedian/source"
	"github.com/signal18/pricemedian/storage"
)

type stubSource struct {
	points map[string][]series.Point
	err    error
}

func (s stubSource) Fetch(ctx context.Context, symbol string) ([]series.Point, error) {
	if s.err != nil {
		return nil, s.err
	}
	points, ok := s.points[symbol]
	if !ok {
		return nil, errors.Annotatef(source.ErrNoData, "symbol %s", symbol)
	}
	return points, nil
}

func day(d string, hour int) time.Time {
	t, err := time.Parse("2006-01-02", d)
	if err != nil {
		panic(err)
	}
	return t.Add(time.Duration(hour) * time.Hour)
}

func newTestServer(t *testing.T, src source.Source, withStore bool) (*Server, *httptest.Server) {
	t.Helper()
	b := &report.Builder{Source: src}
	if withStore {
		st, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		b.Store = st
		t.Cleanup(func() { st.Close() })
	}
	s := New(config.Config{ChartWidth: 800, ChartHeight: 600, ChartColor: "#f55905"}, b)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(s.closeAccessLog)
	t.Cleanup(ts.Close)
	return s, ts
}

func ibm() stubSource {
	return stubSource{points: map[string][]series.Point{
		"IBM": {
			{Time: day("2023-03-01", 10), Value: 5},
			{Time: day("2023-03-01", 11), Value: 10},
			{Time: day("2023-03-01", 12), Value: 15},
			{Time: day("2023-03-01", 13), Value: 20},
			{Time: day("2023-03-02", 10), Value: 7},
		},
	}}
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestMediansJSON(t *testing.T) {
	_, ts := newTestServer(t, ibm(), false)

	resp, body := get(t, ts.URL+"/api/medians/IBM")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, contentTypeJSON, resp.Header.Get("Content-Type"))
	assert.NotEmpty(t, resp.Header.Get("X-Report-Id"))

	var doc struct {
		Symbol  string `json:"symbol"`
		Medians []struct {
			Date   string  `json:"date"`
			Median float64 `json:"median"`
			Count  int     `json:"count"`
		} `json:"medians"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "IBM", doc.Symbol)
	require.Len(t, doc.Medians, 2)
	assert.Equal(t, "2023-03-01", doc.Medians[0].Date)
	assert.Equal(t, 12.5, doc.Medians[0].Median)
	assert.Equal(t, 4, doc.Medians[0].Count)
	assert.Equal(t, 7.0, doc.Medians[1].Median)
}

func TestMediansFormats(t *testing.T) {
	_, ts := newTestServer(t, ibm(), false)

	resp, body := get(t, ts.URL+"/api/medians/IBM?format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, contentTypeCSV, resp.Header.Get("Content-Type"))
	assert.Equal(t, `"IBM",2023-03-01,12.5,4`+"\n"+`"IBM",2023-03-02,7,1`+"\n", body)

	resp, body = get(t, ts.URL+"/api/medians/IBM?format=yaml")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "symbol: IBM")

	resp, _ = get(t, ts.URL+"/api/medians/IBM?format=pickle")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	if !chart.HaveGraphSupport {
		resp, _ = get(t, ts.URL+"/api/medians/IBM?format=png")
		assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	}
}

func TestMediansGzip(t *testing.T) {
	_, ts := newTestServer(t, ibm(), false)

	req, err := http.NewRequest("GET", ts.URL+"/api/medians/IBM", nil)
	require.NoError(t, err)
	req.Header.Set("Accept-Encoding", "gzip")
	resp, err := http.DefaultTransport.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	if resp.Header.Get("Content-Encoding") == "gzip" {
		zr, err := gzip.NewReader(resp.Body)
		require.NoError(t, err)
		b, err := ioutil.ReadAll(zr)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(string(b), `{"symbol":"IBM"`))
	}
}

func TestMediansErrors(t *testing.T) {
	var tests = []struct {
		name   string
		src    source.Source
		status int
	}{
		{"unknown symbol", ibm(), http.StatusNotFound},
		{"upstream", stubSource{err: errors.Annotate(source.ErrUpstream, "throttled")}, http.StatusBadGateway},
		{"empty dataset", stubSource{points: map[string][]series.Point{"AAPL": nil}}, http.StatusBadRequest},
		{"internal", stubSource{err: errors.New("disk on fire")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		_, ts := newTestServer(t, tt.src, false)
		resp, body := get(t, ts.URL+"/api/medians/AAPL")
		assert.Equal(t, tt.status, resp.StatusCode, "%s: %s", tt.name, body)
	}
}

func TestHistory(t *testing.T) {
	s, ts := newTestServer(t, ibm(), true)

	resp, _ := get(t, ts.URL+"/api/history/IBM")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	_, err := s.Builder.Build(context.Background(), "IBM")
	require.NoError(t, err)

	resp, body := get(t, ts.URL+"/api/history/IBM?from=2023-03-02&format=csv")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, `"IBM",2023-03-02,7,1`+"\n", body)

	resp, _ = get(t, ts.URL+"/api/history/IBM?from=yesterday")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = get(t, ts.URL+"/api/symbols")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `["IBM"]`, body)
}

func TestHistoryWithoutStore(t *testing.T) {
	_, ts := newTestServer(t, ibm(), false)

	resp, _ := get(t, ts.URL+"/api/history/IBM")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
	resp, _ = get(t, ts.URL+"/api/symbols")
	assert.Equal(t, http.StatusNotImplemented, resp.StatusCode)
}

func TestServiceEndpoints(t *testing.T) {
	_, ts := newTestServer(t, ibm(), false)

	resp, body := get(t, ts.URL+"/lb_check")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Ok\n", body)

	_, body = get(t, ts.URL+"/version")
	assert.Equal(t, BuildVersion+"\n", body)

	get(t, ts.URL+"/api/medians/IBM")
	resp, body = get(t, ts.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "pricemedian_reports_total")
	assert.Contains(t, body, `pricemedian_http_request_seconds_count{route="/api/medians/{symbol}"}`)

	resp, body = get(t, ts.URL+"/debug/vars")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "api_median_requests")

	resp, _ = get(t, ts.URL+"/api/medians/")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestLogBuffer(t *testing.T) {
	s, ts := newTestServer(t, ibm(), false)
	s.Log.Add(httplog.Message{Level: "info", Text: "Built report"})

	resp, body := get(t, ts.URL+"/api/log")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var msgs []httplog.Message
	require.NoError(t, json.Unmarshal([]byte(body), &msgs))
	require.Len(t, msgs, 1)
	assert.Equal(t, "Built report", msgs[0].Text)
}

func TestAccessLogStaysOutOfLogBuffer(t *testing.T) {
	logger, entries := logtest.NewNullLogger()
	logger.SetLevel(log.DebugLevel)

	s := New(config.Config{ChartWidth: 800, ChartHeight: 600, ChartColor: "#f55905"}, &report.Builder{Source: ibm()})
	s.Logger = logger
	logger.AddHook(s.Log)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()
	defer s.closeAccessLog()

	resp, _ := get(t, ts.URL+"/api/medians/IBM")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var access *log.Entry
	require.Eventually(t, func() bool {
		for _, e := range entries.AllEntries() {
			if strings.Contains(e.Message, "/api/medians/IBM") {
				access = e
				return true
			}
		}
		return false
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, log.DebugLevel, access.Level)

	for _, m := range s.Log.Messages() {
		assert.NotContains(t, m.Text, "/api/medians/IBM")
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	s := New(config.Config{HttpBind: "127.0.0.1:0"}, &report.Builder{Source: ibm()})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHTTPStatus(t *testing.T) {
	var tests = []struct {
		err    error
		status int
	}{
		{errors.NotValidf("format"), http.StatusBadRequest},
		{errors.Annotate(series.ErrInvalidDataset, "x"), http.StatusBadRequest},
		{errors.Annotate(source.ErrNoData, "x"), http.StatusNotFound},
		{storage.ErrNoRowsFound, http.StatusNotFound},
		{errors.Annotate(source.ErrUpstream, "x"), http.StatusBadGateway},
		{chart.ErrNoGraphSupport, http.StatusNotImplemented},
		{errors.NotSupportedf("history"), http.StatusNotImplemented},
		{errors.New("other"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, httpStatus(tt.err), tt.err.Error())
	}
}
