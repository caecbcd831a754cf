package chart

import (
	"bytes"
	"encoding/json"
	"image/color"
	"math"
	"strings"
	"testing"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/signal18/pricemedian/series"
)

func makeResults() []series.Result {
	exact := 10.0
	return []series.Result{
		{Key: "2023-03-01", Median: 10, Count: 3, Mean: 10, Stddev: 5, Min: 5, Max: 15, Exact: &exact},
		{Key: "2023-03-02", Median: 1234.5, Count: 1200, Mean: 1234.5, Min: 1234.5, Max: 1234.5},
		{Key: "2023-03-03", Median: math.NaN(), Count: 2, Mean: math.NaN(), Min: 1, Max: 2},
	}
}

func TestJSONResponse(t *testing.T) {
	tests := []struct {
		results []series.Result
		out     []byte
	}{
		{
			nil,
			[]byte(`{"symbol":"IBM","medians":[]}`),
		},
		{
			makeResults()[:1],
			[]byte(`{"symbol":"IBM","medians":[{"date":"2023-03-01","median":10,"count":3,"mean":10,"stddev":5,"min":5,"max":15,"exact":10}]}`),
		},
		{
			makeResults()[2:],
			[]byte(`{"symbol":"IBM","medians":[{"date":"2023-03-03","median":null,"count":2,"mean":null,"stddev":0,"min":1,"max":2}]}`),
		},
	}

	for _, tt := range tests {
		b := MarshalJSON("IBM", tt.results)
		if !bytes.Equal(b, tt.out) {
			t.Errorf("MarshalJSON(%+v)=%s, want %s", tt.results, b, tt.out)
		}
	}
}

func TestJSONIsValid(t *testing.T) {
	var doc struct {
		Symbol  string `json:"symbol"`
		Medians []struct {
			Date   string   `json:"date"`
			Median *float64 `json:"median"`
		} `json:"medians"`
	}
	require.NoError(t, json.Unmarshal(MarshalJSON(`weird "sym"`, makeResults()), &doc))
	assert.Equal(t, `weird "sym"`, doc.Symbol)
	require.Len(t, doc.Medians, 3)
	assert.Nil(t, doc.Medians[2].Median)
	assert.Equal(t, 1234.5, *doc.Medians[1].Median)
}

func TestCSVResponse(t *testing.T) {
	want := `"IBM",2023-03-01,10,3` + "\n" +
		`"IBM",2023-03-02,1234.5,1200` + "\n" +
		`"IBM",2023-03-03,,2` + "\n"
	assert.Equal(t, want, string(MarshalCSV("IBM", makeResults())))
}

func TestYAMLResponse(t *testing.T) {
	b, err := MarshalYAML("IBM", makeResults()[:2])
	require.NoError(t, err)

	var doc struct {
		Symbol  string `yaml:"symbol"`
		Medians []struct {
			Date   string   `yaml:"date"`
			Median float64  `yaml:"median"`
			Count  int      `yaml:"count"`
			Exact  *float64 `yaml:"exact"`
		} `yaml:"medians"`
	}
	require.NoError(t, yaml.Unmarshal(b, &doc))
	assert.Equal(t, "IBM", doc.Symbol)
	require.Len(t, doc.Medians, 2)
	assert.Equal(t, "2023-03-01", doc.Medians[0].Date)
	assert.Equal(t, 10.0, doc.Medians[0].Median)
	require.NotNil(t, doc.Medians[0].Exact)
	assert.Nil(t, doc.Medians[1].Exact)
	assert.Equal(t, 1200, doc.Medians[1].Count)
}

func TestTableResponse(t *testing.T) {
	out := string(MarshalTable("IBM", makeResults()))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "median")
	assert.Contains(t, lines[2], "1,234.5")
	assert.Contains(t, lines[2], "1,200")
	assert.Contains(t, lines[3], "-")
}

func TestMarshalFormats(t *testing.T) {
	for _, format := range []string{"", FormatJSON, FormatCSV, FormatYAML, FormatTable} {
		b, err := Marshal(format, "IBM", makeResults(), DefaultOptions)
		assert.NoError(t, err, format)
		assert.NotEmpty(t, b, format)
	}

	_, err := Marshal("pickle", "IBM", makeResults(), DefaultOptions)
	assert.True(t, errors.IsNotValid(err))
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in  string
		out color.RGBA
	}{
		{"#f55905", color.RGBA{0xf5, 0x59, 0x05, 0xff}},
		{"f55905", color.RGBA{0xf5, 0x59, 0x05, 0xff}},
		{"#fff", color.RGBA{0xff, 0xff, 0xff, 0xff}},
		{"#00000080", color.RGBA{0, 0, 0, 0x80}},
		{"Black", color.RGBA{0, 0, 0, 0xff}},
	}
	for _, tt := range tests {
		c, err := ParseColor(tt.in)
		if assert.NoError(t, err, tt.in) {
			assert.Equal(t, tt.out, c, tt.in)
		}
	}

	for _, bad := range []string{"", "#12", "#zzzzzz", "chartreuse"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
