// pricemedian - Daily median of intraday price series
// Copyright 2017 Signal 18 SARL
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

// Package carbon publishes daily medians over the graphite plaintext protocol.
package carbon

import (
	"bytes"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"

	"github.com/signal18/pricemedian/series"
)

// defaultTimeout bounds the connection establishment.
const defaultTimeout = time.Second

// Metric is a single plaintext line.
type Metric struct {
	Name      string
	Value     string
	Timestamp int64
}

func NewMetric(name, value string, timestamp int64) Metric {
	return Metric{Name: name, Value: value, Timestamp: timestamp}
}

func (m Metric) String() string {
	return fmt.Sprintf("%s %s %s", m.Name, m.Value, time.Unix(m.Timestamp, 0).UTC().Format("2006-01-02 15:04:05"))
}

// Client writes metrics to a carbon listener. The nop protocol only logs.
type Client struct {
	Host     string
	Port     int
	Protocol string
	Timeout  time.Duration
	Prefix   string

	mu   sync.Mutex
	conn net.Conn
}

// New returns a client for protocol tcp, udp or nop. The connection is
// opened by the first SendMetrics, so an unreachable listener only fails
// publications.
func New(protocol, host string, port int, prefix string) (*Client, error) {
	switch protocol {
	case "tcp", "udp", "nop":
	default:
		return nil, errors.NotValidf("carbon protocol %q", protocol)
	}
	return &Client{Host: host, Port: port, Protocol: protocol, Prefix: prefix}, nil
}

func (c *Client) IsNop() bool {
	return c.Protocol == "nop"
}

// Connect (re)opens the connection.
func (c *Client) Connect() error {
	if c.IsNop() {
		return nil
	}
	if c.conn != nil {
		c.conn.Close()
	}
	if c.Timeout == 0 {
		c.Timeout = defaultTimeout
	}

	address := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	conn, err := net.DialTimeout(c.Protocol, address, c.Timeout)
	if err != nil {
		return errors.Annotatef(err, "carbon connect %s", address)
	}
	c.conn = conn
	return nil
}

func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

func (c *Client) name(m Metric) string {
	if c.Prefix != "" {
		return c.Prefix + "." + m.Name
	}
	return m.Name
}

// SendMetrics writes the batch. TCP batches go out in a single write, UDP
// sends one datagram per metric.
func (c *Client) SendMetrics(metrics []Metric) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.IsNop() {
		for _, m := range metrics {
			log.WithFields(log.Fields{"metric": c.name(m)}).Infof("Carbon: %s", m)
		}
		return nil
	}
	if c.conn == nil {
		if err := c.Connect(); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	for _, m := range metrics {
		if m == (Metric{}) {
			continue
		}
		if m.Timestamp == 0 {
			m.Timestamp = time.Now().Unix()
		}
		line := fmt.Sprintf("%s %s %d\n", c.name(m), m.Value, m.Timestamp)
		if c.Protocol == "udp" {
			if _, err := c.conn.Write([]byte(line)); err != nil {
				return errors.Trace(err)
			}
			continue
		}
		buf.WriteString(line)
	}
	if c.Protocol == "tcp" && buf.Len() > 0 {
		if _, err := c.conn.Write(buf.Bytes()); err != nil {
			c.conn.Close()
			c.conn = nil
			return errors.Trace(err)
		}
	}
	return nil
}

// SanitizeName makes s usable as a single metric path node.
func SanitizeName(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', ' ', '/', '\t', '\n':
			return '_'
		}
		return r
	}, s)
}

// MedianMetrics turns results into <symbol>.median.daily and
// <symbol>.points.daily metrics stamped at the midnight UTC of their date.
func MedianMetrics(symbol string, results []series.Result) ([]Metric, error) {
	node := SanitizeName(symbol)
	metrics := make([]Metric, 0, 2*len(results))
	for _, r := range results {
		t, err := r.Key.Time()
		if err != nil {
			return nil, err
		}
		ts := t.Unix()
		metrics = append(metrics,
			NewMetric(node+".median.daily", strconv.FormatFloat(r.Median, 'f', -1, 64), ts),
			NewMetric(node+".points.daily", strconv.Itoa(r.Count), ts),
		)
	}
	return metrics, nil
}

// Publish sends the daily medians of symbol.
func (c *Client) Publish(symbol string, results []series.Result) error {
	metrics, err := MedianMetrics(symbol, results)
	if err != nil {
		return err
	}
	if err := c.SendMetrics(metrics); err != nil {
		return err
	}
	log.WithFields(log.Fields{"symbol": symbol, "metrics": len(metrics), "protocol": c.Protocol}).Debug("Published medians")
	return nil
}
