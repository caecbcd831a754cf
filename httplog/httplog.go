// pricemedian - Daily median of intraday price series
// Copyright 2017 Signal 18 SARL
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.
// Redistribution/Reuse of this code is permitted under the GNU v3 license, as
// an additional term, ALL code must carry the original Author(s) credit in comment form.
// See LICENSE in this directory for the integral text.

// Package httplog keeps the most recent log entries in memory so the API can
// serve them.
package httplog

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

type HttpLog struct {
	mu     sync.Mutex
	buffer []Message
	size   int
	level  log.Level
}

type Message struct {
	Level     string            `json:"level"`
	Timestamp string            `json:"timestamp"`
	Text      string            `json:"text"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// NewHttpLog returns a buffer of sz messages receiving entries up to level.
func NewHttpLog(sz int, level log.Level) *HttpLog {
	if sz <= 0 {
		sz = 1
	}
	return &HttpLog{
		buffer: make([]Message, 0, sz),
		size:   sz,
		level:  level,
	}
}

// Add puts m first, dropping the oldest message when the buffer is full.
func (tl *HttpLog) Add(m Message) {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	if len(tl.buffer) < tl.size {
		tl.buffer = append(tl.buffer, Message{})
	}
	copy(tl.buffer[1:], tl.buffer[:len(tl.buffer)-1])
	tl.buffer[0] = m
}

// Messages returns a copy of the buffer, newest first.
func (tl *HttpLog) Messages() []Message {
	tl.mu.Lock()
	defer tl.mu.Unlock()
	out := make([]Message, len(tl.buffer))
	copy(out, tl.buffer)
	return out
}

func (tl *HttpLog) Levels() []log.Level {
	var levels []log.Level
	for _, l := range log.AllLevels {
		if l <= tl.level {
			levels = append(levels, l)
		}
	}
	return levels
}

func (tl *HttpLog) Fire(e *log.Entry) error {
	m := Message{
		Level:     e.Level.String(),
		Timestamp: e.Time.Format(time.RFC3339),
		Text:      e.Message,
	}
	if len(e.Data) > 0 {
		m.Fields = make(map[string]string, len(e.Data))
		for k, v := range e.Data {
			m.Fields[k] = fmt.Sprint(v)
		}
	}
	tl.Add(m)
	return nil
}
