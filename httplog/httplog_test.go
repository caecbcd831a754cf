package httplog

import (
	"errors"
	"io/ioutil"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKeepsNewestFirst(t *testing.T) {
	tl := NewHttpLog(3, log.InfoLevel)
	for _, s := range []string{"a", "b", "c", "d"} {
		tl.Add(Message{Text: s})
	}

	msgs := tl.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "d", msgs[0].Text)
	assert.Equal(t, "c", msgs[1].Text)
	assert.Equal(t, "b", msgs[2].Text)
}

func TestMessagesIsACopy(t *testing.T) {
	tl := NewHttpLog(2, log.InfoLevel)
	tl.Add(Message{Text: "a"})
	msgs := tl.Messages()
	msgs[0].Text = "changed"
	assert.Equal(t, "a", tl.Messages()[0].Text)
}

func TestHook(t *testing.T) {
	tl := NewHttpLog(10, log.InfoLevel)
	logger := log.New()
	logger.Out = ioutil.Discard
	logger.SetLevel(log.DebugLevel)
	logger.AddHook(tl)

	logger.Debug("hidden")
	logger.WithFields(log.Fields{"symbol": "IBM", "points": 42}).WithError(errors.New("boom")).Warn("Publish failed")

	msgs := tl.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "warning", msgs[0].Level)
	assert.Equal(t, "Publish failed", msgs[0].Text)
	assert.Equal(t, "IBM", msgs[0].Fields["symbol"])
	assert.Equal(t, "42", msgs[0].Fields["points"])
	assert.Equal(t, "boom", msgs[0].Fields["error"])
	assert.NotEmpty(t, msgs[0].Timestamp)
}
