// pricemedian - Daily median of intraday price series
// Authors: Guillaume Lefranc <guillaume@signal18.io>
//          Stephane Varoqui  <svaroqui@gmail.com>
// This source code is licensed under the GNU General Public License, version 3.

package config

import (
	"io"
	"os"

	"github.com/juju/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// SetLevel sets the logrus level from its name.
func SetLevel(level string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.NotValidf("log level %q", level)
	}
	log.SetLevel(lvl)
	return nil
}

// SetupLogging points logrus at stderr and, when a log file is configured,
// at a rotated copy of it as well.
func SetupLogging(conf Config) error {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	if err := SetLevel(conf.LogLevel); err != nil {
		return err
	}

	if conf.LogFile == "" {
		log.SetOutput(os.Stderr)
		return nil
	}

	rotate := &lumberjack.Logger{
		Filename:   conf.LogFile,
		MaxSize:    conf.LogRotateMaxSize,
		MaxBackups: conf.LogRotateMaxBackup,
		MaxAge:     conf.LogRotateMaxAge,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, rotate))
	log.WithFields(log.Fields{"file": conf.LogFile}).Debug("Logging to file")
	return nil
}
