// Package logging provides application-wide logging configuration.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var debugEnabled bool

// Init initializes the global logger. Debug mode switches to a console writer;
// otherwise the service logs JSON lines for the log collector.
func Init(debug bool) {
	initTo(os.Stderr, debug)
}

func initTo(out io.Writer, debug bool) {
	debugEnabled = debug
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339
	if debug {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
		return
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// DebugEnabled reports whether debug logging is enabled.
func DebugEnabled() bool {
	return debugEnabled
}

// Timed starts a stopwatch and returns a func that logs the elapsed time at debug level.
//
//	defer logging.Timed("sheets.list_open")()
func Timed(label string) func() {
	start := time.Now()
	return func() {
		log.Debug().
			Str("op", label).
			Int64("ms", time.Since(start).Milliseconds()).
			Msg("timed")
	}
}
