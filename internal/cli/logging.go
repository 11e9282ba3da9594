package cli

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// newLogger writes human-readable progress to w: info by default, debug when
// verbose.
func newLogger(w io.Writer, verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	_, isFile := w.(*os.File)
	console := zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly, NoColor: !isFile}
	return zerolog.New(console).Level(level).With().Timestamp().Logger()
}
