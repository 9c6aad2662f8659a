// Package logger configures the global zerolog logger.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
)

// Init points the global logger at logfile ("", "stdout", "stderr" or a path).
// Console targets get human readable output, files get JSON lines.
// verbose enables debug level and caller annotations.
//
// The returned closer releases the log file; it is a no-op for console output.
func Init(verbose bool, logfile string) (io.Closer, error) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}

	out, closer, console, err := openOutput(logfile)
	if err != nil {
		return nil, err
	}

	zerolog.SetGlobalLevel(level)
	zerolog.TimestampFieldName = "time"
	zerolog.CallerMarshalFunc = shortCaller

	var w io.Writer = out
	if console {
		cw := zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		if verbose {
			cw.PartsOrder = []string{"time", "level", "message", "caller"}
			cw.FormatCaller = func(i any) string { return "(" + i.(string) + ")" }
		}
		w = cw
	}

	ctx := zerolog.New(w).With().Timestamp()
	if verbose {
		ctx = ctx.Caller()
	}
	l := ctx.Logger()

	zerolog.DefaultContextLogger = &l
	zlog.Logger = l
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

func openOutput(logfile string) (io.Writer, io.Closer, bool, error) {
	switch strings.ToLower(logfile) {
	case "", "stdout":
		return os.Stdout, nopCloser{}, true, nil
	case "stderr":
		return os.Stderr, nopCloser{}, true, nil
	}
	f, err := os.OpenFile(logfile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, false, errors.Wrapf(err, "open log file %s", logfile)
	}
	return f, f, false, nil
}

// shortCaller keeps the last directory and file name, "server/server.go:42".
func shortCaller(_ uintptr, file string, line int) string {
	parts := strings.Split(file, string(filepath.Separator))
	if len(parts) > 1 {
		file = filepath.Join(parts[len(parts)-2:]...)
	}
	return file + ":" + strconv.Itoa(line)
}
