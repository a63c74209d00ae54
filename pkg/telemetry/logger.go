package telemetry

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the root zerolog logger from the CLI logging flags. When
// cfg.File is set, log output is duplicated to the file in plain JSON while
// the console keeps its configured format. The returned closer owns the log
// file handle and is a no-op otherwise.
func NewLogger(cfg LoggingConfig) (zerolog.Logger, io.Closer, error) {
	var console io.Writer = os.Stderr
	if cfg.Format == "console" {
		console = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
			NoColor:    cfg.NoColor,
		}
	}

	writer := console
	closer := io.Closer(nopCloser{})
	if cfg.File != "" {
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writer = zerolog.MultiLevelWriter(console, f)
		closer = f
	}

	zerolog.TimeFieldFormat = time.RFC3339
	logger := zerolog.New(writer).With().Timestamp().Logger().Level(verbosityLevel(cfg.Verbosity))
	return logger, closer, nil
}

// verbosityLevel maps the -v repetition count to a zerolog level.
func verbosityLevel(v int) zerolog.Level {
	switch {
	case v <= 0:
		return zerolog.InfoLevel
	case v == 1:
		return zerolog.DebugLevel
	default:
		return zerolog.TraceLevel
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
