package config

import (
	"io"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// NewLogger builds the process logger: logfmt or JSON lines on w, filtered
// to the configured level, with timestamp and caller on every line.
func NewLogger(c Config, w io.Writer) log.Logger {
	w = log.NewSyncWriter(w)
	var logger log.Logger
	if strings.EqualFold(c.LogFormat, "json") {
		logger = log.NewJSONLogger(w)
	} else {
		logger = log.NewLogfmtLogger(w)
	}
	logger = level.NewFilter(logger, levelOption(c.LogLevel))
	return log.With(logger, "ts", log.DefaultTimestampUTC, "caller", log.DefaultCaller)
}

func levelOption(l string) level.Option {
	switch strings.ToLower(l) {
	case "debug":
		return level.AllowDebug()
	case "warn":
		return level.AllowWarn()
	case "error":
		return level.AllowError()
	default:
		return level.AllowInfo()
	}
}
