// Package logging builds the process logger.
package logging

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// Options configures New.
type Options struct {
	Level     string // debug, info, warn, error
	Format    string // text, logfmt or json
	Prefix    string
	Timestamp bool
}

// New returns a logger writing to w.
func New(w io.Writer, opts Options) (*log.Logger, error) {
	level := log.InfoLevel
	if opts.Level != "" {
		l, err := log.ParseLevel(opts.Level)
		if err != nil {
			return nil, errors.Wrapf(err, "logging: level %q", opts.Level)
		}
		level = l
	}

	var formatter log.Formatter
	switch strings.ToLower(opts.Format) {
	case "", "text":
		formatter = log.TextFormatter
	case "logfmt":
		formatter = log.LogfmtFormatter
	case "json":
		formatter = log.JSONFormatter
	default:
		return nil, errors.Newf("logging: unknown format %q", opts.Format)
	}

	logger := log.NewWithOptions(w, log.Options{
		Level:           level,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.Timestamp,
		Formatter:       formatter,
	})
	return logger, nil
}

// Discard returns a logger that drops everything. Used by tests and by
// components constructed without a logger.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
