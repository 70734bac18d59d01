// Package observability builds the process-wide structured logger and
// Prometheus registry.
package observability

import (
	"io"
	"log/slog"
	"os"
	"time"

	charmlog "github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

type LoggerOptions struct {
	Level  string
	JSON   bool
	Output io.Writer
}

// NewLogger returns a slog.Logger whose handler is a charm logger. Unknown
// levels fall back to info.
func NewLogger(opts LoggerOptions) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level, err := charmlog.ParseLevel(opts.Level)
	if err != nil {
		level = charmlog.InfoLevel
	}
	handler := charmlog.NewWithOptions(out, charmlog.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Level:           level,
	})
	if opts.JSON {
		handler.SetFormatter(charmlog.JSONFormatter)
	} else {
		handler.SetFormatter(charmlog.TextFormatter)
	}
	return slog.New(handler)
}

// NewRegistry returns a registry preloaded with the Go runtime and process
// collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
