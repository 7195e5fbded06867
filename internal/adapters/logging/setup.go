// Package logging implements ports.Logger on top of log/slog.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/afm/internal/ports"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// New builds a logger from configuration values. Level "off" disables
// logging entirely.
func New(level, format string, w io.Writer) (ports.Logger, error) {
	if strings.EqualFold(strings.TrimSpace(level), "off") {
		return ports.Discard(), nil
	}

	lvl, err := ports.ParseLevel(level)
	if err != nil {
		return nil, err
	}

	var jsonFormat bool
	switch strings.ToLower(format) {
	case "", FormatText:
	case FormatJSON:
		jsonFormat = true
	default:
		return nil, fmt.Errorf("unknown log format %q (want text or json)", format)
	}

	opts := []ConsoleLoggerOption{
		WithLevel(lvl),
		WithJSONFormat(jsonFormat),
		WithTimestamp(jsonFormat),
	}
	if w != nil {
		opts = append(opts, WithOutput(w))
	}
	return NewConsoleLogger(opts...), nil
}
