package logging

import (
	"io"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultRedactPatterns match attribute keys that carry customer data.
var DefaultRedactPatterns = []string{`(?i)phone`, `(?i)address`, `(?i)customer_name`, `(?i)^from$`}

// Options configures New.
type Options struct {
	Level  slog.Level
	JSON   bool
	Output io.Writer
	// Redact lists regular expressions; values of matching keys are masked.
	Redact []string
}

// New creates a configured application logger.
// It writes to Stderr (to separate from Stdout chat output).
// It standardizes common keys (e.g., "error" -> "err") and masks customer data.
func New(level slog.Level) *slog.Logger {
	return NewWithOptions(Options{Level: level, Redact: DefaultRedactPatterns})
}

// NewWithOptions creates a logger with explicit output format and redaction rules.
func NewWithOptions(o Options) *slog.Logger {
	out := o.Output
	if out == nil {
		out = os.Stderr
	}
	patterns := make([]*regexp.Regexp, len(o.Redact))
	for i, p := range o.Redact {
		patterns[i] = regexp.MustCompile(p)
	}

	opts := &slog.HandlerOptions{
		Level: o.Level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Standardize 'error' key to 'err'
			if a.Key == "error" {
				a.Key = "err"
			}
			for _, p := range patterns {
				if p.MatchString(a.Key) {
					return slog.String(a.Key, mask(a.Value.String()))
				}
			}
			return a
		},
	}
	if o.JSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// ParseLevel maps "debug", "info", "warn" and "error" to slog levels. Unknown values are info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// NewNop returns a no-op logger.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// mask keeps the last four characters so operators can still correlate phones.
func mask(v string) string {
	if len(v) <= 4 {
		return "***"
	}
	return "***" + v[len(v)-4:]
}
