// Package outcome carries user-visible results of operations to whatever
// surface presents them. Core packages report outcomes; the shell decides
// how to render them.
package outcome

import "log/slog"

// Kind classifies a report.
type Kind string

const (
	KindSuccess Kind = "success"
	KindFailure Kind = "failure"
	KindInfo    Kind = "info"
)

// Sink receives one report per finished operation. Implementations must
// be safe for concurrent use.
type Sink interface {
	Report(kind Kind, title, detail string)
}

// Logger is a Sink that writes reports to a structured logger.
type Logger struct {
	log *slog.Logger
}

// NewLogger returns a Sink backed by log. A nil logger yields a sink
// that drops everything.
func NewLogger(log *slog.Logger) *Logger {
	return &Logger{log: log}
}

func (l *Logger) Report(kind Kind, title, detail string) {
	if l.log == nil {
		return
	}
	switch kind {
	case KindFailure:
		l.log.Error(title, "detail", detail)
	default:
		l.log.Info(title, "kind", string(kind), "detail", detail)
	}
}

// Multi fans each report out to every sink in order.
type Multi []Sink

func (m Multi) Report(kind Kind, title, detail string) {
	for _, s := range m {
		if s != nil {
			s.Report(kind, title, detail)
		}
	}
}
