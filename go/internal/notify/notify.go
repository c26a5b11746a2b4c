package notify

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout is how long a notification stays visible unless dismissed.
const DefaultTimeout = 5 * time.Second

// Severity classifies a notification for presentation.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
	SeverityWin     Severity = "win"
)

// Notification is a user-facing message. Title is optional.
type Notification struct {
	Severity Severity      `json:"severity"`
	Title    string        `json:"title,omitempty"`
	Message  string        `json:"message"`
	Timeout  time.Duration `json:"timeout"`
}

// Sink receives notifications. Notify must not block on delivery.
type Sink interface {
	Notify(n Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n Notification)

func (f SinkFunc) Notify(n Notification) { f(n) }

// LogSink writes notifications to the global zerolog logger.
type LogSink struct{}

func (LogSink) Notify(n Notification) {
	event := log.WithLevel(levelFor(n.Severity))
	if n.Title != "" {
		event = event.Str("title", n.Title)
	}
	event.
		Str("severity", string(n.Severity)).
		Dur("timeout", n.Timeout).
		Msg(n.Message)
}

func levelFor(s Severity) zerolog.Level {
	switch s {
	case SeverityError:
		return zerolog.ErrorLevel
	case SeverityWarning:
		return zerolog.WarnLevel
	default:
		return zerolog.InfoLevel
	}
}

// Fanout delivers every notification to each sink in order.
type Fanout []Sink

func (f Fanout) Notify(n Notification) {
	for _, s := range f {
		s.Notify(n)
	}
}
