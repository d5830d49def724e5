package logging

import (
	"github.com/rs/zerolog"

	"github.com/vervegrand/feedsync/internal/domain"
)

// Sink adapts a zerolog logger to the sync engine's log sink.
func Sink(logger zerolog.Logger) domain.LogSink {
	return func(message string, level domain.LogLevel) {
		var ev *zerolog.Event
		switch level {
		case domain.LevelError:
			ev = logger.Error()
		case domain.LevelWarn:
			ev = logger.Warn()
		case domain.LevelSuccess:
			ev = logger.Info().Bool("success", true)
		default:
			ev = logger.Info()
		}
		ev.Msg(message)
	}
}

// Tee fans one event out to several sinks. Nil sinks are ignored.
func Tee(sinks ...domain.LogSink) domain.LogSink {
	return func(message string, level domain.LogLevel) {
		for _, s := range sinks {
			if s != nil {
				s(message, level)
			}
		}
	}
}
