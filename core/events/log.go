package events

import "log/slog"

// LogEmitter forwards every engine event to a structured logger. It is the
// default sink wired by the daemon; indexers can replace it with their own
// Emitter.
type LogEmitter struct {
	Logger *slog.Logger
}

// Emit implements the Emitter interface.
func (e LogEmitter) Emit(event Event) {
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("engine event",
		slog.String("type", event.EventType()),
		slog.Any("event", event),
	)
}
