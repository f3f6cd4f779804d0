package notify

import "github.com/rs/zerolog"

// Notifier receives transient, user-facing messages (the snackbar of the
// web client). Controllers get one by injection, never from a global.
type Notifier interface {
	Notify(message string)
}

// Func adapts a plain function to a Notifier.
type Func func(message string)

// Notify calls f.
func (f Func) Notify(message string) { f(message) }

// Logger routes messages to a structured logger.
func Logger(logger zerolog.Logger) Notifier {
	return Func(func(message string) {
		logger.Info().Msg(message)
	})
}
