package logging

import (
	"os"

	"github.com/hashicorp/go-hclog"
)

// Level is the severity of a reported message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
	LevelFatal
)

func (l Level) hclogLevel() hclog.Level {
	switch l {
	case LevelDebug:
		return hclog.Debug
	case LevelWarning:
		return hclog.Warn
	case LevelError, LevelFatal:
		return hclog.Error
	default:
		return hclog.Info
	}
}

// Reporter exposes the two effects launch checks and their callers use:
// Log and Terminate.
type Reporter struct {
	sink *Sink
	// Exit ends the process. Defaults to os.Exit.
	Exit func(status int)
}

// NewReporter returns a Reporter writing to sink.
func NewReporter(sink *Sink) *Reporter {
	return &Reporter{sink: sink, Exit: os.Exit}
}

// Logger returns the underlying structured logger.
func (r *Reporter) Logger() hclog.Logger {
	return r.sink.Logger()
}

// Log writes msg at level.
func (r *Reporter) Log(level Level, msg string) {
	if level == LevelFatal {
		msg = "died: " + msg
	}
	r.sink.Logger().Log(level.hclogLevel(), msg)
}

// Terminate logs msg as fatal, closes the sink and exits with status.
// It is meant for startup failures only; a denied launch is not one.
func (r *Reporter) Terminate(status int, msg string) {
	r.Log(LevelFatal, msg)
	_ = r.sink.Close()
	r.Exit(status)
}
