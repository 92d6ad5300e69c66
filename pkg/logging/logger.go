// Package logging builds the hclog loggers used by launchguard and
// provides the log/terminate effects callers rely on.
//
// Output goes to the console or to syslog. The choice is an explicit
// value on Sink; "guess" resolves to the console when stdin is a terminal
// and to syslog otherwise.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
)

// Output selects where log lines go.
type Output int

const (
	OutputGuess Output = iota
	OutputConsole
	OutputSyslog
)

func (o Output) String() string {
	switch o {
	case OutputConsole:
		return "console"
	case OutputSyslog:
		return "syslog"
	default:
		return "guess"
	}
}

// ParseOutput parses "console", "syslog" or "guess" (also "").
func ParseOutput(s string) (Output, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "guess", "auto":
		return OutputGuess, nil
	case "console", "stderr":
		return OutputConsole, nil
	case "syslog":
		return OutputSyslog, nil
	}
	return OutputGuess, fmt.Errorf("unknown log output %q", s)
}

// ParseLevel splits the "json:<level>" form accepted for log levels.
func ParseLevel(level string) (actual string, jsonFormat bool) {
	if !strings.HasPrefix(level, "json") {
		return level, false
	}
	parts := strings.SplitN(level, ":", 2)
	if len(parts) > 1 && parts[1] != "" {
		return parts[1], true
	}
	return "info", true
}

// Sink owns the process-wide log destination. Open and Close may be
// called any number of times.
type Sink struct {
	Name   string
	Level  string
	Output Output
	JSON   bool

	// Console receives console output. Defaults to stderr.
	Console io.Writer
	// StdinIsTerminal decides the guessed output. Defaults to a check of
	// the real stdin.
	StdinIsTerminal func() bool

	mu       sync.Mutex
	opened   bool
	resolved Output
	logger   hclog.Logger
	syslog   gsyslog.Syslogger
}

// NewSink returns an unopened Sink.
func NewSink(name, level string, output Output) *Sink {
	return &Sink{Name: name, Level: level, Output: output}
}

// Open resolves the output and builds the logger. If syslog cannot be
// reached the sink falls back to the console and reports the error.
func (s *Sink) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.opened {
		return nil
	}

	level, jsonFormat := ParseLevel(s.Level)
	jsonFormat = jsonFormat || s.JSON

	s.resolved = s.Output
	if s.resolved == OutputGuess {
		s.resolved = OutputSyslog
		if s.stdinIsTerminal() {
			s.resolved = OutputConsole
		}
	}

	var err error
	if s.resolved == OutputSyslog {
		s.syslog, err = gsyslog.NewLogger(gsyslog.LOG_INFO, "DAEMON", s.Name)
		if err == nil {
			s.logger = newSyslogLogger(s.Name, level, s.syslog)
		} else {
			err = fmt.Errorf("syslog unavailable, using console: %w", err)
			s.resolved = OutputConsole
		}
	}
	if s.resolved == OutputConsole {
		s.logger = newConsoleLogger(s.Name, level, jsonFormat, s.console())
	}

	s.opened = true
	return err
}

// Close releases the syslog connection, if any. A later Open or Logger
// call opens the sink again.
func (s *Sink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.opened {
		return nil
	}
	s.opened = false
	s.logger = nil

	if s.syslog == nil {
		return nil
	}
	err := s.syslog.Close()
	s.syslog = nil
	return err
}

// Logger returns the sink's logger, opening the sink first if needed.
func (s *Sink) Logger() hclog.Logger {
	_ = s.Open()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.logger == nil {
		return hclog.NewNullLogger()
	}
	return s.logger
}

// Resolved reports the output in use after Open.
func (s *Sink) Resolved() Output {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolved
}

func (s *Sink) console() io.Writer {
	if s.Console != nil {
		return s.Console
	}
	return colorable.NewColorableStderr()
}

func (s *Sink) stdinIsTerminal() bool {
	if s.StdinIsTerminal != nil {
		return s.StdinIsTerminal()
	}
	fd := os.Stdin.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func newConsoleLogger(name, level string, jsonFormat bool, output io.Writer) hclog.Logger {
	color := hclog.ColorOff
	// Add prefix and whitespace normalisation for non-JSON output
	if !jsonFormat {
		output = NewNormalizeWriter(name+": ", output)
		color = hclog.AutoColor
	}

	return hclog.New(&hclog.LoggerOptions{
		Name:            name,
		Level:           hclog.LevelFromString(level),
		JSONFormat:      jsonFormat,
		Output:          output,
		Color:           color,
		ColorHeaderOnly: true,
		TimeFormat:      "2006-01-02T15:04:05Z", // UTC ISO format
		TimeFn: func() time.Time {
			return time.Now().UTC()
		},
	})
}
