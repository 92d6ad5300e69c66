package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/hashicorp/go-hclog"
	gsyslog "github.com/hashicorp/go-syslog"
)

// syslogSink forwards intercepted log lines to syslog with a priority
// matching the hclog level.
type syslogSink struct {
	level  hclog.Level
	writer gsyslog.Syslogger
}

func newSyslogLogger(name, level string, writer gsyslog.Syslogger) hclog.Logger {
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Info
	}

	logger := hclog.NewInterceptLogger(&hclog.LoggerOptions{
		Name:   name,
		Level:  lvl,
		Output: io.Discard,
	})
	logger.RegisterSink(&syslogSink{level: lvl, writer: writer})
	return logger
}

func (s *syslogSink) Accept(name string, level hclog.Level, msg string, args ...interface{}) {
	if level < s.level || level == hclog.Off {
		return
	}
	_ = s.writer.WriteLevel(priority(level), []byte(formatSyslogLine(level, msg, args)))
}

func priority(level hclog.Level) gsyslog.Priority {
	switch level {
	case hclog.Trace, hclog.Debug:
		return gsyslog.LOG_DEBUG
	case hclog.Warn:
		return gsyslog.LOG_WARNING
	case hclog.Error:
		return gsyslog.LOG_ERR
	default:
		return gsyslog.LOG_INFO
	}
}

// formatSyslogLine renders "warning: msg key=value ..." the way syslog
// readers expect: a severity word for warnings and errors, nothing else.
func formatSyslogLine(level hclog.Level, msg string, args []interface{}) string {
	var b strings.Builder
	switch level {
	case hclog.Warn:
		b.WriteString("warning: ")
	case hclog.Error:
		b.WriteString("error: ")
	}
	b.WriteString(msg)
	for i := 0; i+1 < len(args); i += 2 {
		fmt.Fprintf(&b, " %v=%v", args[i], args[i+1])
	}
	if len(args)%2 == 1 {
		fmt.Fprintf(&b, " EXTRA_VALUE_AT_END=%v", args[len(args)-1])
	}
	return normalizeSpace(b.String())
}
