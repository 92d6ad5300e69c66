package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"
	gsyslog "github.com/hashicorp/go-syslog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func consoleSink(level string) (*Sink, *bytes.Buffer) {
	var buf bytes.Buffer
	sink := NewSink("invoker", level, OutputConsole)
	sink.Console = &buf
	return sink, &buf
}

func TestParseOutput(t *testing.T) {
	tests := []struct {
		input   string
		want    Output
		wantErr bool
	}{
		{input: "", want: OutputGuess},
		{input: "guess", want: OutputGuess},
		{input: "Console", want: OutputConsole},
		{input: "syslog", want: OutputSyslog},
		{input: "journal", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseOutput(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseLevel(t *testing.T) {
	level, jsonFormat := ParseLevel("debug")
	assert.Equal(t, "debug", level)
	assert.False(t, jsonFormat)

	level, jsonFormat = ParseLevel("json:trace")
	assert.Equal(t, "trace", level)
	assert.True(t, jsonFormat)

	level, jsonFormat = ParseLevel("json")
	assert.Equal(t, "info", level)
	assert.True(t, jsonFormat)
}

func TestSink_GuessConsoleOnTerminal(t *testing.T) {
	var buf bytes.Buffer
	sink := NewSink("invoker", "info", OutputGuess)
	sink.Console = &buf
	sink.StdinIsTerminal = func() bool { return true }

	require.NoError(t, sink.Open())
	assert.Equal(t, OutputConsole, sink.Resolved())

	sink.Logger().Info("hello")
	assert.Contains(t, buf.String(), "invoker: ")
	assert.Contains(t, buf.String(), "hello")
}

func TestSink_OpenCloseRepeatedly(t *testing.T) {
	sink, buf := consoleSink("info")

	require.NoError(t, sink.Open())
	require.NoError(t, sink.Open())
	require.NoError(t, sink.Close())
	require.NoError(t, sink.Close())

	// Logger reopens a closed sink.
	sink.Logger().Info("after close")
	assert.Contains(t, buf.String(), "after close")
}

func TestSink_JSON(t *testing.T) {
	sink, buf := consoleSink("json:debug")
	sink.Logger().Debug("structured", "key", "value")

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"key":"value"`)
}

func TestNormalizeWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewNormalizeWriter("p: ", &buf)

	n, err := w.Write([]byte("  one   two\t three \nfour"))
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Equal(t, "p: one two three\n", buf.String())

	_, err = w.Write([]byte("  five\n"))
	require.NoError(t, err)
	assert.Equal(t, "p: one two three\np: four five\n", buf.String())
}

func TestNormalizeWriter_SupportsColor(t *testing.T) {
	var _ hclog.SupportsColor = (*NormalizeWriter)(nil)

	assert.False(t, NewNormalizeWriter("p: ", &bytes.Buffer{}).SupportsColor())

	f, err := os.CreateTemp(t.TempDir(), "log")
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, NewNormalizeWriter("p: ", f).SupportsColor())
}

func TestSink_ConsoleWithoutTerminalIsPlain(t *testing.T) {
	sink, buf := consoleSink("debug")
	sink.Logger().Error("plain", "key", "value")

	assert.NotContains(t, buf.String(), "\x1b[")
	assert.Contains(t, buf.String(), "invoker: ")
	assert.Contains(t, buf.String(), "[ERROR] invoker: plain: key=value")
}

func TestReporter_LevelsAndTerminate(t *testing.T) {
	sink, buf := consoleSink("debug")
	reporter := NewReporter(sink)
	var status = -1
	reporter.Exit = func(code int) { status = code }

	reporter.Log(LevelDebug, "debug message")
	reporter.Log(LevelWarning, "careful")
	reporter.Log(LevelError, "broken")
	reporter.Terminate(3, "cannot start")

	out := buf.String()
	assert.Contains(t, out, "[DEBUG]")
	assert.Contains(t, out, "[WARN]")
	assert.Contains(t, out, "[ERROR]")
	assert.Contains(t, out, "died: cannot start")
	assert.Equal(t, 3, status)
}

func TestReporter_LevelFilter(t *testing.T) {
	sink, buf := consoleSink("warn")
	reporter := NewReporter(sink)

	reporter.Log(LevelInfo, "hidden")
	reporter.Log(LevelWarning, "shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
}

type recordingSyslog struct {
	lines      []string
	priorities []int
	closed     bool
}

func (r *recordingSyslog) WriteLevel(p gsyslog.Priority, b []byte) error {
	r.priorities = append(r.priorities, int(p))
	r.lines = append(r.lines, string(b))
	return nil
}

func (r *recordingSyslog) Write(b []byte) (int, error) {
	r.lines = append(r.lines, string(b))
	return len(b), nil
}

func (r *recordingSyslog) Close() error {
	r.closed = true
	return nil
}

func TestSyslogLogger(t *testing.T) {
	writer := &recordingSyslog{}
	logger := newSyslogLogger("invoker", "info", writer)

	logger.Debug("not forwarded")
	logger.Info("started", "pid", 42)
	logger.Named("verify").Warn("ignoring   argument", "arg", "-prestart")
	logger.Error("denied")

	require.Len(t, writer.lines, 3)
	assert.Equal(t, "started pid=42", writer.lines[0])
	assert.Equal(t, "warning: ignoring argument arg=-prestart", writer.lines[1])
	assert.Equal(t, "error: denied", writer.lines[2])
	assert.Equal(t, []int{int(priority(hclog.Info)), int(priority(hclog.Warn)), int(priority(hclog.Error))}, writer.priorities)
}
