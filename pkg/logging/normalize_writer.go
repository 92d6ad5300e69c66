package logging

import (
	"bytes"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
)

// NormalizeWriter prefixes each line written through it and collapses runs
// of whitespace inside the line to single spaces.
type NormalizeWriter struct {
	prefix string
	writer io.Writer
	buffer bytes.Buffer
}

// NewNormalizeWriter creates a new NormalizeWriter.
func NewNormalizeWriter(prefix string, w io.Writer) *NormalizeWriter {
	return &NormalizeWriter{
		prefix: prefix,
		writer: w,
	}
}

// Write buffers p and emits every complete line. A trailing partial line
// waits for the next write.
func (nw *NormalizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	nw.buffer.Write(p)

	for {
		data := nw.buffer.Bytes()
		idx := bytes.IndexByte(data, '\n')
		if idx < 0 {
			break
		}
		line := normalizeSpace(string(data[:idx]))
		nw.buffer.Next(idx + 1)

		if _, err := io.WriteString(nw.writer, nw.prefix+line+"\n"); err != nil {
			return 0, err
		}
	}

	return n, nil
}

// SupportsColor reports whether the wrapped writer is a terminal. hclog
// consults it when the logger is built with AutoColor.
func (nw *NormalizeWriter) SupportsColor() bool {
	f, ok := nw.writer.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func normalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
