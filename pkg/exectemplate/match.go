package exectemplate

import (
	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/launchguard/pkg/utils/shellparse"
)

// unbounded is the argument limit of list field codes.
const unbounded = -1

// Match reports whether argv is an invocation the template allows.
//
// The template is aligned on the first literal token equal to argv[0], so
// wrapper executables in front of the real command are tolerated. On
// mismatch exactly one error naming the reason is logged and returned.
func (t *Template) Match(argv []string, logger hclog.Logger) error {
	logger.Trace("matching argv", "exec", t.String(), "argv", shellparse.Join(argv))
	err := t.match(argv, logger)
	if err != nil {
		logger.Error("❌ argv does not match Exec line", "reason", err.Error())
	}
	return err
}

func (t *Template) match(argv []string, logger hclog.Logger) error {
	if len(argv) == 0 {
		return mismatch("application argv not defined")
	}
	if len(t.tokens) == 0 {
		return mismatch("Exec line not defined")
	}
	if _, ok := fieldCode(t.tokens[0]); ok {
		return mismatch("Exec line starts with field code '%s'", t.tokens[0])
	}

	start := -1
	for i, token := range t.tokens {
		if _, ok := fieldCode(token); !ok && token == argv[0] {
			start = i
			break
		}
	}
	if start < 0 {
		return mismatch("Exec line does not contain '%s'", argv[0])
	}

	w := &walker{tpl: t.tokens, t: start, argv: argv, logger: logger}
	return w.run()
}

// walker advances a template cursor t and an argv cursor a in step.
type walker struct {
	tpl    []string
	t      int
	argv   []string
	a      int
	logger hclog.Logger
}

func (w *walker) run() error {
	for {
		w.skipIgnored()

		if w.t >= len(w.tpl) {
			if w.a < len(w.argv) {
				return mismatch("argv has unwanted '%s'", w.argv[w.a])
			}
			return nil
		}

		want := w.tpl[w.t]
		w.t++

		code, ok := fieldCode(want)
		if !ok {
			if w.a >= len(w.argv) || w.argv[w.a] != want {
				return mismatch("argv is missing '%s'", want)
			}
			w.a++
			continue
		}

		if err := w.fieldCode(want, code); err != nil {
			return err
		}
	}
}

func (w *walker) fieldCode(want string, code byte) error {
	switch code {
	case 'f', 'u':
		// A single file name or URL, or none.
		return w.consumeOptional(want, 1)
	case 'F', 'U':
		// A list of files or URLs.
		return w.consumeOptional(want, unbounded)
	case 'c', 'k':
		// Translated name, desktop file location.
		return w.consumeRequired(want, 1)
	case 'i':
		// Expands to "--icon <Icon>", or to nothing without an Icon key.
		if w.a < len(w.argv) && w.argv[w.a] == iconFlag {
			w.a++
			return w.consumeRequired(want, 1)
		}
		return nil
	case 'd', 'D', 'n', 'N', 'v', 'm':
		return mismatch("Exec line has deprecated field code '%s'", want)
	default:
		return mismatch("Exec line has unknown field code '%s'", want)
	}
}

// skipIgnored steps over ignored arguments unless the template expects
// that very token next.
func (w *walker) skipIgnored() {
	for w.a < len(w.argv) && w.argv[w.a] == ignoredArg &&
		(w.t >= len(w.tpl) || w.tpl[w.t] != ignoredArg) {
		w.logger.Warn("ignoring argument", "arg", w.argv[w.a])
		w.a++
	}
}

// consumeOptional takes up to limit non-option arguments, stopping early
// at the end of argv or at the token the template expects next.
func (w *walker) consumeOptional(want string, limit int) error {
	next, hasNext := "", w.t < len(w.tpl)
	if hasNext {
		next = w.tpl[w.t]
		if _, ok := fieldCode(next); ok {
			return mismatch("Can't validate '%s %s' combination", want, next)
		}
	}

	for taken := 0; limit == unbounded || taken < limit; {
		if w.a >= len(w.argv) || (hasNext && w.argv[w.a] == next) {
			break
		}
		arg := w.argv[w.a]
		if arg == ignoredArg {
			w.logger.Warn("ignoring argument", "arg", arg)
			w.a++
			continue
		}
		if isOption(arg) {
			return mismatch("option '%s' at field code '%s'", arg, want)
		}
		w.a++
		taken++
	}
	return nil
}

// consumeRequired takes exactly n non-option arguments.
func (w *walker) consumeRequired(want string, n int) error {
	for n > 0 {
		if w.a >= len(w.argv) {
			return mismatch("missing args for field code '%s'", want)
		}
		arg := w.argv[w.a]
		if arg == ignoredArg {
			w.logger.Warn("ignoring argument", "arg", arg)
			w.a++
			continue
		}
		if isOption(arg) {
			return mismatch("option '%s' at field code '%s'", arg, want)
		}
		w.a++
		n--
	}
	return nil
}

// Validate parses exec and matches argv against it. On failure the exec
// line and the full argv are logged after the reason.
func Validate(exec string, argv []string, logger hclog.Logger) error {
	tpl, err := Parse(exec)
	if err == nil {
		err = tpl.Match(argv, logger)
	} else {
		logger.Error("❌ invalid Exec line", "reason", err.Error())
	}
	if err != nil {
		logger.Error("Application args do not match Exec line template")
		logger.Error("exec: " + exec)
		logger.Error("args: " + shellparse.Join(argv))
		return err
	}
	return nil
}
