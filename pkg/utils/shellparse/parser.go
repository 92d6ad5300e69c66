// Package shellparse splits desktop entry Exec lines into argument vectors
// using POSIX shell quoting rules.
//
// Quoting follows what launchers apply to Exec values: single quotes are
// literal, double quotes honour backslash escapes for " \ $ and `, a
// backslash outside quotes escapes any character, and a backslash-newline
// pair joins lines. A '#' that starts a word begins a comment running to
// the end of the line. No expansion of any kind is performed.
package shellparse

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var (
	// ErrUnclosedQuote is returned when a quoted string is not properly closed
	ErrUnclosedQuote = errors.New("unclosed quote in command string")

	// ErrTrailingEscape is returned when a backslash appears at the end of input
	ErrTrailingEscape = errors.New("trailing escape character at end of command")
)

type splitter struct {
	runes   []rune
	pos     int
	words   []string
	current strings.Builder
	// inWord is set once any part of a word, including an empty quoted
	// string, has been seen.
	inWord bool
}

// Split parses a command string into arguments.
//
//	Split(`app --flag "two words" %U`) => ["app", "--flag", "two words", "%U"]
//	Split(`sh -c 'echo $HOME' # note`) => ["sh", "-c", "echo $HOME"]
func Split(input string) ([]string, error) {
	s := &splitter{runes: []rune(input), words: []string{}}
	for s.pos < len(s.runes) {
		ch := s.runes[s.pos]
		switch {
		case ch == '\\':
			if err := s.escape(); err != nil {
				return nil, err
			}
		case ch == '\'':
			if err := s.singleQuoted(); err != nil {
				return nil, err
			}
		case ch == '"':
			if err := s.doubleQuoted(); err != nil {
				return nil, err
			}
		case ch == '#' && !s.inWord:
			s.comment()
		case isSeparator(ch):
			s.endWord()
			s.pos++
		default:
			s.current.WriteRune(ch)
			s.inWord = true
			s.pos++
		}
	}
	s.endWord()
	return s.words, nil
}

// isSeparator reports whether ch ends a word. Other whitespace, such as
// a no-break space or a form feed, is part of the word.
func isSeparator(ch rune) bool {
	return ch == ' ' || ch == '\t' || ch == '\n'
}

func (s *splitter) endWord() {
	if s.inWord {
		s.words = append(s.words, s.current.String())
		s.current.Reset()
		s.inWord = false
	}
}

func (s *splitter) escape() error {
	if s.pos+1 >= len(s.runes) {
		return ErrTrailingEscape
	}
	next := s.runes[s.pos+1]
	s.pos += 2
	if next == '\n' {
		return nil
	}
	s.current.WriteRune(next)
	s.inWord = true
	return nil
}

func (s *splitter) singleQuoted() error {
	s.inWord = true
	for s.pos++; s.pos < len(s.runes); s.pos++ {
		if s.runes[s.pos] == '\'' {
			s.pos++
			return nil
		}
		s.current.WriteRune(s.runes[s.pos])
	}
	return fmt.Errorf("%w: unclosed single quote", ErrUnclosedQuote)
}

func (s *splitter) doubleQuoted() error {
	s.inWord = true
	for s.pos++; s.pos < len(s.runes); s.pos++ {
		ch := s.runes[s.pos]
		switch ch {
		case '"':
			s.pos++
			return nil
		case '\\':
			if s.pos+1 >= len(s.runes) {
				return fmt.Errorf("%w: unclosed double quote", ErrUnclosedQuote)
			}
			next := s.runes[s.pos+1]
			switch next {
			case '"', '\\', '$', '`':
				s.current.WriteRune(next)
			case '\n':
			default:
				s.current.WriteRune('\\')
				s.current.WriteRune(next)
			}
			s.pos++
		default:
			s.current.WriteRune(ch)
		}
	}
	return fmt.Errorf("%w: unclosed double quote", ErrUnclosedQuote)
}

func (s *splitter) comment() {
	for s.pos < len(s.runes) && s.runes[s.pos] != '\n' {
		s.pos++
	}
}

// Join renders args as a single line for diagnostics, quoting arguments
// that would not survive a round trip through Split.
func Join(args []string) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = quote(arg)
	}
	return strings.Join(parts, " ")
}

func quote(arg string) string {
	if arg == "" {
		return "''"
	}
	if !strings.ContainsFunc(arg, needsQuoting) && !strings.HasPrefix(arg, "#") {
		return arg
	}
	if !strings.Contains(arg, "'") {
		return "'" + arg + "'"
	}

	var b strings.Builder
	b.WriteByte('"')
	for _, ch := range arg {
		switch ch {
		case '"', '\\', '$', '`':
			b.WriteByte('\\')
		}
		b.WriteRune(ch)
	}
	b.WriteByte('"')
	return b.String()
}

func needsQuoting(ch rune) bool {
	return unicode.IsSpace(ch) || strings.ContainsRune(`'"\$`+"`", ch)
}
