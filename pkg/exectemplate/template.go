// Package exectemplate checks a requested argument vector against the
// Exec line template of a desktop entry.
//
// Field codes follow the Desktop Entry Specification:
// https://specifications.freedesktop.org/desktop-entry-spec/latest/exec-variables.html
package exectemplate

import (
	"fmt"

	"github.com/provide-io/launchguard/pkg/launcherrors"
	"github.com/provide-io/launchguard/pkg/utils/shellparse"
)

// ignoredArg is injected by launch boosters and carries no meaning for the
// application, so it may appear anywhere in argv.
const ignoredArg = "-prestart"

// iconFlag introduces the value a %i field code expands to.
const iconFlag = "--icon"

// Template is a parsed Exec line.
type Template struct {
	exec   string
	tokens []string
}

// Parse splits an Exec line into its tokens.
func Parse(exec string) (*Template, error) {
	tokens, err := shellparse.Split(exec)
	if err != nil {
		return nil, &MismatchError{Reason: fmt.Sprintf("Exec line parse failure: %v", err)}
	}
	if len(tokens) == 0 {
		return nil, &MismatchError{Reason: "Exec line not defined"}
	}
	return &Template{exec: exec, tokens: tokens}, nil
}

// fromTokens builds a Template from already split tokens.
func fromTokens(tokens ...string) *Template {
	return &Template{
		exec:   shellparse.Join(tokens),
		tokens: append([]string(nil), tokens...),
	}
}

// String returns the Exec line the template was built from.
func (t *Template) String() string {
	return t.exec
}

// MismatchError describes the first reason argv failed to match.
type MismatchError struct {
	Reason string
}

func (e *MismatchError) Error() string {
	return e.Reason
}

func (e *MismatchError) Unwrap() error {
	return launcherrors.ErrTemplateMismatch
}

func mismatch(format string, args ...interface{}) error {
	return &MismatchError{Reason: fmt.Sprintf(format, args...)}
}

// fieldCode returns the code letter of a "%c" token.
func fieldCode(token string) (byte, bool) {
	if len(token) == 2 && token[0] == '%' {
		return token[1], true
	}
	return 0, false
}

func isOption(arg string) bool {
	return len(arg) > 0 && arg[0] == '-'
}
