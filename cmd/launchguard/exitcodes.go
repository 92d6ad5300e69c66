package main

import (
	"errors"

	"github.com/provide-io/launchguard/pkg/launcherrors"
)

// Exit codes
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitDenied        = 10
	ExitNotFound      = 11
	ExitBusError      = 12
	ExitProtocolError = 13
	ExitPanic         = 101
	ExitInvalidArgs   = 105
)

// exitError carries the status a command wants the process to end with.
type exitError struct {
	code int
	err  error
	// reported is set when the failure was already logged or printed.
	reported bool
}

func (e *exitError) Error() string {
	if e.err == nil {
		return "exit status"
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode classifies err into a process exit status.
func exitCode(err error) int {
	var ee *exitError
	switch {
	case err == nil:
		return ExitSuccess
	case errors.As(err, &ee):
		return ee.code
	case errors.Is(err, launcherrors.ErrNotFound):
		return ExitNotFound
	case errors.Is(err, launcherrors.ErrBusConnect):
		return ExitBusError
	case errors.Is(err, launcherrors.ErrProtocol):
		return ExitProtocolError
	case errors.Is(err, launcherrors.ErrTemplateMismatch),
		errors.Is(err, launcherrors.ErrNoExec),
		errors.Is(err, launcherrors.ErrNoPermissions),
		errors.Is(err, launcherrors.ErrPermissionDenied):
		return ExitDenied
	default:
		return ExitFailure
	}
}
