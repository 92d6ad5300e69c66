// Package launcherrors defines the failure classes of a launch check.
//
// Every class resolves to a denied launch at the public boundary; none of
// them terminates the process.
package launcherrors

import "errors"

var (
	// Authority errors 🚌
	ErrBusConnect = errors.New("❌ cannot connect to permission authority")
	ErrNotFound   = errors.New("❌ application not known to permission authority")
	ErrProtocol   = errors.New("❌ unexpected reply from permission authority")

	// Template errors 📜
	ErrNoExec           = errors.New("❌ no Exec line defined")
	ErrTemplateMismatch = errors.New("❌ arguments do not match Exec line template")

	// Permission errors 🔒
	ErrNoPermissions    = errors.New("❌ no permissions defined")
	ErrPermissionDenied = errors.New("❌ permission not granted")
)
