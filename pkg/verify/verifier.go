// Package verify decides whether an application launch may proceed.
//
// A check opens its own authority session, fetches the application's
// metadata, matches the requested argv against the Exec line template,
// resolves the granted permissions and compares them with the declared
// ones. Nothing is cached between checks.
package verify

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/launchguard/pkg/appinfo"
	"github.com/provide-io/launchguard/pkg/authority"
	"github.com/provide-io/launchguard/pkg/bus"
	"github.com/provide-io/launchguard/pkg/exectemplate"
	"github.com/provide-io/launchguard/pkg/launcherrors"
	"github.com/provide-io/launchguard/pkg/utils/permissions"
)

// Options tune how permissions are resolved.
type Options struct {
	// NoPrompt resolves permissions with QueryLaunchPermissions, which
	// never asks the user, instead of PromptLaunchPermissions.
	NoPrompt bool
}

// Verifier runs launch checks against the authority reached through dial.
type Verifier struct {
	dial   bus.Dialer
	logger hclog.Logger
	opts   Options
}

// New returns a Verifier.
func New(dial bus.Dialer, logger hclog.Logger, opts Options) *Verifier {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Verifier{dial: dial, logger: logger, opts: opts}
}

// VerifyLaunch reports whether argv is an allowed invocation of desktopID
// and every permission it declares has been granted.
func (v *Verifier) VerifyLaunch(desktopID string, argv []string) bool {
	return v.Check(desktopID, argv) == nil
}

// Check is VerifyLaunch returning the reason for a denial. The error wraps
// one of the launcherrors sentinels.
func (v *Verifier) Check(desktopID string, argv []string) error {
	logger := v.logger.With("app", desktopID)
	state := StateStart

	err := v.withClient(logger, func(client *authority.Client) error {
		state = transition(logger, state, StateConnected)

		info, err := client.GetAppInfo(desktopID)
		if err != nil {
			return err
		}
		state = transition(logger, state, StateInfoFetched)

		exec, ok := info.String(appinfo.KeyExec)
		if !ok {
			logger.Error("❌ no Exec line defined for application")
			return fmt.Errorf("%w: %s", launcherrors.ErrNoExec, desktopID)
		}
		if err := exectemplate.Validate(exec, argv, logger); err != nil {
			return err
		}
		state = transition(logger, state, StateArgvValidated)

		required, ok := info.Strings(appinfo.KeyPermissions)
		if !ok {
			logger.Error("❌ no permissions defined for application")
			return fmt.Errorf("%w: %s", launcherrors.ErrNoPermissions, desktopID)
		}

		granted, err := v.resolvePermissions(client, desktopID, logger)
		if err != nil {
			return err
		}
		state = transition(logger, state, StatePermissionsResolved)

		set := permissions.NewSet(granted)
		logger.Debug("permissions granted", "granted", set.Sorted())
		if missing, ok := set.FirstMissing(required); ok {
			logger.Error("❌ application has not been granted permission", "permission", missing)
			return fmt.Errorf("%w: %s: %s", launcherrors.ErrPermissionDenied, desktopID, missing)
		}
		return nil
	})

	if err != nil {
		transition(logger, state, StateFailed)
		return err
	}
	transition(logger, state, StateDecided)
	return nil
}

func (v *Verifier) resolvePermissions(client *authority.Client, desktopID string, logger hclog.Logger) ([]string, error) {
	if v.opts.NoPrompt {
		logger.Debug("querying permissions for application")
		return client.QueryLaunchPermissions(desktopID)
	}
	logger.Debug("prompting permissions for application")
	return client.PromptLaunchPermissions(desktopID)
}

// IsSandboxed reports whether desktopID must run inside a sandbox. It is
// false when the application is unknown, the authority is unreachable, or
// the Mode key is missing or "None".
func (v *Verifier) IsSandboxed(desktopID string) bool {
	info, err := v.AppInfo(desktopID)
	if err != nil {
		return false
	}
	return info.Sandboxed()
}

// AppInfo fetches the metadata of desktopID in a session of its own.
func (v *Verifier) AppInfo(desktopID string) (appinfo.AppInfo, error) {
	logger := v.logger.With("app", desktopID)
	var info appinfo.AppInfo
	err := v.withClient(logger, func(client *authority.Client) error {
		var err error
		info, err = client.GetAppInfo(desktopID)
		return err
	})
	return info, err
}

// Applications lists the application ids known to the authority.
func (v *Verifier) Applications() ([]string, error) {
	var apps []string
	err := v.withClient(v.logger, func(client *authority.Client) error {
		var err error
		apps, err = client.GetApplications()
		return err
	})
	return apps, err
}

// withClient runs fn with a client on a fresh session and closes the
// session however fn returns.
func (v *Verifier) withClient(logger hclog.Logger, fn func(*authority.Client) error) error {
	session, err := bus.Open(v.dial, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Debug("Failed to close session", "error", err)
		}
	}()
	return fn(authority.NewClient(session, logger))
}
