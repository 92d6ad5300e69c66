// Package authority implements the client side of the permission
// authority's D-Bus API.
package authority

import (
	"fmt"
	"strings"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/launchguard/pkg/appinfo"
	"github.com/provide-io/launchguard/pkg/bus"
	"github.com/provide-io/launchguard/pkg/launcherrors"
)

// Methods of the authority interface.
const (
	MethodGetAppInfo              = "GetAppInfo"
	MethodPromptLaunchPermissions = "PromptLaunchPermissions"
	MethodQueryLaunchPermissions  = "QueryLaunchPermissions"
	MethodGetApplications         = "GetApplications"
)

// The authority answers GetAppInfo for an unknown application with this
// error; it is an expected outcome and stays out of the log.
const (
	errorInvalidArgs       = "org.freedesktop.DBus.Error.InvalidArgs"
	errorInvalidAppNamePfx = "Invalid application name: "
)

// Caller is the part of a bus session the client needs.
type Caller interface {
	Call(method string, args ...interface{}) ([]interface{}, error)
}

// Client issues authority requests over one session.
type Client struct {
	caller Caller
	logger hclog.Logger
}

// NewClient returns a client using caller for every request.
func NewClient(caller Caller, logger hclog.Logger) *Client {
	return &Client{caller: caller, logger: logger}
}

// GetAppInfo fetches the metadata of appID.
//
// An application the authority does not know, and a reply without any
// usable entry, yield launcherrors.ErrNotFound. Other failures yield
// launcherrors.ErrProtocol and are logged.
func (c *Client) GetAppInfo(appID string) (appinfo.AppInfo, error) {
	body, err := c.caller.Call(MethodGetAppInfo, appID)
	if err != nil {
		if isInvalidAppName(err) {
			c.logger.Debug("application not known")
			return nil, fmt.Errorf("%w: %s", launcherrors.ErrNotFound, appID)
		}
		return nil, c.callFailed(MethodGetAppInfo, err)
	}

	if len(body) == 0 {
		c.logger.Error("❌ empty reply received", "method", MethodGetAppInfo)
		return nil, fmt.Errorf("%w: empty %s reply", launcherrors.ErrProtocol, MethodGetAppInfo)
	}
	entries, ok := body[0].(map[string]dbus.Variant)
	if !ok {
		c.logger.Error("❌ reply is not an array of dict entries", "method", MethodGetAppInfo, "type", fmt.Sprintf("%T", body[0]))
		return nil, fmt.Errorf("%w: %s reply has type %T", launcherrors.ErrProtocol, MethodGetAppInfo, body[0])
	}

	info := appinfo.Decode(entries, c.logger)
	if len(info) == 0 {
		// A known application always reports at least its identity.
		c.logger.Warn("no information about application")
		return nil, fmt.Errorf("%w: %s", launcherrors.ErrNotFound, appID)
	}
	c.logger.Debug("info received", "entries", len(info))
	return info, nil
}

// PromptLaunchPermissions asks the authority which permissions appID may
// use. The authority may ask the user first, so the call can block for as
// long as the user takes to answer.
func (c *Client) PromptLaunchPermissions(appID string) ([]string, error) {
	granted, err := c.stringList(MethodPromptLaunchPermissions, appID)
	c.logger.Info("launch permitted", "permitted", err == nil)
	return granted, err
}

// QueryLaunchPermissions returns the permissions already granted to appID
// without prompting.
func (c *Client) QueryLaunchPermissions(appID string) ([]string, error) {
	return c.stringList(MethodQueryLaunchPermissions, appID)
}

// GetApplications lists the application ids the authority knows.
func (c *Client) GetApplications() ([]string, error) {
	return c.stringList(MethodGetApplications)
}

func (c *Client) stringList(method string, args ...interface{}) ([]string, error) {
	body, err := c.caller.Call(method, args...)
	if err != nil {
		return nil, c.callFailed(method, err)
	}
	if len(body) == 0 {
		c.logger.Error("❌ parsing reply failed", "method", method, "error", "empty reply")
		return nil, fmt.Errorf("%w: empty %s reply", launcherrors.ErrProtocol, method)
	}
	list, ok := body[0].([]string)
	if !ok {
		c.logger.Error("❌ parsing reply failed", "method", method, "type", fmt.Sprintf("%T", body[0]))
		return nil, fmt.Errorf("%w: %s reply has type %T", launcherrors.ErrProtocol, method, body[0])
	}
	return list, nil
}

func (c *Client) callFailed(method string, err error) error {
	if name, message, ok := bus.RemoteError(err); ok {
		c.logger.Error("❌ error reply received", "method", method, "name", name, "message", message)
	} else {
		c.logger.Error("❌ method call failed", "method", method, "error", err)
	}
	return fmt.Errorf("%w: %s: %v", launcherrors.ErrProtocol, method, err)
}

func isInvalidAppName(err error) bool {
	name, message, ok := bus.RemoteError(err)
	return ok && name == errorInvalidArgs && strings.HasPrefix(message, errorInvalidAppNamePfx)
}
