// Package authoritytest provides an in-memory permission authority that
// satisfies bus.Conn.
package authoritytest

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/provide-io/launchguard/pkg/bus"
)

// Fake answers authority calls from its fields. The zero value knows no
// applications.
type Fake struct {
	// Apps holds the GetAppInfo reply per application id.
	Apps map[string]map[string]dbus.Variant
	// Granted holds the permission list returned by both the prompt and
	// the query method.
	Granted map[string][]string
	// Errors forces a method to fail with the given error.
	Errors map[string]error
	// Bodies overrides the reply body of a method.
	Bodies map[string][]interface{}

	Calls  []string
	Closes int

	mu sync.Mutex
}

var _ bus.Conn = (*Fake)(nil)

// Dialer returns a dialer handing out f.
func (f *Fake) Dialer() bus.Dialer {
	return func() (bus.Conn, error) { return f, nil }
}

func (f *Fake) Call(method string, args ...interface{}) ([]interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, method)
	if err := f.Errors[method]; err != nil {
		return nil, err
	}
	if body, ok := f.Bodies[method]; ok {
		return body, nil
	}

	switch method {
	case "GetAppInfo":
		info, ok := f.Apps[appID(args)]
		if !ok {
			return nil, InvalidAppName(appID(args))
		}
		return []interface{}{info}, nil
	case "PromptLaunchPermissions", "QueryLaunchPermissions":
		if _, ok := f.Apps[appID(args)]; !ok {
			return nil, InvalidAppName(appID(args))
		}
		granted := f.Granted[appID(args)]
		if granted == nil {
			granted = []string{}
		}
		return []interface{}{granted}, nil
	case "GetApplications":
		ids := make([]string, 0, len(f.Apps))
		for id := range f.Apps {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return []interface{}{ids}, nil
	}
	return nil, dbus.Error{
		Name: "org.freedesktop.DBus.Error.UnknownMethod",
		Body: []interface{}{fmt.Sprintf("Unknown method %s", method)},
	}
}

func (f *Fake) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Closes++
	return nil
}

// Export serves f on conn at ep and claims ep.Service, so clients reach
// it over a real bus.
func (f *Fake) Export(conn *dbus.Conn, ep bus.Endpoint) error {
	if err := conn.Export(exported{f}, ep.Path, ep.Interface); err != nil {
		return err
	}
	reply, err := conn.RequestName(ep.Service, dbus.NameFlagDoNotQueue)
	if err != nil {
		return err
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already owned", ep.Service)
	}
	return nil
}

// exported adapts Fake to the method signatures godbus exports.
type exported struct {
	f *Fake
}

func (e exported) GetAppInfo(id string) (map[string]dbus.Variant, *dbus.Error) {
	body, err := e.f.Call("GetAppInfo", id)
	if err != nil {
		return nil, replyError(err)
	}
	info, ok := body[0].(map[string]dbus.Variant)
	if !ok {
		return nil, dbus.MakeFailedError(fmt.Errorf("unexpected body %T", body[0]))
	}
	return info, nil
}

func (e exported) PromptLaunchPermissions(id string) ([]string, *dbus.Error) {
	return e.stringList("PromptLaunchPermissions", id)
}

func (e exported) QueryLaunchPermissions(id string) ([]string, *dbus.Error) {
	return e.stringList("QueryLaunchPermissions", id)
}

func (e exported) GetApplications() ([]string, *dbus.Error) {
	return e.stringList("GetApplications")
}

func (e exported) stringList(method string, args ...interface{}) ([]string, *dbus.Error) {
	body, err := e.f.Call(method, args...)
	if err != nil {
		return nil, replyError(err)
	}
	list, ok := body[0].([]string)
	if !ok {
		return nil, dbus.MakeFailedError(fmt.Errorf("unexpected body %T", body[0]))
	}
	return list, nil
}

func replyError(err error) *dbus.Error {
	var dbusErr dbus.Error
	if errors.As(err, &dbusErr) {
		return &dbusErr
	}
	return dbus.MakeFailedError(err)
}

// InvalidAppName is the error the authority returns for unknown ids.
func InvalidAppName(id string) error {
	return dbus.Error{
		Name: "org.freedesktop.DBus.Error.InvalidArgs",
		Body: []interface{}{"Invalid application name: " + id},
	}
}

// App builds a GetAppInfo reply.
func App(exec string, permissions []string, mode string) map[string]dbus.Variant {
	info := map[string]dbus.Variant{
		"Name": dbus.MakeVariant("Test App"),
		"Exec": dbus.MakeVariant(exec),
		"Mode": dbus.MakeVariant(mode),
	}
	if permissions != nil {
		info["Permissions"] = dbus.MakeVariant(permissions)
	}
	return info
}

func appID(args []interface{}) string {
	if len(args) == 0 {
		return ""
	}
	id, _ := args[0].(string)
	return id
}
