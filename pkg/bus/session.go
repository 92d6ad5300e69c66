// Package bus manages request/reply sessions with the permission authority
// over D-Bus.
//
// Every session owns a private connection. Calls block without a client
// side timeout because the authority may be waiting for the user to
// answer a permission prompt.
package bus

import (
	"errors"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/hashicorp/go-hclog"
	"github.com/provide-io/launchguard/pkg/launcherrors"
)

// Well-known name, object and interface of the permission authority.
const (
	DefaultService   = "org.sailfishos.sailjaild1"
	DefaultPath      = "/org/sailfishos/sailjaild1"
	DefaultInterface = "org.sailfishos.sailjaild1"
)

// Endpoint addresses the authority object on the bus.
type Endpoint struct {
	Service   string
	Path      dbus.ObjectPath
	Interface string
}

// DefaultEndpoint is where the authority lives on the system bus.
var DefaultEndpoint = Endpoint{
	Service:   DefaultService,
	Path:      DefaultPath,
	Interface: DefaultInterface,
}

// Conn performs blocking method calls on the authority.
type Conn interface {
	// Call invokes method on the authority interface and returns the reply
	// body. Error replies are returned as dbus.Error values.
	Call(method string, args ...interface{}) ([]interface{}, error)
	Close() error
}

// Dialer opens a new, unshared Conn.
type Dialer func() (Conn, error)

// SystemDialer connects to the system bus. Each call opens a private
// connection; the process-wide shared connection is never used.
func SystemDialer(ep Endpoint) Dialer {
	return func() (Conn, error) {
		conn, err := dbus.ConnectSystemBus()
		if err != nil {
			return nil, err
		}
		return newDBusConn(conn, ep), nil
	}
}

// AddressDialer connects to the bus listening at address, e.g.
// "unix:path=/run/dbus/system_bus_socket".
func AddressDialer(address string, ep Endpoint) Dialer {
	return func() (Conn, error) {
		conn, err := dbus.Connect(address)
		if err != nil {
			return nil, err
		}
		return newDBusConn(conn, ep), nil
	}
}

type dbusConn struct {
	conn  *dbus.Conn
	obj   dbus.BusObject
	iface string
}

func newDBusConn(conn *dbus.Conn, ep Endpoint) *dbusConn {
	return &dbusConn{
		conn:  conn,
		obj:   conn.Object(ep.Service, ep.Path),
		iface: ep.Interface,
	}
}

func (c *dbusConn) Call(method string, args ...interface{}) ([]interface{}, error) {
	call := c.obj.Call(c.iface+"."+method, 0, args...)
	return call.Body, call.Err
}

func (c *dbusConn) Close() error {
	return c.conn.Close()
}

// Session is one connection to the authority, used for the duration of a
// single check and then closed.
type Session struct {
	conn   Conn
	logger hclog.Logger
	closed bool
}

// Open dials a new session. The error wraps launcherrors.ErrBusConnect.
func Open(dial Dialer, logger hclog.Logger) (*Session, error) {
	conn, err := dial()
	if err != nil {
		logger.Error("❌ bus connect failed", "error", err)
		return nil, fmt.Errorf("%w: %v", launcherrors.ErrBusConnect, err)
	}
	logger.Debug("🚌 private connection opened")
	return &Session{conn: conn, logger: logger}, nil
}

// Call performs a blocking method call.
func (s *Session) Call(method string, args ...interface{}) ([]interface{}, error) {
	if s.closed {
		return nil, fmt.Errorf("%w: session closed", launcherrors.ErrBusConnect)
	}
	s.logger.Trace("calling authority", "method", method, "args", args)
	return s.conn.Call(method, args...)
}

// Close releases the connection. Calling it more than once is harmless.
func (s *Session) Close() error {
	if s == nil || s.closed {
		return nil
	}
	s.closed = true
	s.logger.Debug("🚌 private connection closed")
	return s.conn.Close()
}

// RemoteError extracts the D-Bus error name and message from err.
func RemoteError(err error) (name, message string, ok bool) {
	var value dbus.Error
	if errors.As(err, &value) {
		return value.Name, value.Error(), true
	}
	var ptr *dbus.Error
	if errors.As(err, &ptr) && ptr != nil {
		return ptr.Name, ptr.Error(), true
	}
	return "", "", false
}
