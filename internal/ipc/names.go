// Package ipc is the mixer's D-Bus surface: the service a running owner
// exports on the session bus and the client a second invocation uses to
// forward its command.
package ipc

import (
	"time"

	"github.com/godbus/dbus/v5"
)

const (
	// DefaultBusName is both the well-known bus name and the interface name.
	DefaultBusName = "com.jackAutoconnect.jackAutoconnect"
	// ObjectPath is where the service is exported.
	ObjectPath dbus.ObjectPath = "/"
	// DefaultCallTimeout bounds every client-side call.
	DefaultCallTimeout = 5 * time.Second

	introspectableInterface = "org.freedesktop.DBus.Introspectable"

	errInvalidArgs = "org.freedesktop.DBus.Error.InvalidArgs"
	errFailed      = "org.freedesktop.DBus.Error.Failed"
)

// Method and signal names, relative to the interface.
const (
	MethodInstanceRunning = "InstanceRunning"
	MethodSetGainFactor   = "SetGainFactor"
	MethodAddStrip        = "AddStrip"
	MethodRemoveStrip     = "RemoveStrip"
	MethodSetChannels     = "SetChannels"
	MethodGetState        = "GetState"
	SignalStripChanged    = "StripChanged"
)

// Names derives every D-Bus name from the configured bus name.
type Names struct {
	Bus string
}

func (n Names) busName() string {
	if n.Bus == "" {
		return DefaultBusName
	}

	return n.Bus
}

// Interface is the service interface name.
func (n Names) Interface() string {
	return n.busName()
}

// Member qualifies a method or signal with the interface.
func (n Names) Member(name string) string {
	return n.Interface() + "." + name
}

func (n Names) errUnknownStrip() string {
	return n.Interface() + ".Error.UnknownStrip"
}

func (n Names) errAlreadyExists() string {
	return n.Interface() + ".Error.AlreadyExists"
}

func (n Names) errPortOperation() string {
	return n.Interface() + ".Error.PortOperationFailed"
}
