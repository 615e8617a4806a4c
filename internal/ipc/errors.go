package ipc

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/godbus/dbus/v5"
)

// ErrNameTaken is returned by Listen when another process owns the bus name.
var ErrNameTaken = errors.New("bus name already owned")

// toDBusError maps a mixer error onto a D-Bus error reply. The first body
// element is the error text; UnknownStrip and AlreadyExists also carry the
// strip name.
func (n Names) toDBusError(err error) *dbus.Error {
	if err == nil {
		return nil
	}

	var (
		unknown *mixer.UnknownStripError
		exists  *mixer.AlreadyExistsError
	)

	switch {
	case errors.As(err, &unknown):
		return dbus.NewError(n.errUnknownStrip(), []interface{}{err.Error(), unknown.Name})
	case errors.As(err, &exists):
		return dbus.NewError(n.errAlreadyExists(), []interface{}{err.Error(), exists.Name})
	case errors.Is(err, mixer.ErrInvalidArgument):
		return dbus.NewError(errInvalidArgs, []interface{}{err.Error()})
	case errors.Is(err, mixer.ErrPortOperation):
		return dbus.NewError(n.errPortOperation(), []interface{}{err.Error()})
	default:
		return dbus.NewError(errFailed, []interface{}{err.Error()})
	}
}

// fromDBusError turns an error reply back into the mixer error it came from
// so callers can match it with errors.Is and errors.As.
func (n Names) fromDBusError(err error) error {
	name, body, ok := dbusErrorParts(err)
	if !ok {
		return err
	}

	text := err.Error()
	if len(body) > 0 {
		if s, ok := body[0].(string); ok {
			text = s
		}
	}

	strip := ""
	if len(body) > 1 {
		strip, _ = body[1].(string)
	}

	switch name {
	case n.errUnknownStrip():
		return &mixer.UnknownStripError{Name: strip}
	case n.errAlreadyExists():
		return &mixer.AlreadyExistsError{Name: strip}
	case errInvalidArgs:
		return fmt.Errorf("%w: %s", mixer.ErrInvalidArgument, trimSentinel(text, mixer.ErrInvalidArgument))
	case n.errPortOperation():
		return fmt.Errorf("%w: %s", mixer.ErrPortOperation, trimSentinel(text, mixer.ErrPortOperation))
	default:
		return fmt.Errorf("%s: %s", name, text)
	}
}

func dbusErrorParts(err error) (string, []interface{}, bool) {
	var byValue dbus.Error
	if errors.As(err, &byValue) {
		return byValue.Name, byValue.Body, true
	}

	var byPointer *dbus.Error
	if errors.As(err, &byPointer) {
		return byPointer.Name, byPointer.Body, true
	}

	return "", nil, false
}

func trimSentinel(text string, sentinel error) string {
	return strings.TrimPrefix(text, sentinel.Error()+": ")
}
