// Package engine defines the audio engine surface the mixer is built on:
// named clients, uniquely-named mono float32 ports and a process callback
// invoked once per fixed-size block on the audio thread.
package engine

import "errors"

var (
	ErrInvalidName  = errors.New("invalid name")
	ErrClientExists = errors.New("client already exists")
	ErrClientClosed = errors.New("client closed")
	ErrClientActive = errors.New("client is active")
	ErrPortExists   = errors.New("port already exists")
	ErrUnknownPort  = errors.New("port not owned by client")
	ErrTooManyPorts = errors.New("port limit reached")
	ErrEngineClosed = errors.New("engine closed")
)

// Direction is the data flow of a port, seen from the owning client.
type Direction int

const (
	Input Direction = iota
	Output
)

func (d Direction) String() string {
	if d == Output {
		return "output"
	}

	return "input"
}

// Control is returned by a process handler to tell the engine whether the
// client keeps running.
type Control int

const (
	Continue Control = iota
	Quit
)

// ProcessHandler runs on the audio thread once per block. Implementations
// must not block, allocate or log.
type ProcessHandler interface {
	Process(nframes uint32) Control
}

// ShutdownHandler is an optional lifecycle hook, called when the engine goes
// away underneath an active client.
type ShutdownHandler interface {
	Shutdown()
}

// NopHandler processes nothing.
type NopHandler struct{}

func (NopHandler) Process(uint32) Control { return Continue }

// Engine opens clients.
type Engine interface {
	Open(name string) (Client, error)
}

// Client owns a set of ports and one process handler.
type Client interface {
	Name() string

	// SetProcessHandler installs the per-block callback. It must be called
	// before Activate.
	SetProcessHandler(h ProcessHandler) error

	Activate() error
	Deactivate() error

	RegisterPort(name string, dir Direction) (Port, error)
	UnregisterPort(p Port) error

	// Close deactivates the client and releases every port it still owns.
	Close() error
}

// Port is a mono float32 connection point. Buffer is only valid inside a
// process callback and for the given block size.
type Port interface {
	Name() string
	Direction() Direction
	Buffer(nframes uint32) []float32
}
