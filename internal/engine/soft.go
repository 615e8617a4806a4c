package engine

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/viterin/vek/vek32"
)

const (
	// DefaultMaxPorts matches the jack2 default port table size.
	DefaultMaxPorts = 2048
	// DefaultMaxFrames is the largest block a Soft graph accepts.
	DefaultMaxFrames = 4096
)

// SoftOptions sizes a Soft graph.
type SoftOptions struct {
	MaxPorts  int
	MaxFrames int
}

// WithDefaults fills zero fields.
func (o SoftOptions) WithDefaults() SoftOptions {
	if o.MaxPorts <= 0 {
		o.MaxPorts = DefaultMaxPorts
	}

	if o.MaxFrames <= 0 {
		o.MaxFrames = DefaultMaxFrames
	}

	return o
}

// Stats is a point-in-time view of a Soft graph.
type Stats struct {
	Clients       int
	Ports         int
	Registered    uint64
	Unregistered  uint64
	SkippedCycles uint64
}

// Soft is an in-process audio graph. Clients and ports live in memory, port
// buffers are allocated at registration, and Cycle runs every active
// client's handler for one block. A device driver (or a test) calls Cycle
// from its own audio thread.
//
// Topology changes take the graph lock; Cycle only ever try-locks it and
// outputs silence for the block when the lock is busy.
type Soft struct {
	opts SoftOptions

	mu      sync.Mutex
	clients []*softClient
	ports   map[string]*softPort
	closed  bool

	registered   atomic.Uint64
	unregistered atomic.Uint64
	skipped      atomic.Uint64
}

// NewSoft creates an empty graph.
func NewSoft(opts SoftOptions) *Soft {
	return &Soft{
		opts:  opts.WithDefaults(),
		ports: make(map[string]*softPort),
	}
}

// MaxFrames is the largest block size Cycle processes.
func (s *Soft) MaxFrames() int {
	return s.opts.MaxFrames
}

// Open creates a new, inactive client.
func (s *Soft) Open(name string) (Client, error) {
	if name == "" {
		return nil, fmt.Errorf("client name: %w", ErrInvalidName)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrEngineClosed
	}

	if slices.ContainsFunc(s.clients, func(c *softClient) bool { return c.name == name }) {
		return nil, fmt.Errorf("client %q: %w", name, ErrClientExists)
	}

	c := &softClient{eng: s, name: name}
	s.clients = append(s.clients, c)

	return c, nil
}

// Stats reports counters and current sizes.
func (s *Soft) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Stats{
		Clients:       len(s.clients),
		Ports:         len(s.ports),
		Registered:    s.registered.Load(),
		Unregistered:  s.unregistered.Load(),
		SkippedCycles: s.skipped.Load(),
	}
}

// Cycle processes one block. Input port k of every active client receives
// capture channel (k mod len(capture)); output port k is summed into
// playback channel (k mod len(playback)). Playback buffers are overwritten.
// Blocks larger than MaxFrames are truncated.
func (s *Soft) Cycle(capture, playback [][]float32, nframes uint32) {
	n := min(int(nframes), s.opts.MaxFrames)

	for _, out := range playback {
		clear(out[:min(n, len(out))])
	}

	if !s.mu.TryLock() {
		s.skipped.Add(1)

		return
	}
	defer s.mu.Unlock()

	for _, c := range s.clients {
		if !c.active || c.handler == nil {
			continue
		}

		for k, p := range c.inputs {
			if len(capture) == 0 {
				clear(p.buf[:n])

				continue
			}

			src := capture[k%len(capture)]
			m := copy(p.buf[:n], src)
			clear(p.buf[m:n])
		}

		for _, p := range c.outputs {
			clear(p.buf[:n])
		}

		if c.handler.Process(uint32(n)) == Quit {
			c.active = false

			continue
		}

		if len(playback) == 0 {
			continue
		}

		for k, p := range c.outputs {
			dst := playback[k%len(playback)]
			m := min(n, len(dst))
			vek32.Add_Inplace(dst[:m], p.buf[:m])
		}
	}
}

// Close shuts the graph down, notifying and closing every client.
func (s *Soft) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	clients := slices.Clone(s.clients)
	s.mu.Unlock()

	for _, c := range clients {
		if sh, ok := c.handlerFor().(ShutdownHandler); ok && c.isActive() {
			sh.Shutdown()
		}

		_ = c.Close()
	}

	return nil
}

type softClient struct {
	eng  *Soft
	name string

	// guarded by eng.mu
	handler ProcessHandler
	active  bool
	closed  bool
	inputs  []*softPort
	outputs []*softPort
}

func (c *softClient) Name() string {
	return c.name
}

func (c *softClient) SetProcessHandler(h ProcessHandler) error {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	if c.active {
		return ErrClientActive
	}

	c.handler = h

	return nil
}

func (c *softClient) Activate() error {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	c.active = true

	return nil
}

func (c *softClient) Deactivate() error {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	c.active = false

	return nil
}

func (c *softClient) RegisterPort(name string, dir Direction) (Port, error) {
	if name == "" {
		return nil, fmt.Errorf("port name: %w", ErrInvalidName)
	}

	full := c.name + ":" + name

	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return nil, ErrClientClosed
	}

	if _, ok := c.eng.ports[full]; ok {
		return nil, fmt.Errorf("port %q: %w", full, ErrPortExists)
	}

	if len(c.eng.ports) >= c.eng.opts.MaxPorts {
		return nil, fmt.Errorf("port %q: %w (%d)", full, ErrTooManyPorts, c.eng.opts.MaxPorts)
	}

	p := &softPort{
		name:   full,
		dir:    dir,
		client: c,
		buf:    make([]float32, c.eng.opts.MaxFrames),
	}

	c.eng.ports[full] = p
	if dir == Input {
		c.inputs = append(c.inputs, p)
	} else {
		c.outputs = append(c.outputs, p)
	}

	c.eng.registered.Add(1)

	return p, nil
}

func (c *softClient) UnregisterPort(port Port) error {
	p, ok := port.(*softPort)
	if !ok || p.client != c {
		return ErrUnknownPort
	}

	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}

	return c.unregisterLocked(p)
}

func (c *softClient) unregisterLocked(p *softPort) error {
	if _, ok := c.eng.ports[p.name]; !ok {
		return fmt.Errorf("port %q: %w", p.name, ErrUnknownPort)
	}

	delete(c.eng.ports, p.name)
	if p.dir == Input {
		c.inputs = slices.DeleteFunc(c.inputs, func(q *softPort) bool { return q == p })
	} else {
		c.outputs = slices.DeleteFunc(c.outputs, func(q *softPort) bool { return q == p })
	}

	c.eng.unregistered.Add(1)

	return nil
}

func (c *softClient) Close() error {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	if c.closed {
		return nil
	}

	c.active = false

	for _, p := range slices.Concat(c.inputs, c.outputs) {
		_ = c.unregisterLocked(p)
	}

	c.closed = true
	c.eng.clients = slices.DeleteFunc(c.eng.clients, func(o *softClient) bool { return o == c })

	return nil
}

func (c *softClient) handlerFor() ProcessHandler {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	return c.handler
}

func (c *softClient) isActive() bool {
	c.eng.mu.Lock()
	defer c.eng.mu.Unlock()

	return c.active
}

type softPort struct {
	name   string
	dir    Direction
	client *softClient
	buf    []float32
}

func (p *softPort) Name() string {
	return p.name
}

func (p *softPort) Direction() Direction {
	return p.dir
}

func (p *softPort) Buffer(nframes uint32) []float32 {
	return p.buf[:min(int(nframes), len(p.buf))]
}
