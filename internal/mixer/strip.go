package mixer

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/alkime/jackmixer/internal/engine"
)

// ChannelPolicy bounds the number of port pairs a strip may have.
type ChannelPolicy struct {
	Min     int
	Max     int
	Default int
}

// DefaultChannelPolicy allows 0..100 pairs and starts strips in stereo.
func DefaultChannelPolicy() ChannelPolicy {
	return ChannelPolicy{Min: 0, Max: 100, Default: 2}
}

// Validate checks that the policy is self-consistent.
func (p ChannelPolicy) Validate() error {
	if p.Min < 0 || p.Max < p.Min {
		return fmt.Errorf("%w: channel range %d..%d", ErrInvalidArgument, p.Min, p.Max)
	}

	if p.Default < p.Min || p.Default > p.Max {
		return fmt.Errorf("%w: default channel count %d outside %d..%d",
			ErrInvalidArgument, p.Default, p.Min, p.Max)
	}

	return nil
}

func (p ChannelPolicy) check(n int) error {
	if n < p.Min || n > p.Max {
		return fmt.Errorf("%w: a strip must have %d-%d channels, got %d", ErrInvalidArgument, p.Min, p.Max, n)
	}

	return nil
}

type portPair struct {
	in  engine.Port
	out engine.Port
}

// Strip is one named mixing group: a gain and an ordered list of
// input/output port pairs registered on its own engine client.
//
// Only the control loop calls the mutating methods. The audio thread reads
// gain and pairs through the process callback, under a try-lock.
type Strip struct {
	name   string
	client engine.Client
	policy ChannelPolicy

	mu    sync.Mutex
	gain  float32
	pairs []portPair

	skipped  atomic.Uint64
	orphaned atomic.Bool
}

// NewStrip opens an engine client named clientName, installs the process
// callback, activates the client and grows to the policy's default channel
// count.
func NewStrip(eng engine.Engine, clientName, name string, policy ChannelPolicy) (*Strip, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: strip name cannot be empty", ErrInvalidArgument)
	}

	client, err := eng.Open(clientName)
	if err != nil {
		return nil, fmt.Errorf("%w: open client %q: %w", ErrPortOperation, clientName, err)
	}

	s := &Strip{
		name:   name,
		client: client,
		policy: policy,
		gain:   1,
	}

	if err := client.SetProcessHandler(processor{strip: s}); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: set process handler: %w", ErrPortOperation, err)
	}

	if err := client.Activate(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("%w: activate client %q: %w", ErrPortOperation, clientName, err)
	}

	if err := s.SetChannels(policy.Default); err != nil {
		_ = client.Close()

		return nil, err
	}

	return s, nil
}

// Name returns the strip name.
func (s *Strip) Name() string {
	return s.name
}

// GainFactor returns the current gain.
func (s *Strip) GainFactor() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.gain
}

// Channels returns the number of port pairs.
func (s *Strip) Channels() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.pairs)
}

// SkippedBlocks counts audio blocks the callback skipped because the strip
// was being mutated.
func (s *Strip) SkippedBlocks() uint64 {
	return s.skipped.Load()
}

// SetGainFactor stores a gain in [0, MaxGainFactor].
func (s *Strip) SetGainFactor(g float32) error {
	if !(g >= 0 && g <= MaxGainFactor) { // also rejects NaN
		return fmt.Errorf("%w: gain factor %v outside 0..%v", ErrInvalidArgument, g, MaxGainFactor)
	}

	s.mu.Lock()
	s.gain = g
	s.mu.Unlock()

	return nil
}

// SetChannels grows or shrinks the strip to n port pairs. Calling it with
// the current count touches no ports.
//
// Growing is all-or-nothing: if the engine rejects a registration, the ports
// registered by this call are released and the strip keeps its old count.
// Shrinking detaches the surplus pairs in one step before unregistering them.
func (s *Strip) SetChannels(n int) error {
	if err := s.policy.check(n); err != nil {
		return err
	}

	return s.resize(n)
}

// Destroy releases every port and closes the engine client. The strip must
// not be used afterwards.
func (s *Strip) Destroy() error {
	err := s.resize(0)

	if s.orphaned.Load() {
		// the engine already tore the client down
		return nil
	}

	if derr := s.client.Deactivate(); derr != nil {
		err = errors.Join(err, fmt.Errorf("%w: deactivate %q: %w", ErrPortOperation, s.client.Name(), derr))
	}

	if cerr := s.client.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("%w: close %q: %w", ErrPortOperation, s.client.Name(), cerr))
	}

	return err
}

// Summary renders the strip as one state line.
func (s *Strip) Summary() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return FormatSummary(s.name, len(s.pairs), s.gain)
}

func (s *Strip) resize(n int) error {
	s.mu.Lock()
	current := len(s.pairs)
	s.mu.Unlock()

	switch {
	case n > current:
		return s.grow(current, n)
	case n < current:
		return s.shrink(n)
	default:
		return nil
	}
}

func (s *Strip) grow(from, to int) error {
	added := make([]portPair, 0, to-from)

	for k := from + 1; k <= to; k++ {
		pair, err := s.registerPair(k)
		if err != nil {
			rollback := s.release(added)

			return errors.Join(
				fmt.Errorf("%w: strip %s: channel %d: %w", ErrPortOperation, s.name, k, err),
				rollback,
			)
		}

		added = append(added, pair)
	}

	s.mu.Lock()
	s.pairs = append(s.pairs, added...)
	s.mu.Unlock()

	return nil
}

func (s *Strip) shrink(to int) error {
	s.mu.Lock()
	removed := slices.Clone(s.pairs[to:])
	s.pairs = slices.Delete(s.pairs, to, len(s.pairs))
	s.mu.Unlock()

	if err := s.release(removed); err != nil {
		return fmt.Errorf("%w: strip %s: %w", ErrPortOperation, s.name, err)
	}

	return nil
}

func (s *Strip) registerPair(k int) (portPair, error) {
	in, err := s.client.RegisterPort(fmt.Sprintf("%s-in-%d", s.name, k), engine.Input)
	if err != nil {
		return portPair{}, err
	}

	out, err := s.client.RegisterPort(fmt.Sprintf("%s-out-%d", s.name, k), engine.Output)
	if err != nil {
		return portPair{}, errors.Join(err, s.client.UnregisterPort(in))
	}

	return portPair{in: in, out: out}, nil
}

// release unregisters pairs last-first. Ports the engine refuses to drop
// are named in the error; the strip no longer tracks them.
func (s *Strip) release(pairs []portPair) error {
	if s.orphaned.Load() {
		return nil
	}

	var errs []error

	for _, pair := range slices.Backward(pairs) {
		for _, port := range []engine.Port{pair.in, pair.out} {
			if err := s.client.UnregisterPort(port); err != nil {
				errs = append(errs, fmt.Errorf("port %s left registered: %w", port.Name(), err))
			}
		}
	}

	return errors.Join(errs...)
}

// FormatSummary renders a state line: "<name>: channels: <n> gain-factor: <g>".
func FormatSummary(name string, channels int, gain float32) string {
	return fmt.Sprintf("%s: channels: %d gain-factor: %s",
		name, channels, strconv.FormatFloat(float64(gain), 'f', -1, 32))
}
