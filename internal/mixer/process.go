package mixer

import (
	"github.com/alkime/jackmixer/internal/engine"
	"github.com/viterin/vek/vek32"
)

// processor is the strip's real-time callback. It never blocks on the strip
// lock: if the control loop holds it, the block is skipped and counted.
type processor struct {
	strip *Strip
}

func (p processor) Process(nframes uint32) engine.Control {
	s := p.strip

	if !s.mu.TryLock() {
		s.skipped.Add(1)

		return engine.Continue
	}

	gain := s.gain
	for _, pair := range s.pairs {
		in := pair.in.Buffer(nframes)
		out := pair.out.Buffer(nframes)
		n := min(len(in), len(out))
		vek32.MulNumber_Into(out[:n], in[:n], gain)
	}

	s.mu.Unlock()

	return engine.Continue
}

// Shutdown marks the strip's client as gone so Destroy does not talk to a
// dead engine.
func (p processor) Shutdown() {
	p.strip.orphaned.Store(true)
}
