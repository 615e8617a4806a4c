// Package uictl holds small value controls shared by interactive views.
package uictl

import "golang.org/x/exp/constraints"

// Number is any integer or float type.
type Number interface {
	constraints.Integer | constraints.Float
}

// Fader is a value clamped to [lo, hi]. It is a value type; every change
// returns a new Fader.
type Fader[N Number] struct {
	value N
	lo    N
	hi    N
}

// NewFader creates a fader at value, clamped to [lo, hi].
func NewFader[N Number](value, lo, hi N) Fader[N] {
	if hi < lo {
		lo, hi = hi, lo
	}

	return Fader[N]{lo: lo, hi: hi}.Set(value)
}

// Read returns the current value.
func (f Fader[N]) Read() N {
	return f.value
}

// Set moves the fader to v, clamped.
func (f Fader[N]) Set(v N) Fader[N] {
	f.value = min(max(v, f.lo), f.hi)

	return f
}

// Nudge moves the fader by delta, clamped.
func (f Fader[N]) Nudge(delta N) Fader[N] {
	return f.Set(f.value + delta)
}

// Ratio is the position within [lo, hi] as 0..1.
func (f Fader[N]) Ratio() float64 {
	if f.hi == f.lo {
		return 0
	}

	return float64(f.value-f.lo) / float64(f.hi-f.lo)
}
