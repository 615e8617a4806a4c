package mixer

import (
	"fmt"
	"math"
)

const (
	// MaxGainPercent is the largest gain accepted on the wire (2.0x).
	MaxGainPercent = 200
	// MaxGainFactor is MaxGainPercent as a factor.
	MaxGainFactor = 2.0
)

// Command is a request for the control loop. The set of commands is closed.
type Command interface {
	command()
}

// AddStrip creates a strip with the default channel count and unity gain.
type AddStrip struct {
	Name string
}

// RemoveStrip destroys a strip and frees its name.
type RemoveStrip struct {
	Name string
}

// SetGainFactor sets a strip gain in [0, MaxGainFactor].
type SetGainFactor struct {
	Name   string
	Factor float32
}

// SetChannels resizes a strip to Count port pairs.
type SetChannels struct {
	Name  string
	Count int
}

// GetState asks for one summary line per strip, in creation order.
type GetState struct{}

func (AddStrip) command()      {}
func (RemoveStrip) command()   {}
func (SetGainFactor) command() {}
func (SetChannels) command()   {}
func (GetState) command()      {}

// Response is the result of a successful command. State is only set for
// GetState.
type Response struct {
	State []string
}

// GainFromPercent converts a wire gain (0..200) into a factor.
func GainFromPercent(percent int) (float32, error) {
	if percent < 0 || percent > MaxGainPercent {
		return 0, fmt.Errorf("%w: gain factor needs to be a number (0..%d), got %d",
			ErrInvalidArgument, MaxGainPercent, percent)
	}

	return float32(percent) / 100, nil
}

// PercentFromGain converts a factor back to the nearest wire percent.
func PercentFromGain(factor float32) int32 {
	return int32(math.Round(float64(factor) * 100))
}
