package mixer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alkime/jackmixer/pkg/collections"
)

const (
	channelsMarker = ": channels: "
	gainMarker     = " gain-factor: "
)

// StripInfo is the parsed form of a state line.
type StripInfo struct {
	Name       string  `json:"name"`
	Channels   int     `json:"channels"`
	GainFactor float32 `json:"gainFactor"`
}

// GainPercent is the gain as a wire percent.
func (i StripInfo) GainPercent() int {
	return int(PercentFromGain(i.GainFactor))
}

// ParseSummary reverses FormatSummary. Names may contain any characters;
// the last channels marker wins.
func ParseSummary(line string) (StripInfo, error) {
	idx := strings.LastIndex(line, channelsMarker)
	if idx < 0 {
		return StripInfo{}, fmt.Errorf("malformed state line %q", line)
	}

	name := line[:idx]
	countStr, gainStr, ok := strings.Cut(line[idx+len(channelsMarker):], gainMarker)
	if !ok {
		return StripInfo{}, fmt.Errorf("malformed state line %q: missing gain-factor", line)
	}

	count, err := strconv.Atoi(countStr)
	if err != nil {
		return StripInfo{}, fmt.Errorf("malformed channel count in %q: %w", line, err)
	}

	gain, err := strconv.ParseFloat(gainStr, 32)
	if err != nil {
		return StripInfo{}, fmt.Errorf("malformed gain factor in %q: %w", line, err)
	}

	return StripInfo{Name: name, Channels: count, GainFactor: float32(gain)}, nil
}

// ParseState parses every line of a GetState dump.
func ParseState(lines []string) ([]StripInfo, error) {
	return collections.TryApply(lines, ParseSummary)
}
