package config

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/alkime/jackmixer/internal/mixer"
	"gopkg.in/yaml.v3"
)

// Seed describes strips created at startup.
//
//	strips:
//	  - name: voice
//	    gain: 80      # percent, 0..200
//	    channels: 1
type Seed struct {
	Strips []SeedStrip `yaml:"strips"`
}

// SeedStrip is one seeded strip. Unset fields keep the strip defaults.
type SeedStrip struct {
	Name     string `yaml:"name"`
	Gain     *int   `yaml:"gain"`
	Channels *int   `yaml:"channels"`
}

// LoadSeed reads a seed file.
func LoadSeed(path string) (*Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	seed, err := ParseSeed(f)
	if err != nil {
		return nil, fmt.Errorf("seed file %s: %w", path, err)
	}

	return seed, nil
}

// ParseSeed decodes a seed document. Unknown keys are rejected.
func ParseSeed(r io.Reader) (*Seed, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var seed Seed
	if err := dec.Decode(&seed); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode seed: %w", err)
	}

	return &seed, nil
}

// Commands expands the seed into the commands that create it, in file
// order.
func (s *Seed) Commands() ([]mixer.Command, error) {
	var cmds []mixer.Command

	for i, strip := range s.Strips {
		if strip.Name == "" {
			return nil, fmt.Errorf("%w: seed strip %d has no name", mixer.ErrInvalidArgument, i)
		}

		cmds = append(cmds, mixer.AddStrip{Name: strip.Name})

		if strip.Gain != nil {
			factor, err := mixer.GainFromPercent(*strip.Gain)
			if err != nil {
				return nil, fmt.Errorf("seed strip %s: %w", strip.Name, err)
			}

			cmds = append(cmds, mixer.SetGainFactor{Name: strip.Name, Factor: factor})
		}

		if strip.Channels != nil {
			cmds = append(cmds, mixer.SetChannels{Name: strip.Name, Count: *strip.Channels})
		}
	}

	return cmds, nil
}
