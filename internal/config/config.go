package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"time"

	"github.com/alkime/jackmixer/internal/mixer"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	// EnvDevelopment forces debug logging.
	EnvDevelopment = "development"
	// EnvProduction is the default environment.
	EnvProduction = "production"
)

// Config holds all application configuration.
type Config struct {
	Env string `envconfig:"MIXER_ENV" default:"production"`

	// Logging settings
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// D-Bus settings
	BusName     string        `envconfig:"MIXER_BUS_NAME" default:"com.jackAutoconnect.jackAutoconnect"`
	CallTimeout time.Duration `envconfig:"MIXER_CALL_TIMEOUT" default:"5s"`

	// Mixer settings
	ClientPrefix    string `envconfig:"MIXER_CLIENT_PREFIX" default:"jack-mixer"`
	DefaultStrip    string `envconfig:"MIXER_DEFAULT_STRIP" default:"music"`
	MinChannels     int    `envconfig:"MIXER_MIN_CHANNELS" default:"0"`
	MaxChannels     int    `envconfig:"MIXER_MAX_CHANNELS" default:"100"`
	DefaultChannels int    `envconfig:"MIXER_DEFAULT_CHANNELS" default:"2"`
	QueueDepth      int    `envconfig:"MIXER_QUEUE_DEPTH" default:"64"`
	SeedFile        string `envconfig:"MIXER_SEED_FILE"`

	// Audio settings
	AudioBackend  string `envconfig:"MIXER_AUDIO_BACKEND" default:"auto"`
	SampleRate    uint32 `envconfig:"MIXER_SAMPLE_RATE" default:"48000"`
	AudioChannels uint32 `envconfig:"MIXER_AUDIO_CHANNELS" default:"2"`
	PeriodFrames  uint32 `envconfig:"MIXER_PERIOD_FRAMES" default:"256"`
	MaxPorts      int    `envconfig:"MIXER_MAX_PORTS" default:"2048"`

	// HTTP settings, disabled when HTTPAddr is empty
	HTTPAddr   string `envconfig:"MIXER_HTTP_ADDR"`
	HSTSMaxAge int    `envconfig:"MIXER_HSTS_MAX_AGE" default:"31536000"`

	// MIDI settings, disabled when MIDIIn is empty
	MIDIIn       string           `envconfig:"MIXER_MIDI_IN"`
	MIDIBindings map[uint8]string `envconfig:"MIXER_MIDI_BINDINGS"`

	WatchInterval time.Duration `envconfig:"MIXER_WATCH_INTERVAL" default:"500ms"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"text", "json"}
	backends   = []string{"auto", "jack", "alsa", "pulseaudio", "null"}
)

// LoadConfig loads configuration from an optional .env file and the
// environment, then validates it.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		// a missing .env is the normal case
		if !errors.Is(err, os.ErrNotExist) {
			slog.Warn("error loading .env file", "error", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks ranges and enumerations envconfig cannot express.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains(logLevels, c.LogLevel) {
		errs = append(errs, fmt.Errorf("LOG_LEVEL must be one of %v, got %q", logLevels, c.LogLevel))
	}

	if !slices.Contains(logFormats, c.LogFormat) {
		errs = append(errs, fmt.Errorf("LOG_FORMAT must be one of %v, got %q", logFormats, c.LogFormat))
	}

	if !slices.Contains(backends, c.AudioBackend) {
		errs = append(errs, fmt.Errorf("MIXER_AUDIO_BACKEND must be one of %v, got %q", backends, c.AudioBackend))
	}

	if c.BusName == "" {
		errs = append(errs, errors.New("MIXER_BUS_NAME cannot be empty"))
	}

	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("MIXER_CALL_TIMEOUT must be positive, got %s", c.CallTimeout))
	}

	if err := c.ChannelPolicy().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("MIXER_*_CHANNELS: %w", err))
	}

	if c.QueueDepth <= 0 {
		errs = append(errs, fmt.Errorf("MIXER_QUEUE_DEPTH must be positive, got %d", c.QueueDepth))
	}

	if c.SampleRate == 0 || c.AudioChannels == 0 || c.PeriodFrames == 0 {
		errs = append(errs, errors.New("MIXER_SAMPLE_RATE, MIXER_AUDIO_CHANNELS and MIXER_PERIOD_FRAMES must be positive"))
	}

	if c.MaxPorts <= 0 {
		errs = append(errs, fmt.Errorf("MIXER_MAX_PORTS must be positive, got %d", c.MaxPorts))
	}

	for cc, strip := range c.MIDIBindings {
		if cc > 127 || strip == "" {
			errs = append(errs, fmt.Errorf("MIXER_MIDI_BINDINGS: invalid binding %d:%q", cc, strip))
		}
	}

	if c.WatchInterval <= 0 {
		errs = append(errs, fmt.Errorf("MIXER_WATCH_INTERVAL must be positive, got %s", c.WatchInterval))
	}

	return errors.Join(errs...)
}

// IsDevelopment reports whether MIXER_ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == EnvDevelopment
}

// ChannelPolicy is the per-strip channel range.
func (c *Config) ChannelPolicy() mixer.ChannelPolicy {
	return mixer.ChannelPolicy{
		Min:     c.MinChannels,
		Max:     c.MaxChannels,
		Default: c.DefaultChannels,
	}
}
